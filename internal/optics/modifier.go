package optics

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/platen/internal/geometry"
	"github.com/MeKo-Tech/platen/internal/mempool"
)

// calibrationProvider builds modifiers from database calibrations.
type calibrationProvider struct{}

// NewProvider returns the database-backed Provider. Each Modifier it hands
// out is self-contained; no state is shared between instances.
func NewProvider() Provider {
	return calibrationProvider{}
}

func (calibrationProvider) Modifier(cfg ModifierConfig) (Modifier, error) {
	if cfg.Lens == nil {
		return nil, fmt.Errorf("%w: modifier requires a lens", ErrConfiguration)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: modifier dimensions %dx%d", ErrConfiguration, cfg.Width, cfg.Height)
	}
	if cfg.Channels != 1 && cfg.Channels != 3 {
		return nil, fmt.Errorf("%w: modifier pixel format %d channels", ErrConfiguration, cfg.Channels)
	}
	if cfg.CropFactor <= 0 {
		return nil, fmt.Errorf("%w: crop factor %g", ErrConfiguration, cfg.CropFactor)
	}
	focal := cfg.FocalLength
	if focal <= 0 {
		focal = 50
	}
	m := &lensModifier{
		cfg:   cfg,
		focal: focal,
		cx:    float64(cfg.Width-1) / 2,
		cy:    float64(cfg.Height-1) / 2,
		kr:    1,
		kb:    1,
	}
	// Radius 1 at half the smaller image dimension; the crop factor maps
	// calibrations made on the reference sensor onto this sensor.
	m.norm = 2 / float64(min(cfg.Width, cfg.Height))
	if cfg.Lens.CropFactor > 0 {
		m.calibScale = cfg.CropFactor / cfg.Lens.CropFactor
	} else {
		m.calibScale = 1
	}
	return m, nil
}

// lensModifier applies radial distortion, TCA, and a homography in either
// direction. Forward instances map corrected output coordinates to source
// coordinates; reverse instances map source coordinates to corrected output
// coordinates.
type lensModifier struct {
	cfg        ModifierConfig
	focal      float64
	cx, cy     float64
	norm       float64
	calibScale float64

	distortion *DistortionCalibration
	tca        bool
	kr, kb     float64

	persp bool
	h     geometry.Homography // source (undistorted) -> corrected output
	hInv  geometry.Homography // corrected output -> source (undistorted)
}

func (m *lensModifier) EnableDistortion() error {
	cal := nearestDistortion(m.cfg.Lens.Distortion, m.focal)
	if cal == nil {
		return fmt.Errorf("%w: lens %q has no distortion calibration near %gmm",
			ErrConfiguration, m.cfg.Lens.Model, m.focal)
	}
	switch cal.Model {
	case "poly3", "ptlens", "none":
	default:
		return fmt.Errorf("%w: lens %q uses unknown distortion model %q",
			ErrConfiguration, m.cfg.Lens.Model, cal.Model)
	}
	m.distortion = cal
	return nil
}

func (m *lensModifier) EnableTCA() error {
	cal := nearestTCA(m.cfg.Lens.TCA, m.focal)
	if cal == nil {
		return fmt.Errorf("%w: lens %q has no TCA calibration near %gmm",
			ErrConfiguration, m.cfg.Lens.Model, m.focal)
	}
	if cal.KR <= 0 || cal.KB <= 0 {
		return fmt.Errorf("%w: lens %q has non-positive TCA coefficients",
			ErrConfiguration, m.cfg.Lens.Model)
	}
	m.tca = true
	m.kr = cal.KR
	m.kb = cal.KB
	return nil
}

func (m *lensModifier) EnablePerspective(ref []geometry.Point) error {
	if len(ref) != 6 {
		return fmt.Errorf("%w: perspective correction needs 6 reference points, got %d",
			ErrConfiguration, len(ref))
	}
	// Reference layout: TL, BL, TR, BR plus the repeated TL, TR that pin
	// the horizontal top edge. The quad corners sit at indices 0, 2, 1, 3.
	tl, bl, tr, br := ref[0], ref[1], ref[2], ref[3]

	// Target frame: the quad's axis-aligned bounding rectangle. A quad
	// that is already axis-aligned therefore maps to itself.
	minX := math.Min(math.Min(tl.X, bl.X), math.Min(tr.X, br.X))
	maxX := math.Max(math.Max(tl.X, bl.X), math.Max(tr.X, br.X))
	minY := math.Min(math.Min(tl.Y, bl.Y), math.Min(tr.Y, br.Y))
	maxY := math.Max(math.Max(tl.Y, bl.Y), math.Max(tr.Y, br.Y))
	if maxX-minX < 1 || maxY-minY < 1 {
		return fmt.Errorf("%w: degenerate perspective reference quad", ErrConfiguration)
	}

	src := [4]geometry.Point{tl, tr, br, bl}
	dst := [4]geometry.Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}
	h, ok := geometry.ComputeHomography(src, dst)
	if !ok {
		return fmt.Errorf("%w: perspective reference quad is collinear", ErrConfiguration)
	}
	hInv, ok := h.Invert()
	if !ok {
		return fmt.Errorf("%w: perspective transform is singular", ErrConfiguration)
	}
	m.persp = true
	m.h = h
	m.hInv = hInv
	return nil
}

// MapPoint maps one coordinate with the green channel's geometry (no TCA
// offset, matching the single-channel dense map).
func (m *lensModifier) MapPoint(x, y float64) (geometry.Point, bool) {
	px, py := m.mapChannel(x, y, 1)
	if math.IsNaN(px) || math.IsNaN(py) {
		return geometry.Point{}, false
	}
	return geometry.Point{X: px, Y: py}, true
}

func (m *lensModifier) MapRegion(x0, y0, w, h int) []float32 {
	res := mempool.GetFloat32(w * h * 2)
	i := 0
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			sx, sy := m.mapChannel(float64(x), float64(y), 1)
			res[i] = float32(sx)
			res[i+1] = float32(sy)
			i += 2
		}
	}
	return res
}

func (m *lensModifier) MapRegionSubpixel(x0, y0, w, h int) []float32 {
	res := mempool.GetFloat32(w * h * 6)
	i := 0
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			for c := range 3 {
				sx, sy := m.mapChannel(float64(x), float64(y), c)
				res[i] = float32(sx)
				res[i+1] = float32(sy)
				i += 2
			}
		}
	}
	return res
}

// mapChannel applies the enabled corrections for one channel (0=R, 1=G,
// 2=B; green is the TCA reference).
func (m *lensModifier) mapChannel(x, y float64, channel int) (float64, float64) {
	if m.cfg.Reverse {
		// Source coordinate -> corrected output coordinate.
		x, y = m.undistort(x, y, channel)
		if m.persp {
			x, y = m.h.Apply(x, y)
		}
		return x, y
	}
	// Corrected output coordinate -> source coordinate.
	if m.persp {
		x, y = m.hInv.Apply(x, y)
	}
	return m.distort(x, y, channel)
}

// distort maps an undistorted coordinate to its position in the distorted
// source image.
func (m *lensModifier) distort(x, y float64, channel int) (float64, float64) {
	dx := (x - m.cx) * m.norm * m.calibScale
	dy := (y - m.cy) * m.norm * m.calibScale
	ru := math.Hypot(dx, dy)
	scale := 1.0
	if ru > 0 {
		scale = m.distortRadius(ru) / ru
	}
	scale *= m.tcaScale(channel)
	return m.cx + dx*scale/(m.norm*m.calibScale), m.cy + dy*scale/(m.norm*m.calibScale)
}

// undistort inverts distort for one coordinate via Newton iteration on the
// radial model.
func (m *lensModifier) undistort(x, y float64, channel int) (float64, float64) {
	dx := (x - m.cx) * m.norm * m.calibScale
	dy := (y - m.cy) * m.norm * m.calibScale
	dx /= m.tcaScale(channel)
	dy /= m.tcaScale(channel)
	rd := math.Hypot(dx, dy)
	if rd == 0 {
		return m.cx, m.cy
	}
	ru := rd
	for range 12 {
		f := m.distortRadius(ru) - rd
		df := m.distortRadiusDeriv(ru)
		if df == 0 {
			break
		}
		next := ru - f/df
		if math.Abs(next-ru) < 1e-12 {
			ru = next
			break
		}
		ru = next
	}
	scale := ru / rd
	return m.cx + dx*scale/(m.norm*m.calibScale), m.cy + dy*scale/(m.norm*m.calibScale)
}

func (m *lensModifier) distortRadius(ru float64) float64 {
	if m.distortion == nil {
		return ru
	}
	switch m.distortion.Model {
	case "poly3":
		k1 := m.distortion.K1
		return ru * (1 - k1 + k1*ru*ru)
	case "ptlens":
		a, b, c := m.distortion.A, m.distortion.B, m.distortion.C
		d := 1 - a - b - c
		return ru * (a*ru*ru*ru + b*ru*ru + c*ru + d)
	default:
		return ru
	}
}

func (m *lensModifier) distortRadiusDeriv(ru float64) float64 {
	if m.distortion == nil {
		return 1
	}
	switch m.distortion.Model {
	case "poly3":
		k1 := m.distortion.K1
		return 1 - k1 + 3*k1*ru*ru
	case "ptlens":
		a, b, c := m.distortion.A, m.distortion.B, m.distortion.C
		d := 1 - a - b - c
		return 4*a*ru*ru*ru + 3*b*ru*ru + 2*c*ru + d
	default:
		return 1
	}
}

func (m *lensModifier) tcaScale(channel int) float64 {
	if !m.tca {
		return 1
	}
	switch channel {
	case 0:
		return m.kr
	case 2:
		return m.kb
	default:
		return 1
	}
}

func nearestDistortion(cals []DistortionCalibration, focal float64) *DistortionCalibration {
	var best *DistortionCalibration
	bestDiff := math.Inf(1)
	for i := range cals {
		diff := math.Abs(cals[i].Focal - focal)
		if diff < bestDiff {
			bestDiff = diff
			best = &cals[i]
		}
	}
	return best
}

func nearestTCA(cals []TCACalibration, focal float64) *TCACalibration {
	var best *TCACalibration
	bestDiff := math.Inf(1)
	for i := range cals {
		diff := math.Abs(cals[i].Focal - focal)
		if diff < bestDiff {
			bestDiff = diff
			best = &cals[i]
		}
	}
	return best
}
