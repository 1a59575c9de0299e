package optics

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration is the root of all optics configuration failures:
// database problems, unresolved camera/lens identifiers, and transform
// activation failures.
var ErrConfiguration = errors.New("optics configuration error")

// Lookup failures are distinguishable: zero matches and multiple matches
// are different caller mistakes and must not collapse into one message.
var (
	ErrCameraNotFound  = fmt.Errorf("%w: camera not found", ErrConfiguration)
	ErrCameraAmbiguous = fmt.Errorf("%w: camera name ambiguous", ErrConfiguration)
	ErrLensNotFound    = fmt.Errorf("%w: lens not found", ErrConfiguration)
	ErrLensAmbiguous   = fmt.Errorf("%w: lens name ambiguous", ErrConfiguration)
)

// Camera is one calibrated camera body.
type Camera struct {
	Maker      string  `yaml:"maker"`
	Model      string  `yaml:"model"`
	CropFactor float64 `yaml:"crop_factor"`
}

// DistortionCalibration is the radial distortion model fitted at one focal
// length. Radii are normalised so r = 1 at half the smaller image dimension.
type DistortionCalibration struct {
	Focal float64 `yaml:"focal"`
	Model string  `yaml:"model"` // "poly3", "ptlens", or "none"
	K1    float64 `yaml:"k1,omitempty"`
	A     float64 `yaml:"a,omitempty"`
	B     float64 `yaml:"b,omitempty"`
	C     float64 `yaml:"c,omitempty"`
}

// TCACalibration is the linear per-channel radial scale fitted at one focal
// length; the green channel is the reference.
type TCACalibration struct {
	Focal float64 `yaml:"focal"`
	KR    float64 `yaml:"kr"`
	KB    float64 `yaml:"kb"`
}

// Lens is one calibrated lens.
type Lens struct {
	Maker      string                  `yaml:"maker"`
	Model      string                  `yaml:"model"`
	Mount      string                  `yaml:"mount,omitempty"`
	CropFactor float64                 `yaml:"crop_factor,omitempty"` // reference sensor the calibration was made on
	Distortion []DistortionCalibration `yaml:"distortion"`
	TCA        []TCACalibration        `yaml:"tca,omitempty"`
}

// Database is the calibration catalogue. It is read-only after loading, so
// one Database may serve concurrent invocations.
type Database struct {
	Cameras []Camera `yaml:"cameras"`
	Lenses  []Lens   `yaml:"lenses"`
}

// LoadDatabase reads a calibration database from a YAML file.
func LoadDatabase(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading database %s: %v", ErrConfiguration, path, err)
	}
	return ParseDatabase(data)
}

// ParseDatabase parses a calibration database from YAML bytes.
func ParseDatabase(data []byte) (*Database, error) {
	var db Database
	if err := yaml.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("%w: parsing database: %v", ErrConfiguration, err)
	}
	for i := range db.Cameras {
		if db.Cameras[i].Model == "" {
			return nil, fmt.Errorf("%w: camera %d has no model", ErrConfiguration, i)
		}
		if db.Cameras[i].CropFactor <= 0 {
			return nil, fmt.Errorf("%w: camera %q has no crop factor", ErrConfiguration, db.Cameras[i].Model)
		}
	}
	for i := range db.Lenses {
		if db.Lenses[i].Model == "" {
			return nil, fmt.Errorf("%w: lens %d has no model", ErrConfiguration, i)
		}
	}
	return &db, nil
}

// FindCamera resolves a camera by model name (case-insensitive substring),
// optionally restricted to one maker. The match must be unique.
func (db *Database) FindCamera(maker, model string) (*Camera, error) {
	var matches []*Camera
	for i := range db.Cameras {
		c := &db.Cameras[i]
		if maker != "" && !strings.EqualFold(c.Maker, maker) {
			continue
		}
		if containsFold(c.Model, model) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrCameraNotFound, model)
	default:
		return nil, fmt.Errorf("%w: %q matches %d entries", ErrCameraAmbiguous, model, len(matches))
	}
}

// FindLens resolves a lens by model name (case-insensitive substring),
// optionally restricted to a camera's mount system via the camera's maker.
// The match must be unique.
func (db *Database) FindLens(camera *Camera, model string) (*Lens, error) {
	var matches []*Lens
	for i := range db.Lenses {
		l := &db.Lenses[i]
		if camera != nil && l.Maker != "" && !strings.EqualFold(l.Maker, camera.Maker) {
			continue
		}
		if containsFold(l.Model, model) {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrLensNotFound, model)
	default:
		return nil, fmt.Errorf("%w: %q matches %d entries", ErrLensAmbiguous, model, len(matches))
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
