package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/platen/internal/common"
	"github.com/MeKo-Tech/platen/internal/config"
	"github.com/MeKo-Tech/platen/internal/geometry"
	"github.com/MeKo-Tech/platen/internal/optics"
	"github.com/MeKo-Tech/platen/internal/raster"
	"github.com/MeKo-Tech/platen/internal/remap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rectifyCmd represents the rectify command.
var rectifyCmd = &cobra.Command{
	Use:   "rectify [input file]",
	Short: "Correct lens distortion and perspective of a photographed page",
	Long: `Rectify a photographed page: undo lens distortion and chromatic
aberration using the calibration database, straighten the perspective from
the four subject corners, and report the subject's bounding box in the
corrected image.

The input is a binary PNM raster (P5 grayscale or P6 colour, 8 or 16 bit).
Corners are given top-left, top-right, bottom-left, bottom-right.

Examples:
  platen rectify page.ppm --out flat.ppm --corners "120,80;3900,95;110,2870;3880,2860" \
      --camera-model NEX-7 --lens-model "E 50mm f/1.8 OSS"
  platen rectify page.pgm --out flat.pgm --corners "10,10;90,10;10,90;90,90" --format json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runRectify,
}

func runRectify(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		return errors.New("no output file provided (use --out)")
	}
	cornerSpec, _ := cmd.Flags().GetString("corners")
	if cornerSpec == "" {
		return errors.New("no corners provided (use --corners \"x,y;x,y;x,y;x,y\")")
	}
	corners, err := parseCorners(cornerSpec)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	src, err := readRaster(args[0])
	if err != nil {
		return err
	}
	slog.Debug("input parsed", "width", src.Width, "height", src.Height,
		"channels", src.Channels, "depth", src.Depth)

	params, err := resolveOptics(cfg.Optics, cfg.Remap.Workers)
	if err != nil {
		return err
	}

	timer := common.NewNamedTimer("rectify")
	out, box, err := remap.Rectify(src, corners, params, optics.NewProvider())
	if err != nil {
		return describeFailure(err)
	}
	slog.Debug("remap complete", "duration", timer.Stop())

	if err := writeRaster(outPath, out); err != nil {
		return err
	}

	return printBox(cmd, box, format)
}

// resolveOptics turns configuration into engine parameters, resolving
// camera and lens against the calibration database.
func resolveOptics(cfg config.OpticsConfig, workers int) (remap.Params, error) {
	if cfg.DatabasePath == "" {
		return remap.Params{}, errors.New("no calibration database configured (use --database or optics.database_path)")
	}
	db, err := optics.LoadDatabase(cfg.DatabasePath)
	if err != nil {
		return remap.Params{}, describeFailure(err)
	}

	var camera *optics.Camera
	if cfg.CameraModel != "" {
		camera, err = db.FindCamera(cfg.CameraMaker, cfg.CameraModel)
		if err != nil {
			return remap.Params{}, describeFailure(err)
		}
	}

	crop := cfg.CropFactor
	if crop <= 0 && camera != nil {
		crop = camera.CropFactor
	}
	if crop <= 0 {
		return remap.Params{}, errors.New("no crop factor available (give --crop or a --camera-model with a database entry)")
	}

	if cfg.LensModel == "" {
		return remap.Params{}, errors.New("no lens model provided (use --lens-model)")
	}
	lens, err := db.FindLens(camera, cfg.LensModel)
	if err != nil {
		return remap.Params{}, describeFailure(err)
	}

	return remap.Params{
		Camera:      camera,
		Lens:        lens,
		CropFactor:  crop,
		FocalLength: cfg.FocalLength,
		Workers:     workers,
	}, nil
}

func parseCorners(spec string) ([4]geometry.Point, error) {
	var corners [4]geometry.Point
	parts := strings.Split(spec, ";")
	if len(parts) != 4 {
		return corners, fmt.Errorf("corners must be 4 semicolon-separated points, got %d", len(parts))
	}
	for i, part := range parts {
		xy := strings.Split(strings.TrimSpace(part), ",")
		if len(xy) != 2 {
			return corners, fmt.Errorf("corner %d: expected \"x,y\", got %q", i, part)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		if err != nil {
			return corners, fmt.Errorf("corner %d: bad x coordinate %q", i, xy[0])
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if err != nil {
			return corners, fmt.Errorf("corner %d: bad y coordinate %q", i, xy[1])
		}
		corners[i] = geometry.Point{X: x, Y: y}
	}
	return corners, nil
}

func readRaster(path string) (*raster.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	img, err := raster.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func writeRaster(path string, img *raster.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if err := img.Encode(f); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func printBox(cmd *cobra.Command, box remap.Box, format string) error {
	switch format {
	case "json":
		data, err := json.Marshal(box)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%g %g %g %g\n", box.X, box.Y, box.Width, box.Height)
	}
	return nil
}

// describeFailure prefixes configuration failures with a stable, kind-
// specific message so callers and scripts can tell them apart.
func describeFailure(err error) error {
	switch {
	case errors.Is(err, optics.ErrCameraAmbiguous):
		return fmt.Errorf("camera name is ambiguous in the calibration database: %w", err)
	case errors.Is(err, optics.ErrCameraNotFound):
		return fmt.Errorf("camera not found in the calibration database: %w", err)
	case errors.Is(err, optics.ErrLensAmbiguous):
		return fmt.Errorf("lens name is ambiguous in the calibration database: %w", err)
	case errors.Is(err, optics.ErrLensNotFound):
		return fmt.Errorf("lens not found in the calibration database: %w", err)
	default:
		return err
	}
}

func init() {
	rootCmd.AddCommand(rectifyCmd)

	rectifyCmd.Flags().String("out", "", "path for the corrected output raster (required)")
	rectifyCmd.Flags().String("corners", "", "subject corners \"x,y;x,y;x,y;x,y\" in TL,TR,BL,BR order (required)")
	rectifyCmd.Flags().String("format", "text", "bounding box output format (text, json)")
	rectifyCmd.Flags().String("camera-maker", "", "camera maker to restrict database lookup")
	rectifyCmd.Flags().String("camera-model", "", "camera model to resolve in the calibration database")
	rectifyCmd.Flags().String("lens-model", "", "lens model to resolve in the calibration database")
	rectifyCmd.Flags().Float64("crop", 0, "sensor crop factor (overrides the camera entry)")
	rectifyCmd.Flags().Float64("focal", 50, "focal length in mm used as the optical operating point")
	rectifyCmd.Flags().Int("workers", 0, "goroutines for the dense remap (0 = GOMAXPROCS)")

	_ = viper.BindPFlag("optics.camera_maker", rectifyCmd.Flags().Lookup("camera-maker"))
	_ = viper.BindPFlag("optics.camera_model", rectifyCmd.Flags().Lookup("camera-model"))
	_ = viper.BindPFlag("optics.lens_model", rectifyCmd.Flags().Lookup("lens-model"))
	_ = viper.BindPFlag("optics.crop_factor", rectifyCmd.Flags().Lookup("crop"))
	_ = viper.BindPFlag("optics.focal_length", rectifyCmd.Flags().Lookup("focal"))
	_ = viper.BindPFlag("remap.workers", rectifyCmd.Flags().Lookup("workers"))
}
