package cmd

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/platen/internal/corners"
	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cornersCmd represents the corners command.
var cornersCmd = &cobra.Command{
	Use:   "corners [input file]",
	Short: "Locate the four corners of a bright rectangular subject",
	Long: `Detect the corners of a bright rectangular region in a scanned image
using a Harris corner-response map with a quadrant-adaptive threshold.

The detected corners are printed top-left, top-right, bottom-left,
bottom-right, ready to feed into "platen rectify --corners".

Supported inputs: PNM rasters (P5/P6) plus the standard image formats
(PNG, JPEG, BMP, TIFF).

Examples:
  platen corners calibration.ppm
  platen corners scan.png --json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runCorners,
}

// cornersOutput is the machine-readable result layout.
type cornersOutput struct {
	Threshold int          `json:"threshold"`
	Corners   [][2]float64 `json:"corners"`
	Points    [][2]float64 `json:"points,omitempty"`
}

func runCorners(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	img, err := loadDetectionImage(args[0])
	if err != nil {
		return err
	}

	opts := corners.Options{
		K:          cfg.Corners.K,
		BlurRadius: cfg.Corners.BlurRadius,
		MaxSize:    cfg.Corners.MaxSize,
	}
	res, err := corners.Detect(img, opts)
	if err != nil {
		return err
	}
	slog.Debug("corners detected", "threshold", res.Threshold, "candidates", len(res.Points))

	asJSON, _ := cmd.Flags().GetBool("json")
	withPoints, _ := cmd.Flags().GetBool("points")
	if asJSON {
		out := cornersOutput{Threshold: res.Threshold}
		for _, c := range res.Corners {
			out.Corners = append(out.Corners, [2]float64{c.X, c.Y})
		}
		if withPoints {
			for _, p := range res.Points {
				out.Points = append(out.Points, [2]float64{p.X, p.Y})
			}
		}
		data, err := json.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "threshold: %d\n", res.Threshold)
	specs := make([]string, 0, 4)
	for _, c := range res.Corners {
		specs = append(specs, fmt.Sprintf("%.1f,%.1f", c.X, c.Y))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "corners: %s\n", strings.Join(specs, ";"))
	return nil
}

// loadDetectionImage reads PNM through the raster codec and everything else
// through the standard decoders.
func loadDetectionImage(path string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pnm", ".pgm", ".ppm":
		img, err := readRaster(path)
		if err != nil {
			return nil, err
		}
		return img.ToImage(), nil
	default:
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open image %s: %w", path, err)
		}
		return img, nil
	}
}

func init() {
	rootCmd.AddCommand(cornersCmd)

	cornersCmd.Flags().Bool("json", false, "print the result as JSON")
	cornersCmd.Flags().Bool("points", false, "include all candidate points in JSON output")
	cornersCmd.Flags().Float64("harris-k", 0.01, "Harris sensitivity parameter")
	cornersCmd.Flags().Float64("blur", 2, "presmoothing radius in pixels")
	cornersCmd.Flags().Int("max-size", 1024, "downscale inputs larger than this before detection (0 = never)")

	_ = viper.BindPFlag("corners.k", cornersCmd.Flags().Lookup("harris-k"))
	_ = viper.BindPFlag("corners.blur_radius", cornersCmd.Flags().Lookup("blur"))
	_ = viper.BindPFlag("corners.max_size", cornersCmd.Flags().Lookup("max-size"))
}
