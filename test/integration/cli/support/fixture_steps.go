package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/platen/internal/raster"
	"github.com/MeKo-Tech/platen/internal/testutil"
)

// neutralDatabase is a calibration catalogue whose only lens applies no
// distortion and no chromatic correction, so rectification of an already
// straight subject must reproduce the input exactly.
const neutralDatabase = `
cameras:
  - maker: Test
    model: TestCam
    crop_factor: 1.5
lenses:
  - maker: Test
    model: Neutral 50mm
    crop_factor: 1.5
    distortion: [{focal: 50, model: none}]
    tca: [{focal: 50, kr: 1, kb: 1}]
`

// ambiguousDatabase contains two lenses sharing a substring, so a lookup
// for that substring must be rejected as ambiguous.
const ambiguousDatabase = `
cameras:
  - maker: Test
    model: TestCam
    crop_factor: 1.5
lenses:
  - maker: Test
    model: Zoom 18-55mm OSS
    distortion: [{focal: 35, model: none}]
  - maker: Test
    model: Zoom 55-210mm OSS
    distortion: [{focal: 55, model: none}]
`

// aNeutralCalibrationDatabaseIsAvailable writes the neutral catalogue.
func (testCtx *TestContext) aNeutralCalibrationDatabaseIsAvailable() error {
	path := filepath.Join(testCtx.TempDir, "calibration.yaml")
	if err := os.WriteFile(path, []byte(neutralDatabase), 0o600); err != nil {
		return fmt.Errorf("failed to write calibration database: %w", err)
	}
	testCtx.DatabasePath = path
	return nil
}

// aCalibrationDatabaseWithAmbiguousLensesIsAvailable writes the ambiguous catalogue.
func (testCtx *TestContext) aCalibrationDatabaseWithAmbiguousLensesIsAvailable() error {
	path := filepath.Join(testCtx.TempDir, "calibration.yaml")
	if err := os.WriteFile(path, []byte(ambiguousDatabase), 0o600); err != nil {
		return fmt.Errorf("failed to write calibration database: %w", err)
	}
	testCtx.DatabasePath = path
	return nil
}

// aGrayscaleScanIsAvailable writes a 100x100 8-bit gradient PGM.
func (testCtx *TestContext) aGrayscaleScanIsAvailable() error {
	img, err := testutil.NewGradientRaster(100, 100, 1, 8)
	if err != nil {
		return fmt.Errorf("failed to build scan fixture: %w", err)
	}
	return testCtx.writeScan(img, "page.pgm")
}

// aColourScanIsAvailable writes a 100x100 16-bit RGB PPM.
func (testCtx *TestContext) aColourScanIsAvailable() error {
	img, err := testutil.NewGradientRaster(100, 100, 3, 16)
	if err != nil {
		return fmt.Errorf("failed to build scan fixture: %w", err)
	}
	return testCtx.writeScan(img, "page.ppm")
}

// aFileThatIsNotAPNMRasterIsAvailable writes a file with a bad magic number.
func (testCtx *TestContext) aFileThatIsNotAPNMRasterIsAvailable() error {
	path := filepath.Join(testCtx.TempDir, "bogus.pgm")
	if err := os.WriteFile(path, []byte("P9\n2 2\n255\nxxxx"), 0o600); err != nil {
		return fmt.Errorf("failed to write bogus raster: %w", err)
	}
	testCtx.ScanPath = path
	return nil
}

// aScannedSheetImageIsAvailable writes a dark scan with a bright sheet region
// whose corners sit at (40,30), (280,30), (40,210), (280,210).
func (testCtx *TestContext) aScannedSheetImageIsAvailable() error {
	img, err := testutil.NewBrightRectRaster(320, 240, 40, 30, 280, 210)
	if err != nil {
		return fmt.Errorf("failed to build sheet fixture: %w", err)
	}
	path := filepath.Join(testCtx.TempDir, "sheet.pgm")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sheet fixture: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := img.Encode(f); err != nil {
		return fmt.Errorf("failed to encode sheet fixture: %w", err)
	}
	testCtx.SheetPath = path
	return nil
}

func (testCtx *TestContext) writeScan(img *raster.Image, name string) error {
	path := filepath.Join(testCtx.TempDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create scan fixture: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := img.Encode(f); err != nil {
		return fmt.Errorf("failed to encode scan fixture: %w", err)
	}
	testCtx.ScanPath = path
	return nil
}

// theOutputRasterShouldMatchTheInputScan decodes both rasters and compares
// them byte for byte.
func (testCtx *TestContext) theOutputRasterShouldMatchTheInputScan(filename string) error {
	outPath := testCtx.substituteCommandVariables(filename)
	out, err := testCtx.decodeRaster(outPath)
	if err != nil {
		return err
	}
	in, err := testCtx.decodeRaster(testCtx.ScanPath)
	if err != nil {
		return err
	}
	if ok, diff := testutil.RastersEqual(in, out); !ok {
		return fmt.Errorf("output raster differs from input: %s", diff)
	}
	return nil
}

// theFileShouldBeAValidPNMRaster decodes the file through the raster codec.
func (testCtx *TestContext) theFileShouldBeAValidPNMRaster(filename string) error {
	path := testCtx.substituteCommandVariables(filename)
	_, err := testCtx.decodeRaster(path)
	return err
}

func (testCtx *TestContext) decodeRaster(path string) (*raster.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	img, err := raster.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode raster %s: %w", path, err)
	}
	return img, nil
}

// theReportedBoundingBoxShouldBe compares the stdout box line against the
// expected "x y width height" values.
func (testCtx *TestContext) theReportedBoundingBoxShouldBe(expected string) error {
	expected = strings.TrimSpace(expected)
	for _, line := range strings.Split(testCtx.LastOutput, "\n") {
		if strings.TrimSpace(line) == expected {
			return nil
		}
	}
	return fmt.Errorf("bounding box %q not found in output:\n%s", expected, testCtx.LastOutput)
}

// RegisterFixtureSteps registers fixture creation and raster verification steps.
func (testCtx *TestContext) RegisterFixtureSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a neutral calibration database is available$`, testCtx.aNeutralCalibrationDatabaseIsAvailable)
	sc.Step(`^a calibration database with ambiguous lenses is available$`,
		testCtx.aCalibrationDatabaseWithAmbiguousLensesIsAvailable)
	sc.Step(`^a grayscale scan is available$`, testCtx.aGrayscaleScanIsAvailable)
	sc.Step(`^a colour scan is available$`, testCtx.aColourScanIsAvailable)
	sc.Step(`^a file that is not a PNM raster is available$`, testCtx.aFileThatIsNotAPNMRasterIsAvailable)
	sc.Step(`^a scanned sheet image is available$`, testCtx.aScannedSheetImageIsAvailable)
	sc.Step(`^the output raster "([^"]*)" should match the input scan$`, testCtx.theOutputRasterShouldMatchTheInputScan)
	sc.Step(`^the file "([^"]*)" should be a valid PNM raster$`, testCtx.theFileShouldBeAValidPNMRaster)
	sc.Step(`^the reported bounding box should be "([^"]*)"$`, testCtx.theReportedBoundingBoxShouldBe)
}
