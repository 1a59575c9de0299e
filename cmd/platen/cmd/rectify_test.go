package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/platen/internal/optics"
	"github.com/MeKo-Tech/platen/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCorners(t *testing.T) {
	corners, err := parseCorners("1,2;3.5,4;5,6;7,8.25")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, corners[0].X, 1e-9)
	assert.InDelta(t, 2.0, corners[0].Y, 1e-9)
	assert.InDelta(t, 3.5, corners[1].X, 1e-9)
	assert.InDelta(t, 8.25, corners[3].Y, 1e-9)
}

func TestParseCorners_Whitespace(t *testing.T) {
	corners, err := parseCorners(" 1 , 2 ; 3,4 ; 5,6 ; 7,8 ")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, corners[0].X, 1e-9)
	assert.InDelta(t, 8.0, corners[3].Y, 1e-9)
}

func TestParseCorners_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"too few points", "1,2;3,4;5,6"},
		{"too many points", "1,2;3,4;5,6;7,8;9,10"},
		{"missing y", "1,2;3,4;5,6;7"},
		{"non-numeric", "1,2;3,4;5,6;seven,8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCorners(tt.spec)
			assert.Error(t, err)
		})
	}
}

func TestDescribeFailure_DistinctMessages(t *testing.T) {
	db, err := optics.ParseDatabase([]byte(`
cameras:
  - maker: Sony
    model: NEX-7
    crop_factor: 1.5
lenses:
  - maker: Sony
    model: E 50mm f/1.8 OSS
    distortion: [{focal: 50, model: none}]
  - maker: Sony
    model: E 55-210mm OSS
    distortion: [{focal: 55, model: none}]
`))
	require.NoError(t, err)

	_, notFound := db.FindLens(nil, "85mm")
	_, ambiguous := db.FindLens(nil, "OSS")

	msgNotFound := describeFailure(notFound).Error()
	msgAmbiguous := describeFailure(ambiguous).Error()

	assert.Contains(t, msgNotFound, "lens not found")
	assert.Contains(t, msgAmbiguous, "lens name is ambiguous")
	assert.NotEqual(t, msgNotFound, msgAmbiguous)
}

func writeTestAssets(t *testing.T) (inputPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()

	img, err := raster.New(100, 100, 1, 8)
	require.NoError(t, err)
	for y := range 100 {
		for x := range 100 {
			img.Set(x, y, 0, (x+y)%256)
		}
	}
	inputPath = filepath.Join(dir, "page.pgm")
	f, err := os.Create(inputPath)
	require.NoError(t, err)
	require.NoError(t, img.Encode(f))
	require.NoError(t, f.Close())

	dbPath = filepath.Join(dir, "calibration.yaml")
	db := `
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
	require.NoError(t, os.WriteFile(dbPath, []byte(db), 0o600))
	return inputPath, dbPath
}

func TestRectifyCommand_EndToEnd(t *testing.T) {
	inputPath, dbPath := writeTestAssets(t)
	outPath := filepath.Join(t.TempDir(), "flat.pgm")

	cmd := GetRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{
		"rectify", inputPath,
		"--out", outPath,
		"--corners", "10,10;90,10;10,90;90,90",
		"--database", dbPath,
		"--camera-model", "TestCam",
		"--lens-model", "Neutral",
	})

	require.NoError(t, cmd.Execute())

	// Identity optics and axis-aligned corners: output equals input,
	// bounding box is the input square.
	assert.Contains(t, buf.String(), "10 10 80 80")

	in, err := os.ReadFile(inputPath)
	require.NoError(t, err)
	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRectifyCommand_BadMagic(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "bad.pgm")
	require.NoError(t, os.WriteFile(badPath, []byte("P9\n2 2\n255\n\x00\x00\x00\x00"), 0o600))
	_, dbPath := writeTestAssets(t)

	cmd := GetRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		"rectify", badPath,
		"--out", filepath.Join(dir, "out.pgm"),
		"--corners", "0,0;1,0;0,1;1,1",
		"--database", dbPath,
		"--camera-model", "TestCam",
		"--lens-model", "Neutral",
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, raster.ErrFormat)
}

func TestRectifyCommand_MissingFlags(t *testing.T) {
	inputPath, _ := writeTestAssets(t)

	cmd := GetRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	// Flags are reset explicitly because cobra retains values across
	// executions of the shared root command.
	cmd.SetArgs([]string{"rectify", inputPath, "--out", "", "--corners", ""})

	assert.Error(t, cmd.Execute())
}
