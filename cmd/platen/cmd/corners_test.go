package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/platen/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBrightRectPGM(t *testing.T) string {
	t.Helper()
	img, err := raster.New(200, 200, 1, 8)
	require.NoError(t, err)
	for y := 40; y < 160; y++ {
		for x := 40; x < 160; x++ {
			img.Set(x, y, 0, 230)
		}
	}

	path := filepath.Join(t.TempDir(), "subject.pgm")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, img.Encode(f))
	require.NoError(t, f.Close())
	return path
}

func TestCornersCommand_Text(t *testing.T) {
	path := writeBrightRectPGM(t)

	cmd := GetRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"corners", path})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "threshold:")
	assert.Contains(t, out, "corners:")
}

func TestCornersCommand_JSON(t *testing.T) {
	path := writeBrightRectPGM(t)

	cmd := GetRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"corners", path, "--json"})

	require.NoError(t, cmd.Execute())

	var out cornersOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out.Corners, 4)

	// Corners cluster near the bright rectangle's true corners.
	assert.InDelta(t, 40, out.Corners[0][0], 20)
	assert.InDelta(t, 40, out.Corners[0][1], 20)
	assert.InDelta(t, 160, out.Corners[3][0], 20)
	assert.InDelta(t, 160, out.Corners[3][1], 20)
}

func TestCornersCommand_MissingFile(t *testing.T) {
	cmd := GetRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"corners", filepath.Join(t.TempDir(), "absent.pgm")})

	assert.Error(t, cmd.Execute())
}
