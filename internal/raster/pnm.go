package raster

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Decode parses a binary PNM stream (P5 graymap or P6 pixmap). The header
// is validated in full before any pixel buffer is allocated.
func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)

	magic, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("%w: missing magic token", ErrFormat)
	}
	var channels int
	switch magic {
	case "P5":
		channels = 1
	case "P6":
		channels = 3
	default:
		return nil, fmt.Errorf("%w: magic token %q (must be P5 or P6)", ErrFormat, magic)
	}

	width, err := readInt(br, "width")
	if err != nil {
		return nil, err
	}
	height, err := readInt(br, "height")
	if err != nil {
		return nil, err
	}
	maxval, err := readInt(br, "maximum sample value")
	if err != nil {
		return nil, err
	}

	var depth int
	switch maxval {
	case 255:
		depth = 8
	case 65535:
		depth = 16
	default:
		return nil, fmt.Errorf("%w: maximum sample value %d (must be 255 or 65535)", ErrFormat, maxval)
	}

	img, err := New(width, height, channels, depth)
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(br, img.Data); err != nil {
		return nil, fmt.Errorf("%w: truncated pixel data: %v", ErrFormat, err)
	}
	return img, nil
}

// Encode writes the image as binary PNM, mirroring the header layout the
// decoder accepts so a decode/encode round trip is byte-identical.
func (img *Image) Encode(w io.Writer) error {
	magic := "P5"
	if img.Channels == 3 {
		magic = "P6"
	}
	if _, err := fmt.Fprintf(w, "%s\n%d %d\n%d\n", magic, img.Width, img.Height, img.MaxValue()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(img.Data); err != nil {
		return fmt.Errorf("write pixel data: %w", err)
	}
	return nil
}

// readToken skips leading whitespace and returns the next run of
// non-whitespace bytes. The single whitespace byte terminating the token is
// consumed, which is exactly the header/data separator the format requires.
func readToken(br *bufio.Reader) (string, error) {
	var b byte
	var err error
	for {
		b, err = br.ReadByte()
		if err != nil {
			return "", err
		}
		if !isSpace(b) {
			break
		}
	}
	tok := []byte{b}
	for {
		b, err = br.ReadByte()
		if err == io.EOF {
			return string(tok), nil
		}
		if err != nil {
			return "", err
		}
		if isSpace(b) {
			return string(tok), nil
		}
		tok = append(tok, b)
	}
}

func readInt(br *bufio.Reader, field string) (int, error) {
	tok, err := readToken(br)
	if err != nil {
		return 0, fmt.Errorf("%w: missing %s", ErrFormat, field)
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrFormat, field, tok)
	}
	return n, nil
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
