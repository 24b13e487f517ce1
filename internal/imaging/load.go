package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Load decodes the image at path into a normalized Buffer.
// All failures are returned as *model.DecodeError.
func Load(path string, size int) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	buf, err := Decode(f, size)
	if err != nil {
		var de *model.DecodeError
		if errors.As(err, &de) {
			de.Path = path
			return nil, de
		}
		return nil, &model.DecodeError{Path: path, Err: err}
	}
	return buf, nil
}

// Decode reads an encoded image (PNG, JPEG, GIF, BMP, TIFF or WebP) from r.
func Decode(r io.Reader, size int) (*Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &model.DecodeError{Err: fmt.Errorf("read: %w", err)}
	}
	if len(data) == 0 {
		return nil, &model.DecodeError{Err: ErrEmptyImage}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &model.DecodeError{Err: err}
	}
	buf, err := FromImage(img, size)
	if err != nil {
		return nil, &model.DecodeError{Err: err}
	}
	return buf, nil
}
