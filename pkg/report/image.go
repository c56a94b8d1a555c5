package report

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // decoders for DecodeConfig
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	gofpdf "github.com/go-pdf/fpdf"
)

// maxImageBytes bounds logos and signature scans.
const maxImageBytes = 4 << 20

// Image is a PNG, JPEG or GIF held in memory. Documents carry images by
// value so rendering never touches the filesystem.
type Image struct {
	Name string // source file name, for messages
	Data []byte

	format string // fpdf image type: PNG, JPG or GIF
}

// LoadImage reads and checks an image file.
func LoadImage(path string) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if info.Size() > maxImageBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrInvalidImage, path, info.Size(), maxImageBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return NewImage(filepath.Base(path), data)
}

// NewImage checks data and wraps it.
func NewImage(name string, data []byte) (*Image, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidImage, name, err)
	}
	img := &Image{Name: name, Data: data}
	switch format {
	case "png":
		img.format = "PNG"
	case "jpeg":
		img.format = "JPG"
	case "gif":
		img.format = "GIF"
	default:
		return nil, fmt.Errorf("%w: %s: unsupported format %s", ErrInvalidImage, name, format)
	}
	return img, nil
}

// Signatures are scanned signatures drawn into the approval boxes.
type Signatures struct {
	Organization *Image
	Assessor     *Image
}

// registerImage adds img to the document under key. It reports false when
// img is nil or unusable; an unusable image fails the render.
func (b *builder) registerImage(key string, img *Image) bool {
	if img == nil {
		return false
	}
	if _, ok := b.images[key]; ok {
		return true
	}
	format := img.format
	if format == "" {
		checked, err := NewImage(img.Name, img.Data)
		if err != nil {
			b.pdf.SetError(err)
			return false
		}
		format = checked.format
	}
	opt := gofpdf.ImageOptions{ImageType: format}
	info := b.pdf.RegisterImageOptionsReader(key, opt, bytes.NewReader(img.Data))
	if info == nil || !b.pdf.Ok() {
		return false
	}
	b.images[key] = info
	return true
}

// drawImage places a registered image inside the box at x, y, scaled to fit
// maxW by maxH with its aspect ratio kept. It returns the drawn size.
func (b *builder) drawImage(key string, x, y, maxW, maxH float64) (float64, float64) {
	info, ok := b.images[key]
	if !ok || info.Width() <= 0 || info.Height() <= 0 {
		return 0, 0
	}
	scale := min(maxW/info.Width(), maxH/info.Height())
	w, h := info.Width()*scale, info.Height()*scale
	b.pdf.ImageOptions(key, x, y, w, h, false, gofpdf.ImageOptions{}, 0, "")
	return w, h
}
