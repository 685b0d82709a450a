// Package media reads image dimensions and EXIF metadata from evidence files.
package media

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

const (
	ResolutionKey   = "해상도"
	unknownSentinel = "알수없음"
)

type Info struct {
	Width    int
	Height   int
	Metadata map[string]string
}

// Inspect decodes the image at path and collects its EXIF tags. Failures
// never surface as errors: the metadata map then only reports an unknown
// resolution.
func Inspect(path string) Info {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Info{Metadata: map[string]string{ResolutionKey: unknownSentinel}}
	}

	bounds := img.Bounds()
	info := Info{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Metadata: readExif(path),
	}
	info.Metadata[ResolutionKey] = fmt.Sprintf("%dx%d", info.Width, info.Height)
	return info
}

// Thumbnail returns the image at path fitted inside maxW x maxH and encoded
// as JPEG.
func Thumbnail(path string, maxW, maxH int) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	var fitted image.Image = img
	if b := img.Bounds(); b.Dx() > maxW || b.Dy() > maxH {
		fitted = imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

type tagCollector map[string]string

func (c tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c[string(name)] = clip(strings.Trim(tag.String(), `"`), maxTagRunes)
	return nil
}

const maxTagRunes = 200

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func readExif(path string) map[string]string {
	meta := tagCollector{}

	f, err := os.Open(path)
	if err != nil {
		return meta
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return meta
	}
	_ = x.Walk(meta)
	return meta
}
