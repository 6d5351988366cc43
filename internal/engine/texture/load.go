package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
)

// Decode decodes a material image. The format is chosen by the file
// extension of name for TGA, which has no magic number, and sniffed
// otherwise.
func Decode(name string, data []byte) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(name), ".tga") {
		return DecodeTGA(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("texture: decoding %s: %w", name, err)
	}
	return img, nil
}

// Loader returns a function reading materials relative to dir.
func Loader(dir string) func(material string) (image.Image, error) {
	return func(material string) (image.Image, error) {
		data, err := os.ReadFile(filepath.Join(dir, material))
		if err != nil {
			return nil, err
		}
		return Decode(material, data)
	}
}

// ToRGBA converts img to a tightly packed RGBA image with its origin at
// (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
