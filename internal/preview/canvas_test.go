package preview

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/gridmesh/internal/engine/grid"
	"github.com/Faultbox/gridmesh/internal/engine/layer"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
	white = color.RGBA{255, 255, 255, 255}
)

func drawnGrid(t *testing.T, opts Options) *Canvas {
	t.Helper()
	m, err := grid.New(grid.Config{
		Shape:       shape.Config{Kind: shape.KindRect, CellWidth: 1, CellHeight: 1},
		Width:       4,
		Height:      4,
		ChunkWidth:  2,
		ChunkHeight: 2,
		Layers:      []layer.Config{{Name: "ground"}, {Name: "marks"}},
	})
	if err != nil {
		t.Fatalf("grid.New failed: %v", err)
	}
	m.InsertVisualData("ground", shape.Coord{X: 0, Y: 0}, style.NewMaterial("brick", "brick.png", red))
	m.InsertVisualData("marks", shape.Coord{X: 3, Y: 3}, style.NewFlatColor("flag", blue))

	c, err := NewCanvas(m.Shape(), m.WorldBounds(), m.Layers(), opts)
	if err != nil {
		t.Fatalf("NewCanvas failed: %v", err)
	}
	if err := m.DrawGrid(c, false); err != nil {
		t.Fatalf("DrawGrid failed: %v", err)
	}
	return c
}

func TestRenderPaintsCells(t *testing.T) {
	c := drawnGrid(t, Options{Width: 40, Height: 40, Background: white})
	img := c.Render()

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"material cell", 2, 32, red},
		{"flat color cell", 32, 2, blue},
		{"empty cell", 20, 20, white},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := img.RGBAAt(tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
	if c.Batches() != 2 {
		t.Errorf("Batches = %d, want 2", c.Batches())
	}
}

func TestRenderSupersampleKeepsSize(t *testing.T) {
	c := drawnGrid(t, Options{Width: 40, Height: 40, Background: white, Supersample: 2, Legend: true})
	img := c.Render()
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 40 {
		t.Errorf("size = %v, want 40x40", img.Bounds())
	}
}

func TestSubmitEmptyDropsSlot(t *testing.T) {
	c := drawnGrid(t, Options{Width: 40, Height: 40, Background: white})
	c.Submit(shape.Coord{X: 0, Y: 0}, "ground", nil)
	if got := c.Render().RGBAAt(2, 32); got != white {
		t.Errorf("dropped cell still painted: %v", got)
	}
}

func TestNewCanvasRejectsEmptySize(t *testing.T) {
	s, _ := shape.New(shape.Config{Kind: shape.KindRect, CellWidth: 1, CellHeight: 1})
	if _, err := NewCanvas(s, shape.Bounds{}, nil, Options{}); err == nil {
		t.Error("NewCanvas with zero size should fail")
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "grid.png")
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, blue)

	if err := WritePNG(path, img); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if r, g, b, _ := decoded.At(1, 1).RGBA(); r != 0 || g != 0 || b != 0xffff {
		t.Errorf("pixel = %v", decoded.At(1, 1))
	}
}

func TestFromPixelsFlipsRows(t *testing.T) {
	// Two rows, bottom row red, top row blue, as GL reads them.
	pixels := []byte{255, 0, 0, 255, 0, 0, 255, 255}
	img, err := FromPixels(pixels, 1, 2)
	if err != nil {
		t.Fatalf("FromPixels failed: %v", err)
	}
	if img.RGBAAt(0, 0) != blue || img.RGBAAt(0, 1) != red {
		t.Errorf("rows not flipped: top %v bottom %v", img.RGBAAt(0, 0), img.RGBAAt(0, 1))
	}
	if _, err := FromPixels(pixels, 2, 2); err == nil {
		t.Error("size mismatch should fail")
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := Filename("shots", "grid", now); got != filepath.Join("shots", "grid_2025-03-04_05-06-07.png") {
		t.Errorf("Filename = %q", got)
	}
}
