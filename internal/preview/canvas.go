// Package preview rasterizes grid batches into an image, for headless
// rendering and snapshots.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"slices"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/Faultbox/gridmesh/internal/engine/mesh"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
	"github.com/Faultbox/gridmesh/pkg/math"
)

// Options controls the output image.
type Options struct {
	Width       int
	Height      int
	Margin      int
	Background  color.RGBA
	Supersample int  // render at N times the size and downscale, 0 or 1 disables
	Legend      bool // draw one swatch and name per style
}

// DefaultOptions returns a 1024x1024 image with a dark background.
func DefaultOptions() Options {
	return Options{
		Width:       1024,
		Height:      1024,
		Margin:      16,
		Background:  color.RGBA{24, 24, 28, 255},
		Supersample: 2,
	}
}

type slot struct {
	chunk shape.Coord
	layer string
}

// Canvas is a grid sink that keeps the last submitted batches of every
// chunk layer and rasterizes them on demand.
type Canvas struct {
	shape  *shape.Shape
	bounds shape.Bounds
	layers []string
	opts   Options

	slots map[slot][]*mesh.Batch
}

// NewCanvas creates a canvas framing bounds. layers fixes the paint order.
func NewCanvas(s *shape.Shape, bounds shape.Bounds, layers []string, opts Options) (*Canvas, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("preview: invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	return &Canvas{
		shape:  s,
		bounds: bounds,
		layers: slices.Clone(layers),
		opts:   opts,
		slots:  make(map[slot][]*mesh.Batch),
	}, nil
}

// Submit records the batches of one chunk layer, replacing earlier ones.
func (c *Canvas) Submit(chunk shape.Coord, layer string, batches []*mesh.Batch) error {
	key := slot{chunk, layer}
	if len(batches) == 0 {
		delete(c.slots, key)
		return nil
	}
	c.slots[key] = batches
	return nil
}

// Batches returns the number of batches currently held.
func (c *Canvas) Batches() int {
	n := 0
	for _, b := range c.slots {
		n += len(b)
	}
	return n
}

// transform maps the flattened local plane to pixels, y pointing down.
type transform struct {
	scale  float32
	minX   float32
	maxY   float32
	offset math.Vec2
}

func (t transform) apply(p math.Vec2) (float32, float32) {
	return (p.X-t.minX)*t.scale + t.offset.X, (t.maxY-p.Y)*t.scale + t.offset.Y
}

func (c *Canvas) fit(width, height, margin int) transform {
	lo := c.shape.Flatten(c.bounds.Min)
	hi := c.shape.Flatten(c.bounds.Max)
	size := hi.Sub(lo)

	availW := float32(width - 2*margin)
	availH := float32(height - 2*margin)
	scale := float32(1)
	if size.X > 0 && size.Y > 0 {
		scale = min(availW/size.X, availH/size.Y)
	}
	return transform{
		scale: scale,
		minX:  lo.X,
		maxY:  hi.Y,
		offset: math.Vec2{
			X: float32(margin) + (availW-size.X*scale)/2,
			Y: float32(margin) + (availH-size.Y*scale)/2,
		},
	}
}

// Render rasterizes every held batch.
func (c *Canvas) Render() *image.RGBA {
	ss := c.opts.Supersample
	w, h := c.opts.Width*ss, c.opts.Height*ss

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c.opts.Background), image.Point{}, draw.Src)

	tf := c.fit(w, h, c.opts.Margin*ss)
	z := vector.NewRasterizer(w, h)

	for _, layer := range c.layers {
		for _, key := range c.sortedSlots(layer) {
			origin := c.shape.Flatten(c.shape.TesselatedPosition(key.chunk))
			for _, b := range c.slots[key] {
				c.paintBatch(img, z, tf, origin, b)
			}
		}
	}

	out := img
	if ss > 1 {
		out = image.NewRGBA(image.Rect(0, 0, c.opts.Width, c.opts.Height))
		xdraw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	}
	if c.opts.Legend {
		c.drawLegend(out)
	}
	return out
}

func (c *Canvas) sortedSlots(layer string) []slot {
	var keys []slot
	for k := range c.slots {
		if k.layer == layer {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b slot) int {
		if a.chunk.Y != b.chunk.Y {
			return int(a.chunk.Y - b.chunk.Y)
		}
		return int(a.chunk.X - b.chunk.X)
	})
	return keys
}

// paintBatch fills the triangles of every binding. Material bindings use
// the style color; flat color bindings group triangles by vertex color.
func (c *Canvas) paintBatch(dst *image.RGBA, z *vector.Rasterizer, tf transform, origin math.Vec2, b *mesh.Batch) {
	buf := b.Buffer
	for _, bind := range b.Bindings {
		tris := buf.Indices[bind.IndexStart : bind.IndexStart+bind.IndexCount]
		if bind.Style.Mode() == style.Material {
			c.fill(dst, z, tf, origin, buf, tris, bind.Style.Color())
			continue
		}

		byColor := make(map[color.RGBA][]uint32)
		var order []color.RGBA
		for i := 0; i+2 < len(tris); i += 3 {
			col := buf.Colors[tris[i]]
			if _, ok := byColor[col]; !ok {
				order = append(order, col)
			}
			byColor[col] = append(byColor[col], tris[i:i+3]...)
		}
		for _, col := range order {
			c.fill(dst, z, tf, origin, buf, byColor[col], col)
		}
	}
}

func (c *Canvas) fill(dst *image.RGBA, z *vector.Rasterizer, tf transform, origin math.Vec2, buf *mesh.Buffer, tris []uint32, col color.RGBA) {
	if len(tris) < 3 || col.A == 0 {
		return
	}
	b := dst.Bounds()
	z.Reset(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	for i := 0; i+2 < len(tris); i += 3 {
		for k := 0; k < 3; k++ {
			p := c.shape.Flatten(buf.Positions[tris[i+k]]).Add(origin)
			x, y := tf.apply(p)
			if k == 0 {
				z.MoveTo(x, y)
			} else {
				z.LineTo(x, y)
			}
		}
		z.ClosePath()
	}
	z.Draw(dst, b, image.NewUniform(col), image.Point{})
}

// legendStyles collects every style bound in the held batches, ordered by
// ID. Flat color cells show up under the shared color binding.
func (c *Canvas) legendStyles() []*style.Style {
	seen := make(map[*style.Style]bool)
	var out []*style.Style
	for _, batches := range c.slots {
		for _, b := range batches {
			for _, bind := range b.Bindings {
				if !seen[bind.Style] {
					seen[bind.Style] = true
					out = append(out, bind.Style)
				}
			}
		}
	}
	slices.SortFunc(out, func(a, b *style.Style) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

func (c *Canvas) drawLegend(dst *image.RGBA) {
	face, err := legendFace()
	if err != nil {
		return
	}
	defer face.Close()

	const swatch, pad, lineH = 12, 4, 18
	y := dst.Bounds().Max.Y - pad
	for _, s := range slices.Backward(c.legendStyles()) {
		r := image.Rect(pad, y-swatch, pad+swatch, y)
		draw.Draw(dst, r, image.NewUniform(s.Color()), image.Point{}, draw.Src)

		d := &font.Drawer{
			Dst:  dst,
			Src:  image.White,
			Face: face,
			Dot:  fixed.P(pad*2+swatch, y-2),
		}
		d.DrawString(s.Name())
		y -= lineH
	}
}

func legendFace() (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
