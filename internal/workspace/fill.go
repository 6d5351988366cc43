package workspace

import (
	"fmt"
	"math/rand/v2"

	"github.com/Faultbox/gridmesh/internal/config"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
)

// Fill applies every configured fill rule in order and returns the number
// of cells painted.
func (w *Workspace) Fill() (int, error) {
	total := 0
	for i, rule := range w.Config.Fill {
		n, err := w.FillRule(rule)
		if err != nil {
			return total, fmt.Errorf("fill[%d]: %w", i, err)
		}
		total += n
	}
	return total, nil
}

// FillRule paints one rule over the whole grid with a single block insert.
func (w *Workspace) FillRule(rule config.FillRule) (int, error) {
	styles := make([]*style.Style, len(rule.Styles))
	for i, name := range rule.Styles {
		if styles[i] = w.Palette.Get(name); styles[i] == nil {
			return 0, fmt.Errorf("unknown style %q", name)
		}
	}
	if len(styles) == 0 {
		return 0, fmt.Errorf("rule for layer %q has no styles", rule.Layer)
	}

	pick, err := picker(rule, styles)
	if err != nil {
		return 0, err
	}

	bounds := w.Grid.Bounds()
	coords := make([]shape.Coord, 0, bounds.Count())
	assigned := make([]*style.Style, 0, bounds.Count())
	bounds.Each(func(c shape.Coord) {
		if s := pick(c); s != nil {
			coords = append(coords, c)
			assigned = append(assigned, s)
		}
	})
	return w.Grid.InsertPositionBlock(rule.Layer, coords, assigned)
}

// picker returns the style a pattern assigns to a cell, or nil to skip it.
func picker(rule config.FillRule, styles []*style.Style) (func(shape.Coord) *style.Style, error) {
	n := int32(len(styles))
	switch rule.Pattern {
	case "solid":
		return func(shape.Coord) *style.Style { return styles[0] }, nil
	case "checker":
		return func(c shape.Coord) *style.Style { return styles[mod(c.X+c.Y, n)] }, nil
	case "stripes":
		return func(c shape.Coord) *style.Style { return styles[mod(c.Y, n)] }, nil
	case "random":
		density := rule.Density
		if density == 0 {
			density = 1
		}
		rng := rand.New(rand.NewPCG(uint64(rule.Seed), uint64(rule.Seed)^0x9e3779b97f4a7c15))
		return func(shape.Coord) *style.Style {
			if rng.Float64() >= density {
				return nil
			}
			return styles[rng.IntN(len(styles))]
		}, nil
	}
	return nil, fmt.Errorf("unknown pattern %q", rule.Pattern)
}

func mod(a, n int32) int32 {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
