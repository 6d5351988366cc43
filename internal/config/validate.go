package config

import (
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
	"github.com/Faultbox/gridmesh/internal/logger"
	"github.com/Faultbox/gridmesh/internal/palette"
)

// Fill patterns.
var patterns = []string{"solid", "checker", "stripes", "random"}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	g := c.Grid
	if g.Width <= 0 || g.Height <= 0 {
		add("grid: size %dx%d must be positive", g.Width, g.Height)
	}
	if g.ChunkWidth < 0 || g.ChunkHeight < 0 {
		add("grid: chunk size %dx%d must not be negative", g.ChunkWidth, g.ChunkHeight)
	}
	if _, err := shape.ParseKind(g.Shape); err != nil {
		add("grid: %w", err)
	}
	if _, err := shape.ParseOrientation(g.Orientation); err != nil {
		add("grid: %w", err)
	}
	if g.CellWidth <= 0 || g.CellHeight <= 0 {
		add("grid: cell size %gx%g must be positive", g.CellWidth, g.CellHeight)
	}
	if g.Workers < 0 {
		add("grid: workers %d must not be negative", g.Workers)
	}

	styles := make(map[string]bool, len(c.Styles))
	if _, err := palette.New(c.Styles); err != nil {
		errs = multierr.Append(errs, err)
	}
	for _, s := range c.Styles {
		styles[s.Name] = true
	}

	if len(c.Layers) == 0 {
		add("layers: at least one layer is required")
	}
	layers := make(map[string]bool, len(c.Layers))
	for i, l := range c.Layers {
		switch {
		case l.Name == "":
			add("layers[%d]: name is required", i)
		case layers[l.Name]:
			add("layers[%d]: duplicate name %q", i, l.Name)
		}
		layers[l.Name] = true
		if _, err := style.ParseKeyMode(l.KeyMode); err != nil {
			add("layer %q: %w", l.Name, err)
		}
		if l.Default != "" && !styles[l.Default] {
			add("layer %q: unknown default style %q", l.Name, l.Default)
		}
		if l.VertexCeiling < 0 {
			add("layer %q: vertex ceiling %d must not be negative", l.Name, l.VertexCeiling)
		}
		if l.Workers < 0 {
			add("layer %q: workers %d must not be negative", l.Name, l.Workers)
		}
	}

	for i, f := range c.Fill {
		if !layers[f.Layer] {
			add("fill[%d]: unknown layer %q", i, f.Layer)
		}
		if !slices.Contains(patterns, f.Pattern) {
			add("fill[%d]: unknown pattern %q", i, f.Pattern)
		}
		if len(f.Styles) == 0 {
			add("fill[%d]: at least one style is required", i)
		}
		for _, name := range f.Styles {
			if !styles[name] {
				add("fill[%d]: unknown style %q", i, name)
			}
		}
		if f.Density < 0 || f.Density > 1 {
			add("fill[%d]: density %g must be within [0, 1]", i, f.Density)
		}
	}

	p := c.Preview
	if p.Width <= 0 || p.Height <= 0 {
		add("preview: size %dx%d must be positive", p.Width, p.Height)
	}
	if p.Supersample < 0 {
		add("preview: supersample %d must not be negative", p.Supersample)
	}
	if _, err := palette.ParseColor(p.Background); err != nil {
		add("preview: %w", err)
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		add("logging: %w", err)
	}
	return errs
}
