// Package workspace assembles a grid manager and its palette from
// configuration.
package workspace

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/config"
	"github.com/Faultbox/gridmesh/internal/engine/grid"
	"github.com/Faultbox/gridmesh/internal/engine/layer"
	"github.com/Faultbox/gridmesh/internal/engine/profile"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
	"github.com/Faultbox/gridmesh/internal/palette"
)

// Workspace is a configured grid together with the styles it can paint.
type Workspace struct {
	Config  *config.Config
	Palette *palette.Palette
	Grid    *grid.Manager
}

// ShapeConfig converts the grid section to a shape configuration.
func ShapeConfig(g config.GridConfig) (shape.Config, error) {
	kind, err := shape.ParseKind(g.Shape)
	if err != nil {
		return shape.Config{}, err
	}
	orient, err := shape.ParseOrientation(g.Orientation)
	if err != nil {
		return shape.Config{}, err
	}
	return shape.Config{
		Kind:        kind,
		Orientation: orient,
		CellWidth:   g.CellWidth,
		CellHeight:  g.CellHeight,
		GapX:        g.GapX,
		GapY:        g.GapY,
	}, nil
}

// GridConfig converts cfg to a manager configuration. Layer defaults are
// resolved against p.
func GridConfig(cfg *config.Config, p *palette.Palette) (grid.Config, error) {
	sc, err := ShapeConfig(cfg.Grid)
	if err != nil {
		return grid.Config{}, err
	}
	layers := make([]layer.Config, len(cfg.Layers))
	for i, lc := range cfg.Layers {
		mode, err := style.ParseKeyMode(lc.KeyMode)
		if err != nil {
			return grid.Config{}, fmt.Errorf("layer %q: %w", lc.Name, err)
		}
		var def *style.Style
		if lc.Default != "" {
			if def = p.Get(lc.Default); def == nil {
				return grid.Config{}, fmt.Errorf("layer %q: unknown default style %q", lc.Name, lc.Default)
			}
		}
		layers[i] = layer.Config{
			Name:          lc.Name,
			KeyMode:       mode,
			Default:       def,
			VertexCeiling: lc.VertexCeiling,
			Workers:       lc.Workers,
		}
	}
	return grid.Config{
		Shape:       sc,
		Width:       cfg.Grid.Width,
		Height:      cfg.Grid.Height,
		ChunkWidth:  cfg.Grid.ChunkWidth,
		ChunkHeight: cfg.Grid.ChunkHeight,
		Layers:      layers,
	}, nil
}

// New builds the palette and an empty grid. It does not apply fill rules.
func New(cfg *config.Config, log *zap.Logger, prof profile.Profiler) (*Workspace, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if prof == nil {
		prof = profile.Nop{}
	}
	p, err := palette.New(cfg.Styles)
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	gc, err := GridConfig(cfg, p)
	if err != nil {
		return nil, err
	}
	m, err := grid.New(gc,
		grid.WithLogger(log.Named("grid")),
		grid.WithProfiler(prof),
		grid.WithWorkers(cfg.Grid.Workers))
	if err != nil {
		return nil, err
	}
	return &Workspace{Config: cfg, Palette: p, Grid: m}, nil
}

// Draw fuses every pending change and hands it to sink.
func (w *Workspace) Draw(sink grid.Sink) error {
	return w.Grid.DrawGrid(sink, w.Config.Grid.Parallel)
}
