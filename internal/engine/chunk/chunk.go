// Package chunk implements the rectangular sub-region of the grid that owns
// one mesh layer per logical layer and is the unit of parallel work.
package chunk

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/engine/layer"
	"github.com/Faultbox/gridmesh/internal/engine/mesh"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
	"github.com/Faultbox/gridmesh/pkg/math"
)

var (
	ErrEmptyBounds    = errors.New("chunk: empty bounds")
	ErrNoLayers       = errors.New("chunk: no layers configured")
	ErrDuplicateLayer = errors.New("chunk: duplicate layer name")
)

// State is the lifecycle state of a chunk.
type State uint8

const (
	Uninitialized State = iota
	Initialized
	Populated
	Cleared
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Populated:
		return "populated"
	case Cleared:
		return "cleared"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Sink receives the sealed batches of one chunk layer. Implementations are
// called from a single goroutine. A nil or empty batch list means the layer
// no longer draws anything.
type Sink interface {
	Submit(chunk shape.Coord, layer string, batches []*mesh.Batch) error
}

// Chunk owns the layers of one grid rectangle.
type Chunk struct {
	bounds shape.Rect
	shape  *shape.Shape
	origin math.Vec3
	state  State
	log    *zap.Logger

	layers  []*layer.Layer
	byName  map[string]*layer.Layer
	pending map[string]bool // layers with batches not yet submitted
}

// Option configures a Chunk.
type Option func(*Chunk)

// WithLogger sets the chunk logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chunk) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates an initialized chunk covering bounds.
func New(s *shape.Shape, bounds shape.Rect, layers []layer.Config, opts ...Option) (*Chunk, error) {
	if bounds.Empty() {
		return nil, ErrEmptyBounds
	}
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}

	c := &Chunk{
		bounds:  bounds,
		shape:   s,
		origin:  s.TesselatedPosition(bounds.Start),
		log:     zap.NewNop(),
		byName:  make(map[string]*layer.Layer, len(layers)),
		pending: make(map[string]bool, len(layers)),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, cfg := range layers {
		if _, ok := c.byName[cfg.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLayer, cfg.Name)
		}
		l, err := layer.New(cfg, s, c.origin, layer.WithLogger(c.log))
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", cfg.Name, err)
		}
		c.layers = append(c.layers, l)
		c.byName[cfg.Name] = l
	}
	c.state = Initialized
	return c, nil
}

func (c *Chunk) Bounds() shape.Rect { return c.bounds }
func (c *Chunk) Start() shape.Coord { return c.bounds.Start }
func (c *Chunk) Origin() math.Vec3  { return c.origin }
func (c *Chunk) State() State       { return c.state }
func (c *Chunk) Shape() *shape.Shape { return c.shape }

// Contains reports whether coord lies inside the chunk.
func (c *Chunk) Contains(coord shape.Coord) bool {
	return c.bounds.Contains(coord)
}

// Layer returns the named layer, or nil.
func (c *Chunk) Layer(name string) *layer.Layer {
	return c.byName[name]
}

// Layers returns the layers in configuration order.
func (c *Chunk) Layers() []*layer.Layer {
	return c.layers
}

// Len returns the number of assigned cells across all layers.
func (c *Chunk) Len() int {
	n := 0
	for _, l := range c.layers {
		n += l.Len()
	}
	return n
}

// Insert assigns s to coord on the named layer after checking containment.
func (c *Chunk) Insert(layerName string, coord shape.Coord, s *style.Style) bool {
	if !c.Contains(coord) {
		return false
	}
	return c.InsertUnchecked(layerName, coord, s)
}

// InsertUnchecked is Insert without the containment check, for callers that
// already resolved coord to this chunk.
func (c *Chunk) InsertUnchecked(layerName string, coord shape.Coord, s *style.Style) bool {
	l := c.writable(layerName)
	if l == nil || !l.InsertVisualData(coord, s) {
		return false
	}
	c.state = Populated
	return true
}

// InsertBlock inserts coords[i] with styles[i] for every i without
// containment checks. It returns the number of successful inserts.
func (c *Chunk) InsertBlock(layerName string, coords []shape.Coord, styles []*style.Style) int {
	l := c.writable(layerName)
	if l == nil {
		return 0
	}
	n := 0
	for i, coord := range coords {
		if l.InsertVisualData(coord, styles[i]) {
			n++
		}
	}
	if n > 0 {
		c.state = Populated
	}
	return n
}

// Remove resets coord to the layer's default style.
func (c *Chunk) Remove(layerName string, coord shape.Coord) bool {
	if !c.Contains(coord) {
		return false
	}
	l := c.writable(layerName)
	return l != nil && l.RemoveVisualData(coord)
}

// Delete vacates coord.
func (c *Chunk) Delete(layerName string, coord shape.Coord) bool {
	if !c.Contains(coord) {
		return false
	}
	l := c.writable(layerName)
	return l != nil && l.DeleteShape(coord)
}

// VisualDataAt returns the style at coord on the named layer, or nil.
func (c *Chunk) VisualDataAt(layerName string, coord shape.Coord) *style.Style {
	l := c.byName[layerName]
	if l == nil || !c.Contains(coord) {
		return nil
	}
	return l.VisualDataAt(coord)
}

func (c *Chunk) writable(name string) *layer.Layer {
	if c.state == Cleared {
		return nil
	}
	return c.byName[name]
}

// ComputeFusedGroups rebuilds every layer and records which ones changed.
// It touches no state outside the chunk and may run concurrently with the
// same call on other chunks.
func (c *Chunk) ComputeFusedGroups() bool {
	if c.state == Cleared {
		return false
	}
	dirty := false
	for _, l := range c.layers {
		if _, changed := l.DrawLayer(); changed {
			c.pending[l.Name()] = true
			dirty = true
		}
	}
	return dirty
}

// Flush submits the batches of every changed layer to sink. A layer whose
// submission fails stays pending and is retried on the next Flush.
func (c *Chunk) Flush(sink Sink) error {
	for _, l := range c.layers {
		if !c.pending[l.Name()] {
			continue
		}
		if err := sink.Submit(c.bounds.Start, l.Name(), l.Batches()); err != nil {
			return fmt.Errorf("chunk %v layer %q: %w", c.bounds.Start, l.Name(), err)
		}
		delete(c.pending, l.Name())
	}
	return nil
}

// Pending reports whether any layer has batches not yet submitted.
func (c *Chunk) Pending() bool { return len(c.pending) > 0 }

// WorldBounds returns the local-space bounds of the chunk's cells.
func (c *Chunk) WorldBounds() shape.Bounds {
	return c.shape.RangeBounds(c.bounds)
}

// CanShape reports whether every layer accepts s.
func (c *Chunk) CanShape(s *shape.Shape) error {
	for _, l := range c.layers {
		if err := l.CanShape(s); err != nil {
			return fmt.Errorf("layer %q: %w", l.Name(), err)
		}
	}
	return nil
}

// SetShape rebinds every layer to s. The chunk origin moves with the shape.
func (c *Chunk) SetShape(s *shape.Shape) error {
	if err := c.CanShape(s); err != nil {
		return err
	}
	c.shape = s
	c.origin = s.TesselatedPosition(c.bounds.Start)
	for _, l := range c.layers {
		if err := l.SetShape(s, c.origin); err != nil {
			return fmt.Errorf("layer %q: %w", l.Name(), err)
		}
	}
	return nil
}

// SetKeyMode switches the grouping rule of the named layer.
func (c *Chunk) SetKeyMode(layerName string, mode style.KeyMode) bool {
	l := c.writable(layerName)
	return l != nil && l.SetKeyMode(mode)
}

// Clear drops every assignment. A cleared chunk accepts no further edits.
func (c *Chunk) Clear() {
	for _, l := range c.layers {
		l.Clear()
	}
	clear(c.pending)
	c.state = Cleared
	c.log.Debug("chunk cleared", zap.Stringer("bounds", c.bounds))
}
