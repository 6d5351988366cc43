// Package grid partitions a logical grid into chunks and routes every cell
// operation to the chunk that owns it.
package grid

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/engine/chunk"
	"github.com/Faultbox/gridmesh/internal/engine/layer"
	"github.com/Faultbox/gridmesh/internal/engine/profile"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
	"github.com/Faultbox/gridmesh/pkg/math"
)

var (
	ErrInvalidChunkSize = errors.New("grid: chunk size must not be negative")
	ErrEmptyGrid        = errors.New("grid: width and height must be positive")
	ErrNoLayers         = errors.New("grid: no layers configured")
	ErrDuplicateLayer   = errors.New("grid: duplicate layer name")
	ErrUnknownLayer     = errors.New("grid: unknown layer")
	ErrLengthMismatch   = errors.New("grid: coordinate and style lists differ in length")
	ErrUnknownStyle     = errors.New("grid: unresolved style reference")
)

// Sink receives sealed batches during DrawGrid.
type Sink = chunk.Sink

// Config describes a grid. The grid covers [0, Width) x [0, Height).
// A chunk size of 0, or one larger than the grid, spans the whole axis.
type Config struct {
	Shape       shape.Config
	Width       int32
	Height      int32
	ChunkWidth  int32
	ChunkHeight int32
	Layers      []layer.Config
}

// Manager owns the chunks of one grid.
type Manager struct {
	cfg       Config
	shape     *shape.Shape
	chunkSize shape.Coord
	layers    map[string]int

	chunks []*chunk.Chunk
	index  map[uint64]*chunk.Chunk

	styles sync.Map // *style.Style -> struct{}

	log     *zap.Logger
	prof    profile.Profiler
	workers int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger. Chunks log through a named child.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithProfiler injects a profiler for bulk operations.
func WithProfiler(p profile.Profiler) Option {
	return func(m *Manager) {
		if p != nil {
			m.prof = p
		}
	}
}

// WithWorkers bounds the goroutines used by parallel operations. 0 means
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(m *Manager) { m.workers = n }
}

// New validates cfg and creates every chunk.
func New(cfg Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		log:  zap.NewNop(),
		prof: profile.Nop{},
	}
	for _, opt := range opts {
		opt(m)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrEmptyGrid
	}
	if cfg.ChunkWidth < 0 || cfg.ChunkHeight < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidChunkSize, cfg.ChunkWidth, cfg.ChunkHeight)
	}
	if len(cfg.Layers) == 0 {
		return nil, ErrNoLayers
	}
	m.layers = make(map[string]int, len(cfg.Layers))
	for i, l := range cfg.Layers {
		if _, ok := m.layers[l.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLayer, l.Name)
		}
		m.layers[l.Name] = i
	}
	cfg.Layers = slices.Clone(cfg.Layers)

	s, err := shape.New(cfg.Shape)
	if err != nil {
		return nil, fmt.Errorf("shape: %w", err)
	}
	m.cfg = cfg
	m.shape = s
	m.chunkSize = shape.Coord{
		X: clampChunk(cfg.ChunkWidth, cfg.Width),
		Y: clampChunk(cfg.ChunkHeight, cfg.Height),
	}
	if m.chunkSize.X != cfg.ChunkWidth || m.chunkSize.Y != cfg.ChunkHeight {
		m.log.Debug("chunk size clamped",
			zap.Int32("requestedWidth", cfg.ChunkWidth),
			zap.Int32("requestedHeight", cfg.ChunkHeight),
			zap.Stringer("size", m.chunkSize))
	}

	if err := m.createChunks(); err != nil {
		return nil, err
	}
	m.log.Info("grid created",
		zap.Stringer("shape", s.Kind()),
		zap.Int32("width", cfg.Width),
		zap.Int32("height", cfg.Height),
		zap.Stringer("chunkSize", m.chunkSize),
		zap.Int("chunks", len(m.chunks)))
	return m, nil
}

func clampChunk(size, limit int32) int32 {
	if size <= 0 || size > limit {
		return limit
	}
	return size
}

// createChunks builds ceil(size/chunk) chunks per axis in row-major order.
func (m *Manager) createChunks() error {
	cols := ceilDiv(m.cfg.Width, m.chunkSize.X)
	rows := ceilDiv(m.cfg.Height, m.chunkSize.Y)
	chunks := make([]*chunk.Chunk, 0, int(cols)*int(rows))
	index := make(map[uint64]*chunk.Chunk, cap(chunks))
	clog := m.log.Named("chunk")

	for row := range rows {
		for col := range cols {
			start := shape.Coord{X: col * m.chunkSize.X, Y: row * m.chunkSize.Y}
			end := shape.Coord{
				X: min(start.X+m.chunkSize.X, m.cfg.Width),
				Y: min(start.Y+m.chunkSize.Y, m.cfg.Height),
			}
			c, err := chunk.New(m.shape, shape.Rect{Start: start, End: end}, m.cfg.Layers, chunk.WithLogger(clog))
			if err != nil {
				return fmt.Errorf("chunk %v: %w", start, err)
			}
			chunks = append(chunks, c)
			index[start.Key()] = c
		}
	}
	m.chunks = chunks
	m.index = index
	return nil
}

func ceilDiv(a, b int32) int32 {
	return (a + b - 1) / b
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Config returns the active configuration.
func (m *Manager) Config() Config { return m.cfg }

// Shape returns the active shape.
func (m *Manager) Shape() *shape.Shape { return m.shape }

// ChunkSize returns the effective chunk size.
func (m *Manager) ChunkSize() shape.Coord { return m.chunkSize }

// Bounds returns the coordinate rectangle of the grid.
func (m *Manager) Bounds() shape.Rect {
	return shape.Rect{End: shape.Coord{X: m.cfg.Width, Y: m.cfg.Height}}
}

// WorldBounds returns the local-space bounds of every cell.
func (m *Manager) WorldBounds() shape.Bounds {
	return m.shape.RangeBounds(m.Bounds())
}

// Layers returns the layer names in configuration order.
func (m *Manager) Layers() []string {
	out := make([]string, len(m.cfg.Layers))
	for i, l := range m.cfg.Layers {
		out[i] = l.Name
	}
	return out
}

// HasLayer reports whether name is a configured layer.
func (m *Manager) HasLayer(name string) bool {
	_, ok := m.layers[name]
	return ok
}

// Chunks returns every chunk in row-major order.
func (m *Manager) Chunks() []*chunk.Chunk { return m.chunks }

// ChunkByOrigin returns the chunk starting at start, or nil.
func (m *Manager) ChunkByOrigin(start shape.Coord) *chunk.Chunk {
	return m.index[start.Key()]
}

// ChunkAt returns the chunk owning c, or nil outside the grid.
func (m *Manager) ChunkAt(c shape.Coord) *chunk.Chunk {
	if !m.Bounds().Contains(c) {
		return nil
	}
	return m.index[m.chunkStart(c).Key()]
}

func (m *Manager) chunkStart(c shape.Coord) shape.Coord {
	return shape.Coord{
		X: floorDiv(c.X, m.chunkSize.X) * m.chunkSize.X,
		Y: floorDiv(c.Y, m.chunkSize.Y) * m.chunkSize.Y,
	}
}

// GridCoordinate returns the cell at local position p, or shape.Invalid
// when p is outside every cell of the grid.
func (m *Manager) GridCoordinate(p math.Vec3) shape.Coord {
	c := m.shape.GridCoordinate(p)
	if !m.Bounds().Contains(c) {
		return shape.Invalid
	}
	return c
}

// TesselatedPosition returns the local position of cell c.
func (m *Manager) TesselatedPosition(c shape.Coord) math.Vec3 {
	return m.shape.TesselatedPosition(c)
}

// InsertVisualData assigns s to c on the named layer.
func (m *Manager) InsertVisualData(layerName string, c shape.Coord, s *style.Style) bool {
	ch := m.ChunkAt(c)
	if ch == nil || !ch.InsertUnchecked(layerName, c, s) {
		return false
	}
	m.styles.Store(s, struct{}{})
	return true
}

// RemoveVisualData resets c to the layer's default style.
func (m *Manager) RemoveVisualData(layerName string, c shape.Coord) bool {
	ch := m.ChunkAt(c)
	if ch == nil || !ch.Remove(layerName, c) {
		return false
	}
	if d := m.cfg.Layers[m.layers[layerName]].Default; d != nil {
		m.styles.Store(d, struct{}{})
	}
	return true
}

// DeleteShape vacates c on the named layer.
func (m *Manager) DeleteShape(layerName string, c shape.Coord) bool {
	ch := m.ChunkAt(c)
	return ch != nil && ch.Delete(layerName, c)
}

// VisualDataAt returns the style at c on the named layer, or nil.
func (m *Manager) VisualDataAt(layerName string, c shape.Coord) *style.Style {
	ch := m.ChunkAt(c)
	if ch == nil {
		return nil
	}
	return ch.VisualDataAt(layerName, c)
}

// Len returns the number of assigned cells across every layer.
func (m *Manager) Len() int {
	n := 0
	for _, c := range m.chunks {
		n += c.Len()
	}
	return n
}

// Styles returns every style ever assigned through the manager, ordered by
// ID.
func (m *Manager) Styles() []*style.Style {
	var out []*style.Style
	m.styles.Range(func(k, _ any) bool {
		out = append(out, k.(*style.Style))
		return true
	})
	slices.SortFunc(out, func(a, b *style.Style) int { return cmp.Compare(a.ID(), b.ID()) })
	return out
}

// SetKeyMode switches the grouping rule of a layer in every chunk.
func (m *Manager) SetKeyMode(layerName string, mode style.KeyMode) error {
	i, ok := m.layers[layerName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLayer, layerName)
	}
	if m.cfg.Layers[i].KeyMode == mode {
		return nil
	}
	m.cfg.Layers[i].KeyMode = mode
	for _, c := range m.chunks {
		c.SetKeyMode(layerName, mode)
	}
	m.log.Info("key mode changed", zap.String("layer", layerName), zap.Stringer("mode", mode))
	return nil
}

// Reshape rebuilds every chunk's geometry with a new shape configuration.
// The assignments are kept. On error no chunk is touched.
func (m *Manager) Reshape(cfg shape.Config) error {
	s, err := shape.New(cfg)
	if err != nil {
		return fmt.Errorf("shape: %w", err)
	}
	for _, c := range m.chunks {
		if err := c.CanShape(s); err != nil {
			return fmt.Errorf("chunk %v: %w", c.Start(), err)
		}
	}
	for _, c := range m.chunks {
		if err := c.SetShape(s); err != nil {
			return fmt.Errorf("chunk %v: %w", c.Start(), err)
		}
	}
	m.shape = s
	m.cfg.Shape = cfg
	m.log.Info("grid reshaped", zap.Stringer("shape", s.Kind()))
	return nil
}

// Clear destroys every chunk and replaces it with an empty one. The next
// DrawGrid submits empty batch lists for every layer.
func (m *Manager) Clear() error {
	for _, c := range m.chunks {
		c.Clear()
	}
	m.styles.Clear()
	if err := m.createChunks(); err != nil {
		return err
	}
	m.log.Info("grid cleared")
	return nil
}
