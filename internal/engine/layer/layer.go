// Package layer groups the cells of one logical layer by style, rebuilds the
// per-style fused buffers and packs them into draw batches.
package layer

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/engine/fuser"
	"github.com/Faultbox/gridmesh/internal/engine/mesh"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
	"github.com/Faultbox/gridmesh/pkg/math"
)

// ErrNoName is returned for a layer configured without a name.
var ErrNoName = errors.New("layer: name is required")

// Config describes one logical layer.
type Config struct {
	Name          string
	KeyMode       style.KeyMode
	Default       *style.Style // re-inserted by RemoveVisualData
	VertexCeiling int          // 0 means mesh.DefaultVertexCeiling
	Workers       int          // fuser rebuild workers, 0 or 1 rebuilds sequentially
}

// Cell is one coordinate/style assignment.
type Cell struct {
	Coord shape.Coord
	Style *style.Style
}

// group is the set of material cells sharing one grouping key.
type group struct {
	key     style.Key
	rep     *style.Style         // binding handed to the renderer
	members map[*style.Style]int // cells per member style
	fuser   *fuser.Fuser
}

// Layer owns all cells of one layer inside one chunk. It is not safe for
// concurrent use.
type Layer struct {
	cfg    Config
	keyFn  style.KeyFunc
	shape  *shape.Shape
	origin math.Vec3
	log    *zap.Logger

	cells    map[uint64]*style.Style
	byStyle  map[*style.Style]map[uint64]struct{}
	styleKey map[*style.Style]style.Key
	groups   map[style.Key]*group

	colorFuser *fuser.Fuser
	colorStyle *style.Style
	queue      *style.Queue

	batches []*mesh.Batch
	stale   bool
}

// Option configures a Layer.
type Option func(*Layer)

// WithLogger sets the layer logger.
func WithLogger(l *zap.Logger) Option {
	return func(ly *Layer) {
		if l != nil {
			ly.log = l
		}
	}
}

// New creates an empty layer whose geometry is emitted relative to origin.
func New(cfg Config, s *shape.Shape, origin math.Vec3, opts ...Option) (*Layer, error) {
	if cfg.Name == "" {
		return nil, ErrNoName
	}
	if cfg.VertexCeiling <= 0 {
		cfg.VertexCeiling = mesh.DefaultVertexCeiling
	}

	l := &Layer{
		cfg:        cfg,
		keyFn:      cfg.KeyMode.KeyFunc(),
		shape:      s,
		origin:     origin,
		log:        zap.NewNop(),
		colorStyle: style.NewFlatColor(cfg.Name+"/vertex-color", fuser.White),
		queue:      style.NewQueue(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(zap.String("layer", cfg.Name))

	if err := l.reset(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Layer) reset() error {
	cf, err := l.newFuser(true)
	if err != nil {
		return err
	}
	l.colorFuser = cf
	l.cells = make(map[uint64]*style.Style)
	l.byStyle = make(map[*style.Style]map[uint64]struct{})
	l.styleKey = make(map[*style.Style]style.Key)
	l.groups = make(map[style.Key]*group)
	l.batches = nil
	l.stale = true
	return nil
}

func (l *Layer) newFuser(colorMode bool) (*fuser.Fuser, error) {
	return fuser.New(l.shape, l.origin, l.cfg.VertexCeiling, colorMode, fuser.WithLogger(l.log))
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.cfg.Name }

// Config returns the layer configuration.
func (l *Layer) Config() Config { return l.cfg }

// KeyMode returns the active grouping rule.
func (l *Layer) KeyMode() style.KeyMode { return l.cfg.KeyMode }

// Len returns the number of assigned cells.
func (l *Layer) Len() int { return len(l.cells) }

// VisualDataAt returns the style at c, or nil for an empty cell.
func (l *Layer) VisualDataAt(c shape.Coord) *style.Style {
	return l.cells[c.Key()]
}

// InsertVisualData assigns s to c, replacing any previous assignment.
func (l *Layer) InsertVisualData(c shape.Coord, s *style.Style) bool {
	if s == nil {
		return false
	}
	key := c.Key()
	if old, ok := l.cells[key]; ok {
		if old == s {
			return true
		}
		if !l.DeleteShape(c) {
			return false
		}
	}

	l.cells[key] = s
	members, tracked := l.byStyle[s]
	if !tracked {
		members = make(map[uint64]struct{})
		l.byStyle[s] = members
		s.Subscribe(l.queue)
	}
	members[key] = struct{}{}

	if s.Mode() == style.FlatColor {
		l.colorFuser.Insert(c, s.Color())
		return true
	}

	k, ok := l.styleKey[s]
	if !ok {
		k = l.keyFn(s)
		l.styleKey[s] = k
	}
	g, err := l.groupFor(k, s)
	if err != nil {
		l.log.Error("creating fuser", zap.Error(err))
		l.forget(key, s)
		return false
	}
	g.members[s]++
	g.fuser.Insert(c, s.Color())
	return true
}

// RemoveVisualData resets c to the configured default style. Without a
// default style the cell is deleted.
func (l *Layer) RemoveVisualData(c shape.Coord) bool {
	if l.cfg.Default == nil {
		return l.DeleteShape(c)
	}
	return l.InsertVisualData(c, l.cfg.Default)
}

// DeleteShape vacates c. A fuser left empty is pruned.
func (l *Layer) DeleteShape(c shape.Coord) bool {
	key := c.Key()
	s, ok := l.cells[key]
	if !ok {
		return false
	}

	if s.Mode() == style.FlatColor {
		if !l.colorFuser.Remove(c) {
			return false
		}
		l.forget(key, s)
		return true
	}

	k := l.styleKey[s]
	g := l.groups[k]
	if g == nil || !g.fuser.Remove(c) {
		l.log.Warn("removal failed", zap.Stringer("coord", c), zap.Stringer("style", s))
		return false
	}
	l.leaveGroup(g, s, 1)
	l.forget(key, s)
	return true
}

// forget drops the coordinate and style lookup entries of key.
func (l *Layer) forget(key uint64, s *style.Style) {
	delete(l.cells, key)
	members := l.byStyle[s]
	delete(members, key)
	if len(members) == 0 {
		delete(l.byStyle, s)
		delete(l.styleKey, s)
		s.Unsubscribe(l.queue)
	}
}

func (l *Layer) groupFor(k style.Key, s *style.Style) (*group, error) {
	if g, ok := l.groups[k]; ok {
		return g, nil
	}
	f, err := l.newFuser(false)
	if err != nil {
		return nil, err
	}
	g := &group{key: k, rep: s, members: make(map[*style.Style]int), fuser: f}
	l.groups[k] = g
	return g, nil
}

// leaveGroup removes n cells of s from g's membership and prunes g once empty.
func (l *Layer) leaveGroup(g *group, s *style.Style, n int) {
	g.members[s] -= n
	if g.members[s] <= 0 {
		delete(g.members, s)
		if g.rep == s {
			g.rep = nil
			for m := range g.members {
				if g.rep == nil || m.ID() < g.rep.ID() {
					g.rep = m
				}
			}
		}
	}
	if g.fuser.Len() == 0 {
		delete(l.groups, g.key)
		l.stale = true
	}
}

// Cells returns every assignment ordered by row then column.
func (l *Layer) Cells() []Cell {
	out := make([]Cell, 0, len(l.cells))
	for key, s := range l.cells {
		out = append(out, Cell{Coord: shape.FromKey(key), Style: s})
	}
	slices.SortFunc(out, func(a, b Cell) int {
		if c := cmp.Compare(a.Coord.Y, b.Coord.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.Coord.X, b.Coord.X)
	})
	return out
}

// Styles returns every style currently referenced by the layer.
func (l *Layer) Styles() []*style.Style {
	out := make([]*style.Style, 0, len(l.byStyle))
	for s := range l.byStyle {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *style.Style) int { return cmp.Compare(a.ID(), b.ID()) })
	return out
}

// FuserCount returns the number of live fusers, counting the shared color
// fuser only when it holds cells.
func (l *Layer) FuserCount() int {
	n := len(l.groups)
	if l.colorFuser.Len() > 0 {
		n++
	}
	return n
}

// FuserFor returns the fuser holding the cells of s, or nil.
func (l *Layer) FuserFor(s *style.Style) *fuser.Fuser {
	if _, ok := l.byStyle[s]; !ok {
		return nil
	}
	if s.Mode() == style.FlatColor {
		return l.colorFuser
	}
	if g := l.groups[l.styleKey[s]]; g != nil {
		return g.fuser
	}
	return nil
}

// SetKeyMode switches the grouping rule and regroups every assignment.
// It reports whether anything was regrouped.
func (l *Layer) SetKeyMode(mode style.KeyMode) bool {
	if mode == l.cfg.KeyMode {
		return false
	}
	cells := l.Cells()
	l.unsubscribeAll()
	l.cfg.KeyMode = mode
	l.keyFn = mode.KeyFunc()
	if err := l.reset(); err != nil {
		// reset only fails on a ceiling error, which New already ruled out.
		l.log.Error("resetting layer", zap.Error(err))
		return false
	}
	for _, c := range cells {
		l.InsertVisualData(c.Coord, c.Style)
	}
	l.log.Debug("key mode switched", zap.Stringer("mode", mode), zap.Int("cells", len(cells)))
	return true
}

// CanShape reports whether every fuser of the layer can hold a cell of s.
func (l *Layer) CanShape(s *shape.Shape) error {
	if s.VerticesPerCell() > l.cfg.VertexCeiling {
		return fmt.Errorf("%w: %d vertices per cell, ceiling %d", fuser.ErrCeilingTooSmall, s.VerticesPerCell(), l.cfg.VertexCeiling)
	}
	return nil
}

// SetShape rebinds every fuser to a new shape and origin. The layer is left
// untouched when s does not fit the vertex ceiling.
func (l *Layer) SetShape(s *shape.Shape, origin math.Vec3) error {
	if err := l.CanShape(s); err != nil {
		return err
	}
	l.shape = s
	l.origin = origin
	if err := l.colorFuser.SetShape(s, origin); err != nil {
		return err
	}
	for _, g := range l.groups {
		if err := g.fuser.SetShape(s, origin); err != nil {
			return err
		}
	}
	l.stale = true
	return nil
}

// Clear drops every assignment and unsubscribes from every style.
func (l *Layer) Clear() {
	l.unsubscribeAll()
	if err := l.reset(); err != nil {
		l.log.Error("resetting layer", zap.Error(err))
	}
}

func (l *Layer) unsubscribeAll() {
	for s := range l.byStyle {
		s.Unsubscribe(l.queue)
	}
	l.queue.Drain()
}

// sortedGroups returns the groups in a stable order.
func (l *Layer) sortedGroups() []*group {
	out := make([]*group, 0, len(l.groups))
	for _, g := range l.groups {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *group) int { return cmp.Compare(a.rep.ID(), b.rep.ID()) })
	return out
}
