package layer

import (
	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/engine/fuser"
	"github.com/Faultbox/gridmesh/internal/engine/mesh"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
)

// PendingChanges returns the number of styles whose notifications have not
// been processed yet.
func (l *Layer) PendingChanges() int { return l.queue.Len() }

// ProcessStyleChanges applies queued style notifications. A material style
// whose grouping key changed moves into the group now matching it, or into
// a fresh group of its own. Flat color styles repaint their cells in the
// shared color fuser. It returns the number of styles handled.
func (l *Layer) ProcessStyleChanges() int {
	changed := l.queue.Drain()
	handled := 0
	for _, s := range changed {
		keys, ok := l.byStyle[s]
		if !ok {
			continue
		}
		handled++

		if s.Mode() == style.FlatColor {
			col := s.Color()
			for key := range keys {
				l.colorFuser.Paint(shape.FromKey(key), col)
			}
			continue
		}

		oldKey := l.styleKey[s]
		newKey := l.keyFn(s)
		if oldKey == newKey {
			// Same geometry, but the binding looks different now.
			l.stale = true
			continue
		}
		if err := l.regroup(s, oldKey, newKey); err != nil {
			l.log.Error("regrouping style", zap.Stringer("style", s), zap.Error(err))
		}
	}
	return handled
}

func (l *Layer) regroup(s *style.Style, oldKey, newKey style.Key) error {
	old := l.groups[oldKey]
	if old == nil {
		l.styleKey[s] = newKey
		return nil
	}
	target := l.groups[newKey]
	l.stale = true

	if len(old.members) == 1 {
		// s owns the whole group: merge or rekey it.
		delete(l.groups, oldKey)
		if target != nil {
			target.fuser.Combine(old.fuser)
			target.members[s] += old.members[s]
		} else {
			old.key = newKey
			old.rep = s
			l.groups[newKey] = old
		}
		l.styleKey[s] = newKey
		l.log.Debug("style regrouped", zap.Stringer("style", s), zap.Bool("merged", target != nil))
		return nil
	}

	// s shares its group: split its cells out.
	if target == nil {
		f, err := l.newFuser(false)
		if err != nil {
			return err
		}
		target = &group{key: newKey, rep: s, members: make(map[*style.Style]int), fuser: f}
		l.groups[newKey] = target
	}
	moved := 0
	for key := range l.byStyle[s] {
		c := shape.FromKey(key)
		if old.fuser.Remove(c) {
			target.fuser.Insert(c, s.Color())
			moved++
		}
	}
	target.members[s] += moved
	l.leaveGroup(old, s, old.members[s])
	l.styleKey[s] = newKey
	l.log.Debug("style split from group", zap.Stringer("style", s), zap.Int("cells", moved))
	return nil
}

// DrawLayer applies pending style changes, rebuilds every dirty fuser and,
// when anything changed, repacks all buffers into batches. It returns the
// current batches and whether they differ from the previous call.
func (l *Layer) DrawLayer() ([]*mesh.Batch, bool) {
	l.ProcessStyleChanges()

	changed := l.stale
	var tagged []mesh.Tagged

	for _, g := range l.sortedGroups() {
		if l.rebuild(g.fuser) {
			changed = true
		}
		for _, b := range g.fuser.Buffers() {
			tagged = append(tagged, mesh.Tagged{Style: g.rep, Buffer: b})
		}
	}
	if l.rebuild(l.colorFuser) {
		changed = true
	}
	for _, b := range l.colorFuser.Buffers() {
		tagged = append(tagged, mesh.Tagged{Style: l.colorStyle, Buffer: b})
	}

	if !changed {
		return l.batches, false
	}
	l.batches = mesh.Pack(tagged, l.cfg.VertexCeiling)
	l.stale = false
	return l.batches, true
}

// Batches returns the batches of the last DrawLayer call.
func (l *Layer) Batches() []*mesh.Batch { return l.batches }

// ColorStyle returns the binding used for the shared color fuser.
func (l *Layer) ColorStyle() *style.Style { return l.colorStyle }

func (l *Layer) rebuild(f *fuser.Fuser) bool {
	if l.cfg.Workers > 1 {
		return f.RebuildParallel(l.cfg.Workers)
	}
	return f.Rebuild()
}
