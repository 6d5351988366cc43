package grid

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/engine/parallel"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/engine/style"
)

// block is the slice of a bulk insert owned by one chunk.
type block struct {
	coords []shape.Coord
	styles []*style.Style
}

// InsertPositionBlock assigns styles[i] to coords[i] on the named layer.
// Coordinates are first partitioned by owning chunk, then each non-empty
// chunk inserts its share in its own task. Later entries win when a
// coordinate repeats. Coordinates outside the grid and nil styles are
// skipped. It returns the number of successful inserts.
func (m *Manager) InsertPositionBlock(layerName string, coords []shape.Coord, styles []*style.Style) (int, error) {
	if len(coords) != len(styles) {
		return 0, fmt.Errorf("%w: %d coordinates, %d styles", ErrLengthMismatch, len(coords), len(styles))
	}
	if !m.HasLayer(layerName) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLayer, layerName)
	}
	if len(coords) == 0 {
		return 0, nil
	}
	defer m.prof.Start("InsertPositionBlock")()

	blocks := m.partition(coords, styles)

	var inserted atomic.Int64
	parallel.ForEach(len(blocks), m.workers, func(i int) {
		b := blocks[i]
		ch := m.ChunkByOrigin(m.chunkStart(b.coords[0]))
		n := ch.InsertBlock(layerName, b.coords, b.styles)
		inserted.Add(int64(n))
		for _, s := range b.styles {
			m.styles.Store(s, struct{}{})
		}
	})

	n := int(inserted.Load())
	m.log.Debug("block inserted",
		zap.String("layer", layerName),
		zap.Int("requested", len(coords)),
		zap.Int("inserted", n),
		zap.Int("chunks", len(blocks)))
	return n, nil
}

// partition groups the inputs by owning chunk. Every worker scans a
// contiguous range into its own collector; collectors are merged in range
// order so each block keeps the input order. Chunks that receive nothing
// are dropped.
func (m *Manager) partition(coords []shape.Coord, styles []*style.Style) []block {
	n := len(coords)
	parts := min(parallel.Workers(m.workers), n)
	size := (n + parts - 1) / parts
	parts = (n + size - 1) / size

	collectors := make([]map[int]*block, parts)
	slot := make(map[uint64]int, len(m.chunks))
	for i, c := range m.chunks {
		slot[c.Start().Key()] = i
	}

	parallel.ForEach(parts, m.workers, func(p int) {
		local := make(map[int]*block)
		for i := p * size; i < min((p+1)*size, n); i++ {
			c := coords[i]
			if styles[i] == nil || !m.Bounds().Contains(c) {
				continue
			}
			idx := slot[m.chunkStart(c).Key()]
			b := local[idx]
			if b == nil {
				b = &block{}
				local[idx] = b
			}
			b.coords = append(b.coords, c)
			b.styles = append(b.styles, styles[i])
		}
		collectors[p] = local
	})

	merged := make([]*block, len(m.chunks))
	for _, local := range collectors {
		for idx, b := range local {
			if merged[idx] == nil {
				merged[idx] = b
				continue
			}
			merged[idx].coords = append(merged[idx].coords, b.coords...)
			merged[idx].styles = append(merged[idx].styles, b.styles...)
		}
	}

	out := make([]block, 0, len(merged))
	for _, b := range merged {
		if b != nil {
			out = append(out, *b)
		}
	}
	return out
}
