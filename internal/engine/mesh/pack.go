package mesh

import "sort"

// Pack sorts buffers ascending by vertex count and greedily accumulates them
// into batches of at most ceiling vertices. Empty buffers are skipped.
// A single buffer larger than ceiling is sealed on its own.
func Pack(items []Tagged, ceiling int) []*Batch {
	sorted := make([]Tagged, 0, len(items))
	for _, it := range items {
		if it.Buffer != nil && it.Buffer.VertexCount() > 0 {
			sorted = append(sorted, it)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Buffer.VertexCount() < sorted[j].Buffer.VertexCount()
	})

	var batches []*Batch
	var cur *Batch
	for _, it := range sorted {
		n := it.Buffer.VertexCount()
		if cur != nil && cur.VertexCount()+n > ceiling {
			batches = append(batches, cur)
			cur = nil
		}
		if cur == nil {
			cur = &Batch{Buffer: &Buffer{}}
		}
		cur.Bindings = append(cur.Bindings, Binding{
			Style:       it.Style,
			VertexStart: cur.Buffer.VertexCount(),
			VertexCount: n,
			IndexStart:  cur.Buffer.IndexCount(),
			IndexCount:  it.Buffer.IndexCount(),
		})
		cur.Buffer.Append(it.Buffer)
	}
	return append(batches, cur)
}
