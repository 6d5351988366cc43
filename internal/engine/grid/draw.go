package grid

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/engine/parallel"
)

// DrawGrid rebuilds every chunk and hands the changed layers to sink.
// With parallel set the rebuild runs one task per chunk. The handoff to
// sink is always sequential. A nil sink only rebuilds. Submission errors
// do not stop other chunks; they are combined into the returned error.
func (m *Manager) DrawGrid(sink Sink, parallelRebuild bool) error {
	stop := m.prof.Start("DrawGrid")
	defer stop()

	compute := m.prof.Start("DrawGrid.compute")
	changed := make([]bool, len(m.chunks))
	if parallelRebuild {
		parallel.ForEach(len(m.chunks), m.workers, func(i int) {
			changed[i] = m.chunks[i].ComputeFusedGroups()
		})
	} else {
		for i, c := range m.chunks {
			changed[i] = c.ComputeFusedGroups()
		}
	}
	compute()

	if sink == nil {
		return nil
	}

	flush := m.prof.Start("DrawGrid.flush")
	defer flush()

	var err error
	submitted := 0
	for _, c := range m.chunks {
		if !c.Pending() {
			continue
		}
		if ferr := c.Flush(sink); ferr != nil {
			err = multierr.Append(err, ferr)
			continue
		}
		submitted++
	}

	rebuilt := 0
	for _, ok := range changed {
		if ok {
			rebuilt++
		}
	}
	m.log.Debug("grid drawn",
		zap.Int("rebuilt", rebuilt),
		zap.Int("submitted", submitted),
		zap.Bool("parallel", parallelRebuild))
	if err != nil {
		m.log.Warn("batch submission failed", zap.Error(err))
	}
	return err
}
