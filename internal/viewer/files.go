package viewer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/gridmesh/internal/persist"
)

// fileRequest is a path picked in a native dialog, handled on the main
// thread.
type fileRequest struct {
	path string
	save bool
}

// save writes the current grid to the configured snapshot directory.
func (v *Viewer) save() {
	dir := v.ws.Config.Store.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.log.Warn("snapshot failed", zap.Error(err))
		return
	}
	name := fmt.Sprintf("viewer_%s", time.Now().Format("2006-01-02_15-04-05"))
	v.saveTo(filepath.Join(dir, name+".yaml"))
}

func (v *Viewer) saveTo(path string) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := persist.WriteYAML(path, persist.Capture(name, v.ws.Grid)); err != nil {
		v.log.Warn("snapshot failed", zap.Error(err))
		return
	}
	v.log.Info("snapshot saved", zap.String("path", path))
}

// saveDialog asks for a snapshot path without blocking the frame loop.
func (v *Viewer) saveDialog() {
	go v.pick(true, func() (string, error) {
		return dialog.File().
			Filter("Grid snapshots", "yaml", "yml").
			Title("Save snapshot").
			SetStartDir(v.ws.Config.Store.Dir).
			Save()
	})
}

// openDialog asks for a snapshot to load without blocking the frame loop.
func (v *Viewer) openDialog() {
	go v.pick(false, func() (string, error) {
		return dialog.File().
			Filter("Grid snapshots", "yaml", "yml").
			Filter("All Files", "*").
			Title("Open snapshot").
			SetStartDir(v.ws.Config.Store.Dir).
			Load()
	})
}

func (v *Viewer) pick(save bool, show func() (string, error)) {
	path, err := show()
	if err != nil {
		if !errors.Is(err, dialog.ErrCancelled) {
			v.log.Warn("file dialog failed", zap.Error(err))
		}
		return
	}
	select {
	case v.pending <- fileRequest{path: path, save: save}:
	default:
		v.log.Warn("file request dropped", zap.String("path", path))
	}
}

// processPending handles at most one dialog result per frame.
func (v *Viewer) processPending() {
	select {
	case req := <-v.pending:
		if req.save {
			v.saveTo(req.path)
			return
		}
		if err := v.load(req.path); err != nil {
			v.log.Warn("snapshot load failed", zap.String("path", req.path), zap.Error(err))
		}
	default:
	}
}

// load replaces the grid content with a stored snapshot. Styles unknown to
// the palette are added to it.
func (v *Viewer) load(path string) error {
	doc, err := persist.ReadYAML(path)
	if err != nil {
		return err
	}
	cfg := v.ws.Grid.Config()
	if doc.Grid.Width != cfg.Width || doc.Grid.Height != cfg.Height {
		return fmt.Errorf("snapshot is %dx%d, grid is %dx%d", doc.Grid.Width, doc.Grid.Height, cfg.Width, cfg.Height)
	}
	for _, l := range doc.Snapshot.Layers {
		if !v.ws.Grid.HasLayer(l.Name) {
			return fmt.Errorf("snapshot layer %q is not configured", l.Name)
		}
	}
	for _, e := range doc.Styles {
		if v.ws.Palette.Get(e.Name) != nil {
			continue
		}
		s, err := e.Build()
		if err != nil {
			return err
		}
		if err := v.ws.Palette.Add(s); err != nil {
			return err
		}
	}
	if err := v.ws.Grid.Clear(); err != nil {
		return err
	}
	if err := v.ws.Grid.Restore(doc.Snapshot, v.ws.Palette.Get); err != nil {
		return err
	}
	v.updateOverlay()
	v.log.Info("snapshot loaded", zap.String("path", path), zap.Int("cells", doc.Snapshot.Len()))
	return nil
}
