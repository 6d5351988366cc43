package workspace

import (
	"testing"

	"github.com/Faultbox/gridmesh/internal/config"
	"github.com/Faultbox/gridmesh/internal/engine/mesh"
	"github.com/Faultbox/gridmesh/internal/engine/profile"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/palette"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Grid.Width = 8
	cfg.Grid.Height = 6
	cfg.Grid.ChunkWidth = 4
	cfg.Grid.ChunkHeight = 4
	cfg.Styles = []palette.Entry{
		{Name: "a", Material: "a.png", Color: "#ff0000"},
		{Name: "b", Material: "b.png", Color: "#00ff00"},
		{Name: "dot", Mode: palette.ModeFlat, Color: "#0000ff"},
	}
	cfg.Layers = []config.LayerConfig{
		{Name: "ground", Default: "a"},
		{Name: "overlay", KeyMode: "reference"},
	}
	cfg.Fill = nil
	return cfg
}

func mustWorkspace(t *testing.T, cfg *config.Config) *Workspace {
	t.Helper()
	w, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return w
}

func TestNew(t *testing.T) {
	w := mustWorkspace(t, testConfig())
	if got := len(w.Grid.Chunks()); got != 4 {
		t.Errorf("chunks = %d, want 4", got)
	}
	if got := w.Palette.Len(); got != 3 {
		t.Errorf("palette = %d, want 3", got)
	}
	if !w.Grid.HasLayer("overlay") {
		t.Error("overlay layer missing")
	}
}

func TestGridConfigLayers(t *testing.T) {
	cfg := testConfig()
	cfg.Layers[0].Workers = 3
	cfg.Layers[1].VertexCeiling = 12
	p, err := palette.New(cfg.Styles)
	if err != nil {
		t.Fatalf("palette.New failed: %v", err)
	}
	gc, err := GridConfig(cfg, p)
	if err != nil {
		t.Fatalf("GridConfig failed: %v", err)
	}
	ground, overlay := gc.Layers[0], gc.Layers[1]
	if ground.Workers != 3 || overlay.Workers != 0 {
		t.Errorf("workers = %d/%d, want 3/0", ground.Workers, overlay.Workers)
	}
	if ground.Default != p.Get("a") {
		t.Error("ground default not resolved from the palette")
	}
	if overlay.VertexCeiling != 12 {
		t.Errorf("overlay ceiling = %d, want 12", overlay.VertexCeiling)
	}
}

func TestZeroCeilingUsesDefault(t *testing.T) {
	w := mustWorkspace(t, testConfig())
	l := w.Grid.Chunks()[0].Layer("ground")
	if got := l.Config().VertexCeiling; got != mesh.DefaultVertexCeiling {
		t.Errorf("ceiling = %d, want %d", got, mesh.DefaultVertexCeiling)
	}
}

func TestParallelLayerRebuildMatchesSequential(t *testing.T) {
	draw := func(workers int) int {
		cfg := testConfig()
		cfg.Layers[0].Workers = workers
		cfg.Fill = []config.FillRule{{Layer: "ground", Pattern: "checker", Styles: []string{"a", "b"}}}
		w := mustWorkspace(t, cfg)
		if _, err := w.Fill(); err != nil {
			t.Fatalf("Fill failed: %v", err)
		}
		sink := &countSink{}
		if err := w.Draw(sink); err != nil {
			t.Fatalf("Draw failed: %v", err)
		}
		return sink.vertices
	}
	// 8x6 cells, four vertices each
	if seq, par := draw(0), draw(4); seq != 192 || par != seq {
		t.Errorf("vertices: %d sequential, %d parallel, want 192 both", seq, par)
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad shape", func(c *config.Config) { c.Grid.Shape = "circle" }},
		{"bad key mode", func(c *config.Config) { c.Layers[0].KeyMode = "x" }},
		{"unknown default", func(c *config.Config) { c.Layers[0].Default = "lava" }},
		{"bad style", func(c *config.Config) { c.Styles[0].Color = "#q" }},
		{"no layers", func(c *config.Config) { c.Layers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			if _, err := New(cfg, nil, nil); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRemoveUsesLayerDefault(t *testing.T) {
	w := mustWorkspace(t, testConfig())
	c := shape.Coord{X: 1, Y: 1}
	w.Grid.InsertVisualData("ground", c, w.Palette.Get("b"))
	if !w.Grid.RemoveVisualData("ground", c) {
		t.Fatal("RemoveVisualData failed")
	}
	if got := w.Grid.VisualDataAt("ground", c); got != w.Palette.Get("a") {
		t.Errorf("after remove = %v, want default a", got)
	}
}

func TestFillPatterns(t *testing.T) {
	tests := []struct {
		rule  config.FillRule
		check func(t *testing.T, w *Workspace, n int)
	}{
		{
			rule: config.FillRule{Layer: "ground", Pattern: "solid", Styles: []string{"b"}},
			check: func(t *testing.T, w *Workspace, n int) {
				if n != 48 {
					t.Errorf("painted %d, want 48", n)
				}
				if w.Grid.VisualDataAt("ground", shape.Coord{X: 7, Y: 5}) != w.Palette.Get("b") {
					t.Error("(7,5) should be b")
				}
			},
		},
		{
			rule: config.FillRule{Layer: "ground", Pattern: "checker", Styles: []string{"a", "b"}},
			check: func(t *testing.T, w *Workspace, n int) {
				a, b := w.Palette.Get("a"), w.Palette.Get("b")
				if w.Grid.VisualDataAt("ground", shape.Coord{X: 0, Y: 0}) != a ||
					w.Grid.VisualDataAt("ground", shape.Coord{X: 1, Y: 0}) != b ||
					w.Grid.VisualDataAt("ground", shape.Coord{X: 1, Y: 1}) != a {
					t.Error("checker pattern mismatch")
				}
			},
		},
		{
			rule: config.FillRule{Layer: "overlay", Pattern: "stripes", Styles: []string{"dot", "a", "b"}},
			check: func(t *testing.T, w *Workspace, n int) {
				if w.Grid.VisualDataAt("overlay", shape.Coord{X: 3, Y: 4}) != w.Palette.Get("a") {
					t.Error("row 4 should be a")
				}
			},
		},
		{
			rule: config.FillRule{Layer: "ground", Pattern: "random", Styles: []string{"a"}, Seed: 7, Density: 0.5},
			check: func(t *testing.T, w *Workspace, n int) {
				if n == 0 || n == 48 {
					t.Errorf("painted %d, want a partial fill", n)
				}
				if w.Grid.Len() != n {
					t.Errorf("Len = %d, want %d", w.Grid.Len(), n)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.rule.Pattern, func(t *testing.T) {
			w := mustWorkspace(t, testConfig())
			n, err := w.FillRule(tt.rule)
			if err != nil {
				t.Fatalf("FillRule failed: %v", err)
			}
			tt.check(t, w, n)
		})
	}
}

func TestRandomFillIsDeterministic(t *testing.T) {
	rule := config.FillRule{Layer: "ground", Pattern: "random", Styles: []string{"a", "b"}, Seed: 42, Density: 0.7}
	w1 := mustWorkspace(t, testConfig())
	w2 := mustWorkspace(t, testConfig())
	if _, err := w1.FillRule(rule); err != nil {
		t.Fatalf("FillRule failed: %v", err)
	}
	if _, err := w2.FillRule(rule); err != nil {
		t.Fatalf("FillRule failed: %v", err)
	}
	w1.Grid.Bounds().Each(func(c shape.Coord) {
		s1, s2 := w1.Grid.VisualDataAt("ground", c), w2.Grid.VisualDataAt("ground", c)
		if (s1 == nil) != (s2 == nil) || (s1 != nil && s1.Name() != s2.Name()) {
			t.Errorf("cell %v differs: %v vs %v", c, s1, s2)
		}
	})
}

func TestFillErrors(t *testing.T) {
	w := mustWorkspace(t, testConfig())
	if _, err := w.FillRule(config.FillRule{Layer: "ground", Pattern: "solid", Styles: []string{"nope"}}); err == nil {
		t.Error("expected unknown style error")
	}
	if _, err := w.FillRule(config.FillRule{Layer: "ground", Pattern: "spiral", Styles: []string{"a"}}); err == nil {
		t.Error("expected unknown pattern error")
	}
	if _, err := w.FillRule(config.FillRule{Layer: "sky", Pattern: "solid", Styles: []string{"a"}}); err == nil {
		t.Error("expected unknown layer error")
	}
}

type countSink struct{ vertices int }

func (s *countSink) Submit(_ shape.Coord, _ string, batches []*mesh.Batch) error {
	for _, b := range batches {
		s.vertices += b.Buffer.VertexCount()
	}
	return nil
}

func TestFillAndDraw(t *testing.T) {
	cfg := testConfig()
	cfg.Grid.Parallel = true
	cfg.Fill = []config.FillRule{
		{Layer: "ground", Pattern: "solid", Styles: []string{"a"}},
		{Layer: "overlay", Pattern: "checker", Styles: []string{"dot", "b"}},
	}
	sw := profile.NewStopwatch()
	w, err := New(cfg, nil, sw)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	n, err := w.Fill()
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if n != 96 {
		t.Errorf("painted %d, want 96", n)
	}

	sink := &countSink{}
	if err := w.Draw(sink); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if sink.vertices != 96*4 {
		t.Errorf("vertices = %d, want %d", sink.vertices, 96*4)
	}
	if s, ok := sw.Sample("DrawGrid"); !ok || s.Count != 1 {
		t.Errorf("DrawGrid samples = %d, want 1", s.Count)
	}
}
