// Package config handles gridmesh configuration loading and management.
package config

import (
	"github.com/Faultbox/gridmesh/internal/logger"
	"github.com/Faultbox/gridmesh/internal/palette"
)

// Config holds all settings.
type Config struct {
	Grid    GridConfig      `yaml:"grid"`
	Layers  []LayerConfig   `yaml:"layers"`
	Styles  []palette.Entry `yaml:"styles"`
	Fill    []FillRule      `yaml:"fill"`
	Preview PreviewConfig   `yaml:"preview"`
	Store   StoreConfig     `yaml:"store"`
	Viewer  ViewerConfig    `yaml:"viewer"`
	Logging LoggingConfig   `yaml:"logging"`
}

// GridConfig holds grid geometry and chunking settings.
type GridConfig struct {
	Width       int32   `yaml:"width"`
	Height      int32   `yaml:"height"`
	ChunkWidth  int32   `yaml:"chunk_width"`  // 0 = whole grid
	ChunkHeight int32   `yaml:"chunk_height"` // 0 = whole grid
	Shape       string  `yaml:"shape"`        // rect or hex
	Orientation string  `yaml:"orientation"`  // xy or xz
	CellWidth   float32 `yaml:"cell_width"`
	CellHeight  float32 `yaml:"cell_height"`
	GapX        float32 `yaml:"gap_x"`
	GapY        float32 `yaml:"gap_y"`
	Parallel    bool    `yaml:"parallel"` // rebuild fusers in parallel
	Workers     int     `yaml:"workers"`  // 0 = GOMAXPROCS
}

// LayerConfig describes one render layer.
type LayerConfig struct {
	Name          string `yaml:"name"`
	KeyMode       string `yaml:"key_mode"`       // visual or reference
	Default       string `yaml:"default"`        // style name used by remove
	VertexCeiling int    `yaml:"vertex_ceiling"` // 0 = 65534
	Workers       int    `yaml:"workers"`        // fuser rebuild workers, 0 or 1 = sequential
}

// FillRule paints a layer when a grid is generated.
type FillRule struct {
	Layer   string   `yaml:"layer"`
	Pattern string   `yaml:"pattern"` // solid, checker, stripes or random
	Styles  []string `yaml:"styles"`
	Seed    int64    `yaml:"seed"`
	Density float64  `yaml:"density"` // random only, fraction of cells painted
}

// PreviewConfig holds offline PNG rendering settings.
type PreviewConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Margin      int    `yaml:"margin"`
	Supersample int    `yaml:"supersample"`
	Background  string `yaml:"background"`
	Legend      bool   `yaml:"legend"`
	Output      string `yaml:"output"`
}

// StoreConfig holds snapshot persistence settings.
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite database
	Dir  string `yaml:"dir"`  // YAML snapshots and screenshots
}

// ViewerConfig holds interactive viewer settings.
type ViewerConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	Samples    int    `yaml:"samples"` // MSAA
	Materials  string `yaml:"materials"`
	ShowStats  bool   `yaml:"show_stats"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string            `yaml:"level"`
	File  logger.FileConfig `yaml:"file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Grid: GridConfig{
			Width:       64,
			Height:      64,
			ChunkWidth:  16,
			ChunkHeight: 16,
			Shape:       "rect",
			Orientation: "xy",
			CellWidth:   1,
			CellHeight:  1,
		},
		Layers: []LayerConfig{
			{Name: "ground", KeyMode: "visual", Default: "grass"},
			{Name: "overlay", KeyMode: "visual"},
		},
		Styles: []palette.Entry{
			{Name: "grass", Mode: palette.ModeMaterial, Material: "grass.png", Color: "#4caf50"},
			{Name: "water", Mode: palette.ModeMaterial, Material: "water.png", Color: "#2196f3"},
			{Name: "sand", Mode: palette.ModeMaterial, Material: "sand.png", Color: "#e0c068"},
			{Name: "highlight", Mode: palette.ModeFlat, Color: "#ffeb3b80"},
		},
		Fill: []FillRule{
			{Layer: "ground", Pattern: "random", Styles: []string{"grass", "water", "sand"}, Seed: 1, Density: 1},
		},
		Preview: PreviewConfig{
			Width:       1024,
			Height:      1024,
			Margin:      16,
			Supersample: 2,
			Background:  "#202020",
			Legend:      true,
			Output:      "grid.png",
		},
		Store: StoreConfig{
			Path: "gridmesh.db",
			Dir:  "snapshots",
		},
		Viewer: ViewerConfig{
			Width:   1280,
			Height:  720,
			VSync:   true,
			Samples: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
