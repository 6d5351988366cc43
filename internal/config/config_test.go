package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.uber.org/multierr"

	"github.com/Faultbox/gridmesh/internal/palette"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test grid defaults
	if cfg.Grid.Width != 64 || cfg.Grid.Height != 64 {
		t.Errorf("expected grid 64x64, got %dx%d", cfg.Grid.Width, cfg.Grid.Height)
	}
	if cfg.Grid.ChunkWidth != 16 || cfg.Grid.ChunkHeight != 16 {
		t.Errorf("expected chunk 16x16, got %dx%d", cfg.Grid.ChunkWidth, cfg.Grid.ChunkHeight)
	}
	if cfg.Grid.Shape != "rect" {
		t.Errorf("expected shape rect, got %s", cfg.Grid.Shape)
	}
	if cfg.Grid.Parallel {
		t.Error("expected parallel to be false by default")
	}

	// Test layer defaults
	if len(cfg.Layers) != 2 || cfg.Layers[0].Name != "ground" {
		t.Errorf("expected ground and overlay layers, got %+v", cfg.Layers)
	}

	// Test viewer defaults
	if !cfg.Viewer.VSync {
		t.Error("expected vsync to be true by default")
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.File.Path != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.File.Path)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
grid:
  width: 100
  height: 50
  chunk_width: 10
  chunk_height: 5
  shape: hex
  orientation: xz
  cell_width: 2
  cell_height: 2
  parallel: true

layers:
  - name: terrain
    key_mode: reference
    default: rock
    vertex_ceiling: 1200

styles:
  - name: rock
    material: rock.png
    color: "#777777"
  - name: marker
    mode: flat
    color: orange

fill:
  - layer: terrain
    pattern: checker
    styles: [rock]

logging:
  level: "debug"
  file:
    path: "grid.log"
    max_size_mb: 10
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Grid.Width != 100 || cfg.Grid.Height != 50 {
		t.Errorf("expected grid 100x50, got %dx%d", cfg.Grid.Width, cfg.Grid.Height)
	}
	if cfg.Grid.Shape != "hex" || cfg.Grid.Orientation != "xz" {
		t.Errorf("expected hex/xz, got %s/%s", cfg.Grid.Shape, cfg.Grid.Orientation)
	}
	if !cfg.Grid.Parallel {
		t.Error("expected parallel to be true")
	}

	if len(cfg.Layers) != 1 {
		t.Fatalf("expected layers to be replaced, got %d", len(cfg.Layers))
	}
	l := cfg.Layers[0]
	if l.Name != "terrain" || l.KeyMode != "reference" || l.Default != "rock" || l.VertexCeiling != 1200 {
		t.Errorf("unexpected layer %+v", l)
	}

	if len(cfg.Styles) != 2 || cfg.Styles[1].Mode != palette.ModeFlat {
		t.Errorf("unexpected styles %+v", cfg.Styles)
	}
	if len(cfg.Fill) != 1 || cfg.Fill[0].Pattern != "checker" {
		t.Errorf("unexpected fill %+v", cfg.Fill)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.File.Path != "grid.log" || cfg.Logging.File.MaxSizeMB != 10 {
		t.Errorf("unexpected log file config %+v", cfg.Logging.File)
	}

	// Untouched sections keep their defaults
	if cfg.Preview.Width != 1024 {
		t.Errorf("expected preview width 1024, got %d", cfg.Preview.Width)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should be valid: %v", err)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
grid:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{
			name:   "empty grid",
			mutate: func(c *Config) { c.Grid.Width = 0 },
			want:   []string{"grid: size 0x64"},
		},
		{
			name:   "negative chunk",
			mutate: func(c *Config) { c.Grid.ChunkHeight = -1 },
			want:   []string{"chunk size"},
		},
		{
			name:   "unknown shape",
			mutate: func(c *Config) { c.Grid.Shape = "triangle" },
			want:   []string{"grid:"},
		},
		{
			name: "layer problems",
			mutate: func(c *Config) {
				c.Layers = append(c.Layers,
					LayerConfig{Name: "ground"},
					LayerConfig{Name: "x", KeyMode: "sideways", Default: "lava"})
			},
			want: []string{`duplicate name "ground"`, "unknown key mode", `unknown default style "lava"`},
		},
		{
			name: "fill problems",
			mutate: func(c *Config) {
				c.Fill = []FillRule{{Layer: "sky", Pattern: "spiral", Density: 2}}
			},
			want: []string{`unknown layer "sky"`, `unknown pattern "spiral"`, "at least one style", "density"},
		},
		{
			name:   "bad style color",
			mutate: func(c *Config) { c.Styles[0].Color = "#nothex" },
			want:   []string{"invalid color"},
		},
		{
			name:   "negative layer workers",
			mutate: func(c *Config) { c.Layers[0].Workers = -2 },
			want:   []string{"workers -2"},
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
			want:   []string{"logging:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			msg := err.Error()
			for _, w := range tt.want {
				if !strings.Contains(msg, w) {
					t.Errorf("error %q does not mention %q", msg, w)
				}
			}
		})
	}
}

func TestValidateAggregates(t *testing.T) {
	cfg := Default()
	cfg.Grid.Width = 0
	cfg.Grid.CellWidth = 0
	cfg.Preview.Height = 0

	errs := multierr.Errors(cfg.Validate())
	if len(errs) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateStyleErrorsAreWrapped(t *testing.T) {
	cfg := Default()
	cfg.Styles = append(cfg.Styles, cfg.Styles[0])
	if err := cfg.Validate(); !errors.Is(err, palette.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create config.yaml in current directory
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("grid:\n  width: 8\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
				if !cfg.Viewer.ShowStats {
					t.Error("expected show_stats to be enabled with debug flag")
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 300
				*flagHeight = 200
			},
			verify: func(cfg *Config) {
				if cfg.Grid.Width != 300 {
					t.Errorf("expected width 300, got %d", cfg.Grid.Width)
				}
				if cfg.Grid.Height != 200 {
					t.Errorf("expected height 200, got %d", cfg.Grid.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
		{
			name: "chunk flag",
			setup: func() {
				*flagChunk = 0
			},
			verify: func(cfg *Config) {
				if cfg.Grid.ChunkWidth != 0 || cfg.Grid.ChunkHeight != 0 {
					t.Errorf("expected chunk 0x0, got %dx%d", cfg.Grid.ChunkWidth, cfg.Grid.ChunkHeight)
				}
			},
			teardown: func() {
				*flagChunk = -1
			},
		},
		{
			name: "shape and parallel flags",
			setup: func() {
				*flagShape = "hex"
				*flagParallel = true
			},
			verify: func(cfg *Config) {
				if cfg.Grid.Shape != "hex" {
					t.Errorf("expected shape hex, got %s", cfg.Grid.Shape)
				}
				if !cfg.Grid.Parallel {
					t.Error("expected parallel to be true")
				}
			},
			teardown: func() {
				*flagShape = ""
				*flagParallel = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
grid:
  width: 160
  height: 90
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagWidth = 192
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (192), not file (160)
	if cfg.Grid.Width != 192 {
		t.Errorf("expected width 192 from flag, got %d", cfg.Grid.Width)
	}

	// Height should be from file (90) since no flag override
	if cfg.Grid.Height != 90 {
		t.Errorf("expected height 90 from file, got %d", cfg.Grid.Height)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("grid:\n  shape: octagon\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected invalid config to be rejected")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Grid.Width = 12
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if loaded.Grid.Width != 12 {
		t.Errorf("expected width 12, got %d", loaded.Grid.Width)
	}
	if len(loaded.Styles) != len(cfg.Styles) {
		t.Errorf("expected %d styles, got %d", len(cfg.Styles), len(loaded.Styles))
	}
}

func TestSaveToRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Grid.Shape = "octagon"
	if err := cfg.SaveTo(path); err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("invalid config was written: %v", err)
	}
}

func TestSaveToReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("grid:\n  width: 3\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	cfg := Default()
	cfg.Grid.Width = 20
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if loaded.Grid.Width != 20 {
		t.Errorf("expected width 20, got %d", loaded.Grid.Width)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only config.yaml in %s, got %d entries", dir, len(entries))
	}
}

func TestSaveToUserDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("config dir follows XDG_CONFIG_HOME on linux only")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Grid.Height = 9
	path, err := cfg.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if want := filepath.Join(ConfigDir(), "config.yaml"); path != want {
		t.Errorf("Save wrote %s, want %s", path, want)
	}
	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if loaded.Grid.Height != 9 {
		t.Errorf("expected height 9, got %d", loaded.Grid.Height)
	}
}
