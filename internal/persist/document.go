// Package persist saves and loads grid snapshots, either as YAML documents
// or in a SQLite database.
package persist

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/gridmesh/internal/engine/grid"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/palette"
)

// Version is the current document format.
const Version = 1

var (
	ErrNotFound = errors.New("persist: snapshot not found")
	ErrVersion  = errors.New("persist: unsupported document version")
)

// Meta describes the grid a snapshot was taken from.
type Meta struct {
	Width       int32   `yaml:"width"`
	Height      int32   `yaml:"height"`
	ChunkWidth  int32   `yaml:"chunk_width"`
	ChunkHeight int32   `yaml:"chunk_height"`
	Shape       string  `yaml:"shape"`
	Orientation string  `yaml:"orientation"`
	CellWidth   float32 `yaml:"cell_width"`
	CellHeight  float32 `yaml:"cell_height"`
	GapX        float32 `yaml:"gap_x,omitempty"`
	GapY        float32 `yaml:"gap_y,omitempty"`
}

// MetaOf describes cfg.
func MetaOf(cfg grid.Config) Meta {
	return Meta{
		Width:       cfg.Width,
		Height:      cfg.Height,
		ChunkWidth:  cfg.ChunkWidth,
		ChunkHeight: cfg.ChunkHeight,
		Shape:       cfg.Shape.Kind.String(),
		Orientation: cfg.Shape.Orientation.String(),
		CellWidth:   cfg.Shape.CellWidth,
		CellHeight:  cfg.Shape.CellHeight,
		GapX:        cfg.Shape.GapX,
		GapY:        cfg.Shape.GapY,
	}
}

// ShapeConfig parses the stored shape description.
func (m Meta) ShapeConfig() (shape.Config, error) {
	kind, err := shape.ParseKind(m.Shape)
	if err != nil {
		return shape.Config{}, err
	}
	orient, err := shape.ParseOrientation(m.Orientation)
	if err != nil {
		return shape.Config{}, err
	}
	return shape.Config{
		Kind:        kind,
		Orientation: orient,
		CellWidth:   m.CellWidth,
		CellHeight:  m.CellHeight,
		GapX:        m.GapX,
		GapY:        m.GapY,
	}, nil
}

// Document is a self contained snapshot: grid geometry, the styles it
// references and every cell assignment.
type Document struct {
	Version  int             `yaml:"version"`
	Name     string          `yaml:"name"`
	Grid     Meta            `yaml:"grid"`
	Styles   []palette.Entry `yaml:"styles"`
	Snapshot grid.Snapshot   `yaml:"snapshot"`
}

// Capture builds a document from the current state of m. Every style
// recorded by the grid is included; the first style wins on duplicate names.
func Capture(name string, m *grid.Manager) Document {
	styles := m.Styles()
	entries := make([]palette.Entry, 0, len(styles))
	seen := make(map[string]bool, len(styles))
	for _, s := range styles {
		if seen[s.Name()] {
			continue
		}
		seen[s.Name()] = true
		entries = append(entries, palette.EntryOf(s))
	}
	return Document{
		Version:  Version,
		Name:     name,
		Grid:     MetaOf(m.Config()),
		Styles:   entries,
		Snapshot: m.Snapshot(),
	}
}

// Palette builds the document styles.
func (d Document) Palette() (*palette.Palette, error) {
	return palette.New(d.Styles)
}

// WriteYAML writes d to path.
func WriteYAML(path string, d Document) error {
	if d.Version == 0 {
		d.Version = Version
	}
	data, err := yaml.Marshal(&d)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// ReadYAML reads a document from path.
func ReadYAML(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read document: %w", err)
	}
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("failed to parse document: %w", err)
	}
	if d.Version != Version {
		return Document{}, fmt.Errorf("%w: %d", ErrVersion, d.Version)
	}
	return d, nil
}
