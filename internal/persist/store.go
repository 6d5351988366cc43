package persist

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Faultbox/gridmesh/internal/engine/grid"
	"github.com/Faultbox/gridmesh/internal/palette"
)

// insertBatch bounds the rows per INSERT statement.
const insertBatch = 500

type snapshotRow struct {
	Name        string `gorm:"primaryKey"`
	Version     int
	Width       int32
	Height      int32
	ChunkWidth  int32
	ChunkHeight int32
	Shape       string
	Orientation string
	CellWidth   float32
	CellHeight  float32
	GapX        float32
	GapY        float32
	Layers      string // YAML list of layer names, indexed by cellRow.LayerIdx
	Styles      string // YAML list of palette entries
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (snapshotRow) TableName() string { return "snapshots" }

type cellRow struct {
	ID       uint   `gorm:"primaryKey"`
	Snapshot string `gorm:"index:idx_cell_order,priority:1"`
	LayerIdx int    `gorm:"index:idx_cell_order,priority:2"`
	Seq      int    `gorm:"index:idx_cell_order,priority:3"`
	X        int32
	Y        int32
	Style    string
}

func (cellRow) TableName() string { return "cells" }

// Info summarises a stored snapshot.
type Info struct {
	Name      string
	Cells     int64
	UpdatedAt time.Time
}

// Store keeps named documents in a SQLite database.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens or creates the database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := db.AutoMigrate(&snapshotRow{}, &cellRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save stores d under d.Name, replacing any previous document of that name.
func (s *Store) Save(d Document) error {
	if d.Name == "" {
		return errors.New("persist: document without name")
	}
	styles, err := yaml.Marshal(d.Styles)
	if err != nil {
		return fmt.Errorf("failed to marshal styles: %w", err)
	}

	layers := make([]string, len(d.Snapshot.Layers))
	cells := make([]cellRow, 0, d.Snapshot.Len())
	for li, l := range d.Snapshot.Layers {
		layers[li] = l.Name
		for seq, c := range l.Cells {
			cells = append(cells, cellRow{
				Snapshot: d.Name,
				LayerIdx: li,
				Seq:      seq,
				X:        c.X,
				Y:        c.Y,
				Style:    c.Style,
			})
		}
	}

	layerData, err := yaml.Marshal(layers)
	if err != nil {
		return fmt.Errorf("failed to marshal layers: %w", err)
	}

	row := snapshotRow{
		Name:        d.Name,
		Version:     Version,
		Width:       d.Grid.Width,
		Height:      d.Grid.Height,
		ChunkWidth:  d.Grid.ChunkWidth,
		ChunkHeight: d.Grid.ChunkHeight,
		Shape:       d.Grid.Shape,
		Orientation: d.Grid.Orientation,
		CellWidth:   d.Grid.CellWidth,
		CellHeight:  d.Grid.CellHeight,
		GapX:        d.Grid.GapX,
		GapY:        d.Grid.GapY,
		Layers:      string(layerData),
		Styles:      string(styles),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("snapshot = ?", d.Name).Delete(&cellRow{}).Error; err != nil {
			return err
		}
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		if len(cells) == 0 {
			return nil
		}
		return tx.CreateInBatches(cells, insertBatch).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save %q: %w", d.Name, err)
	}
	s.log.Debug("snapshot saved", zap.String("name", d.Name), zap.Int("cells", len(cells)))
	return nil
}

// Load returns the document stored under name.
func (s *Store) Load(name string) (Document, error) {
	var row snapshotRow
	if err := s.db.First(&row, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return Document{}, fmt.Errorf("failed to load %q: %w", name, err)
	}

	var styles []palette.Entry
	if err := yaml.Unmarshal([]byte(row.Styles), &styles); err != nil {
		return Document{}, fmt.Errorf("failed to parse styles of %q: %w", name, err)
	}

	var layers []string
	if err := yaml.Unmarshal([]byte(row.Layers), &layers); err != nil {
		return Document{}, fmt.Errorf("failed to parse layers of %q: %w", name, err)
	}
	var snap grid.Snapshot
	for _, l := range layers {
		snap.Layers = append(snap.Layers, grid.LayerSnapshot{Name: l})
	}

	var cells []cellRow
	err := s.db.Where("snapshot = ?", name).Order("layer_idx, seq").Find(&cells).Error
	if err != nil {
		return Document{}, fmt.Errorf("failed to load cells of %q: %w", name, err)
	}
	for _, c := range cells {
		if c.LayerIdx < 0 || c.LayerIdx >= len(snap.Layers) {
			return Document{}, fmt.Errorf("persist: cell of %q references layer %d", name, c.LayerIdx)
		}
		l := &snap.Layers[c.LayerIdx]
		l.Cells = append(l.Cells, grid.CellRef{X: c.X, Y: c.Y, Style: c.Style})
	}

	return Document{
		Version: row.Version,
		Name:    row.Name,
		Grid: Meta{
			Width:       row.Width,
			Height:      row.Height,
			ChunkWidth:  row.ChunkWidth,
			ChunkHeight: row.ChunkHeight,
			Shape:       row.Shape,
			Orientation: row.Orientation,
			CellWidth:   row.CellWidth,
			CellHeight:  row.CellHeight,
			GapX:        row.GapX,
			GapY:        row.GapY,
		},
		Styles:   styles,
		Snapshot: snap,
	}, nil
}

// List returns every stored snapshot ordered by name.
func (s *Store) List() ([]Info, error) {
	var rows []snapshotRow
	if err := s.db.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	out := make([]Info, len(rows))
	for i, r := range rows {
		out[i] = Info{Name: r.Name, UpdatedAt: r.UpdatedAt}
		if err := s.db.Model(&cellRow{}).Where("snapshot = ?", r.Name).Count(&out[i].Cells).Error; err != nil {
			return nil, fmt.Errorf("failed to count cells of %q: %w", r.Name, err)
		}
	}
	return out, nil
}

// Delete removes the named snapshot.
func (s *Store) Delete(name string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("name = ?", name).Delete(&snapshotRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return tx.Where("snapshot = ?", name).Delete(&cellRow{}).Error
	})
}
