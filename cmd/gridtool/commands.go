package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/gridmesh/internal/config"
	"github.com/Faultbox/gridmesh/internal/engine/mesh"
	"github.com/Faultbox/gridmesh/internal/engine/profile"
	"github.com/Faultbox/gridmesh/internal/engine/shape"
	"github.com/Faultbox/gridmesh/internal/logger"
	"github.com/Faultbox/gridmesh/internal/palette"
	"github.com/Faultbox/gridmesh/internal/persist"
	"github.com/Faultbox/gridmesh/internal/preview"
	"github.com/Faultbox/gridmesh/internal/workspace"
)

// build creates the configured workspace and applies its fill rules.
func build(cfg *config.Config, prof profile.Profiler) (*workspace.Workspace, error) {
	ws, err := workspace.New(cfg, logger.Named("workspace"), prof)
	if err != nil {
		return nil, err
	}
	n, err := ws.Fill()
	if err != nil {
		return nil, err
	}
	logger.Info("grid filled", zap.Int("cells", n))
	return ws, nil
}

// restore builds a workspace matching a stored document.
func restore(cfg *config.Config, doc persist.Document) (*workspace.Workspace, error) {
	c := *cfg
	c.Layers = slices.Clone(cfg.Layers)
	c.Grid.Width = doc.Grid.Width
	c.Grid.Height = doc.Grid.Height
	c.Grid.ChunkWidth = doc.Grid.ChunkWidth
	c.Grid.ChunkHeight = doc.Grid.ChunkHeight
	c.Grid.Shape = doc.Grid.Shape
	c.Grid.Orientation = doc.Grid.Orientation
	c.Grid.CellWidth = doc.Grid.CellWidth
	c.Grid.CellHeight = doc.Grid.CellHeight
	c.Grid.GapX = doc.Grid.GapX
	c.Grid.GapY = doc.Grid.GapY
	c.Styles = mergeStyles(cfg.Styles, doc.Styles)

	// Layers missing from the configuration are added with defaults
	for _, l := range doc.Snapshot.Layers {
		known := slices.ContainsFunc(c.Layers, func(lc config.LayerConfig) bool { return lc.Name == l.Name })
		if !known {
			c.Layers = append(c.Layers, config.LayerConfig{Name: l.Name})
		}
	}

	ws, err := workspace.New(&c, logger.Named("workspace"), nil)
	if err != nil {
		return nil, err
	}
	if err := ws.Grid.Restore(doc.Snapshot, ws.Palette.Get); err != nil {
		return nil, err
	}
	return ws, nil
}

// mergeStyles returns the configured styles plus stored ones whose names
// are not configured.
func mergeStyles(configured, stored []palette.Entry) []palette.Entry {
	out := append([]palette.Entry(nil), configured...)
	seen := make(map[string]bool, len(configured))
	for _, e := range configured {
		seen[e.Name] = true
	}
	for _, e := range stored {
		if !seen[e.Name] {
			out = append(out, e)
			seen[e.Name] = true
		}
	}
	return out
}

// layerStats accumulates what a draw hands to the sink.
type layerStats struct {
	slots    int
	batches  int
	draws    int
	vertices int
	indices  int
}

type statsSink struct {
	layers map[string]*layerStats
}

func newStatsSink() *statsSink {
	return &statsSink{layers: make(map[string]*layerStats)}
}

func (s *statsSink) Submit(_ shape.Coord, layer string, batches []*mesh.Batch) error {
	st := s.layers[layer]
	if st == nil {
		st = &layerStats{}
		s.layers[layer] = st
	}
	st.slots++
	for _, b := range batches {
		st.batches++
		st.draws += len(b.Bindings)
		st.vertices += b.Buffer.VertexCount()
		st.indices += b.Buffer.IndexCount()
	}
	return nil
}

func printStats(ws *workspace.Workspace, sink *statsSink) {
	m := ws.Grid
	size := m.ChunkSize()
	fmt.Printf("Grid:    %dx%d %s\n", m.Config().Width, m.Config().Height, m.Shape().Kind())
	fmt.Printf("Chunks:  %d (%dx%d cells)\n", len(m.Chunks()), size.X, size.Y)
	fmt.Printf("Cells:   %d\n", m.Len())
	fmt.Printf("Styles:  %d\n", len(m.Styles()))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LAYER\tCHUNKS\tBATCHES\tDRAWS\tVERTICES\tTRIANGLES")
	for _, name := range m.Layers() {
		st := sink.layers[name]
		if st == nil {
			st = &layerStats{}
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", name, st.slots, st.batches, st.draws, st.vertices, st.indices/3)
	}
	w.Flush()
}

func cmdStats(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	runs := fs.Int("runs", 1, "Number of full redraws to time")
	fs.Parse(args)

	sw := profile.NewStopwatch()
	ws, err := build(cfg, sw)
	if err != nil {
		return err
	}

	sink := newStatsSink()
	if err := ws.Draw(sink); err != nil {
		return err
	}
	printStats(ws, sink)

	// Further runs rebuild from scratch so each draw fuses every cell
	for i := 1; i < *runs; i++ {
		ws, err := build(cfg, sw)
		if err != nil {
			return err
		}
		if err := ws.Draw(nil); err != nil {
			return err
		}
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SECTION\tCOUNT\tMEAN\tMAX")
	for _, s := range sw.Samples() {
		fmt.Fprintf(w, "%s\t%d\t%v\t%v\n", s.Name, s.Count, s.Mean(), s.Max)
	}
	w.Flush()
	sw.Report(logger.Named("profile"))
	return nil
}

func previewOptions(cfg *config.Config) (preview.Options, error) {
	bg, err := palette.ParseColor(cfg.Preview.Background)
	if err != nil {
		return preview.Options{}, err
	}
	return preview.Options{
		Width:       cfg.Preview.Width,
		Height:      cfg.Preview.Height,
		Margin:      cfg.Preview.Margin,
		Background:  bg,
		Supersample: cfg.Preview.Supersample,
		Legend:      cfg.Preview.Legend,
	}, nil
}

// renderPNG draws ws into a fresh canvas and writes it to path.
func renderPNG(cfg *config.Config, ws *workspace.Workspace, path string) error {
	opts, err := previewOptions(cfg)
	if err != nil {
		return err
	}
	m := ws.Grid
	canvas, err := preview.NewCanvas(m.Shape(), m.WorldBounds(), m.Layers(), opts)
	if err != nil {
		return err
	}
	if err := ws.Draw(canvas); err != nil {
		return err
	}
	if err := preview.WritePNG(path, canvas.Render()); err != nil {
		return err
	}
	fmt.Printf("Rendered: %s (%d batches)\n", path, canvas.Batches())
	return nil
}

func cmdRender(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	out := fs.String("o", cfg.Preview.Output, "Output PNG file")
	from := fs.String("from", "", "Stored snapshot name or YAML file to render instead of the fill rules")
	width := fs.Int("w", cfg.Preview.Width, "Image width")
	height := fs.Int("h", cfg.Preview.Height, "Image height")
	legend := fs.Bool("legend", cfg.Preview.Legend, "Draw a style legend")
	fs.Parse(args)

	cfg.Preview.Width = *width
	cfg.Preview.Height = *height
	cfg.Preview.Legend = *legend

	var ws *workspace.Workspace
	var err error
	if *from != "" {
		ws, err = open(cfg, *from)
	} else {
		ws, err = build(cfg, nil)
	}
	if err != nil {
		return err
	}
	return renderPNG(cfg, ws, *out)
}

// open restores a snapshot from a YAML file or the store.
func open(cfg *config.Config, ref string) (*workspace.Workspace, error) {
	doc, err := readDocument(cfg, ref)
	if err != nil {
		return nil, err
	}
	return restore(cfg, doc)
}

func readDocument(cfg *config.Config, ref string) (persist.Document, error) {
	if strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") {
		return persist.ReadYAML(ref)
	}
	store, err := persist.Open(cfg.Store.Path, logger.Named("store"))
	if err != nil {
		return persist.Document{}, err
	}
	defer store.Close()
	return store.Load(ref)
}

func cmdSave(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	yamlPath := fs.String("yaml", "", "Also write the snapshot to this YAML file")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: gridtool save [-yaml file] <name>")
	}
	name := fs.Arg(0)

	ws, err := build(cfg, nil)
	if err != nil {
		return err
	}
	doc := persist.Capture(name, ws.Grid)

	store, err := persist.Open(cfg.Store.Path, logger.Named("store"))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(doc); err != nil {
		return err
	}
	fmt.Printf("Saved: %s (%d cells) to %s\n", name, doc.Snapshot.Len(), cfg.Store.Path)

	if *yamlPath != "" {
		if dir := filepath.Dir(*yamlPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
		if err := persist.WriteYAML(*yamlPath, doc); err != nil {
			return err
		}
		fmt.Printf("Wrote: %s\n", *yamlPath)
	}
	return nil
}

func cmdLoad(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	out := fs.String("o", "", "Render the restored grid to this PNG file")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: gridtool load [-o file.png] <name|file.yaml>")
	}
	ws, err := open(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	if *out != "" {
		return renderPNG(cfg, ws, *out)
	}
	sink := newStatsSink()
	if err := ws.Draw(sink); err != nil {
		return err
	}
	printStats(ws, sink)
	return nil
}

func cmdList(cfg *config.Config, _ []string) error {
	store, err := persist.Open(cfg.Store.Path, logger.Named("store"))
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(os.Stderr, "No snapshots found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCELLS\tUPDATED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%d\t%s\n", info.Name, info.Cells, info.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func cmdDelete(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: gridtool delete <name>")
	}
	store, err := persist.Open(cfg.Store.Path, logger.Named("store"))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted: %s\n", args[0])
	return nil
}

func cmdConfig(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	out := fs.String("o", "", "Write the configuration to this file")
	user := fs.Bool("save", false, "Write the configuration to the user config directory")
	fs.Parse(args)

	if *user {
		path, err := cfg.Save()
		if err != nil {
			return err
		}
		fmt.Printf("Wrote: %s\n", path)
		return nil
	}
	if *out != "" {
		if err := cfg.SaveTo(*out); err != nil {
			return err
		}
		fmt.Printf("Wrote: %s\n", *out)
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
