// Package palette builds named styles from configuration entries and maps
// persisted style names back to them.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"maps"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/image/colornames"

	"github.com/Faultbox/gridmesh/internal/engine/style"
)

var (
	ErrDuplicateName = errors.New("palette: duplicate style name")
	ErrBadColor      = errors.New("palette: invalid color")
	ErrBadMode       = errors.New("palette: invalid mode")
)

// Mode names used in configuration.
const (
	ModeMaterial = "material"
	ModeFlat     = "flat"
)

// Entry is the configuration form of one style.
type Entry struct {
	Name     string             `yaml:"name"`
	Mode     string             `yaml:"mode"`
	Material string             `yaml:"material,omitempty"`
	Color    string             `yaml:"color"`
	Params   map[string]float32 `yaml:"params,omitempty"`
}

// Build creates the style described by e.
func (e Entry) Build() (*style.Style, error) {
	if e.Name == "" {
		return nil, errors.New("palette: style without name")
	}
	c, err := ParseColor(e.Color)
	if err != nil {
		return nil, fmt.Errorf("style %q: %w", e.Name, err)
	}

	var s *style.Style
	switch strings.ToLower(e.Mode) {
	case "", ModeMaterial:
		s = style.NewMaterial(e.Name, e.Material, c)
	case ModeFlat, "flatcolor", "color":
		s = style.NewFlatColor(e.Name, c)
	default:
		return nil, fmt.Errorf("%w: style %q mode %q", ErrBadMode, e.Name, e.Mode)
	}
	for _, k := range slices.Sorted(maps.Keys(e.Params)) {
		s.SetParam(k, e.Params[k])
	}
	return s, nil
}

// EntryOf describes an existing style.
func EntryOf(s *style.Style) Entry {
	e := Entry{
		Name:  s.Name(),
		Mode:  ModeMaterial,
		Color: FormatColor(s.Color()),
	}
	if s.Mode() == style.FlatColor {
		e.Mode = ModeFlat
	} else {
		e.Material = s.Material()
	}
	if p := s.Params(); len(p) > 0 {
		e.Params = p
	}
	return e
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa or an SVG color name.
// The empty string is opaque white.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return color.RGBA{255, 255, 255, 255}, nil
	}
	if !strings.HasPrefix(s, "#") {
		if c, ok := colornames.Map[strings.ToLower(s)]; ok {
			return c, nil
		}
		return color.RGBA{}, fmt.Errorf("%w: unknown name %q", ErrBadColor, s)
	}

	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return color.RGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

// FormatColor returns c as #rrggbbaa.
func FormatColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Palette is an ordered set of uniquely named styles.
type Palette struct {
	styles []*style.Style
	byName map[string]*style.Style
}

// New builds every entry. All invalid entries are reported together.
func New(entries []Entry) (*Palette, error) {
	p := &Palette{byName: make(map[string]*style.Style, len(entries))}
	var errs error
	for _, e := range entries {
		s, err := e.Build()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, p.Add(s))
	}
	if errs != nil {
		return nil, errs
	}
	return p, nil
}

// Add appends s. Names must be unique.
func (p *Palette) Add(s *style.Style) error {
	if _, ok := p.byName[s.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, s.Name())
	}
	p.byName[s.Name()] = s
	p.styles = append(p.styles, s)
	return nil
}

// Get returns the named style, or nil. It satisfies grid.Resolver.
func (p *Palette) Get(name string) *style.Style {
	return p.byName[name]
}

// Len returns the number of styles.
func (p *Palette) Len() int { return len(p.styles) }

// Styles returns the styles in insertion order.
func (p *Palette) Styles() []*style.Style { return p.styles }

// At returns the i-th style, wrapping around.
func (p *Palette) At(i int) *style.Style {
	if len(p.styles) == 0 {
		return nil
	}
	i %= len(p.styles)
	if i < 0 {
		i += len(p.styles)
	}
	return p.styles[i]
}

// Entries describes every style.
func (p *Palette) Entries() []Entry {
	out := make([]Entry, len(p.styles))
	for i, s := range p.styles {
		out[i] = EntryOf(s)
	}
	return out
}
