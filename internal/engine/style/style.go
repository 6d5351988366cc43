// Package style describes how grid cells look and how cells sharing a look
// are grouped.
package style

import (
	"encoding/binary"
	"fmt"
	"image/color"
	stdmath "math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Mode selects how a style is drawn.
type Mode uint8

const (
	// Material styles are bound to a material and get their own geometry group.
	Material Mode = iota
	// FlatColor styles are vertex painted and share one geometry group per layer.
	FlatColor
)

func (m Mode) String() string {
	if m == FlatColor {
		return "flat_color"
	}
	return "material"
}

var nextID atomic.Uint64

// Style is a shared, mutable description of a cell's look.
//
// Every Style has a unique reference identity (ID) and a visual hash that is
// equal for styles that render identically. Changing a visual property
// pushes the style onto every subscribed Queue.
type Style struct {
	id   uint64
	name string
	mode Mode

	mu          sync.RWMutex
	material    string
	color       color.RGBA
	params      map[string]float32
	hash        uint64
	subscribers []*Queue
}

// NewMaterial creates a material-bound style tinted with tint.
func NewMaterial(name, material string, tint color.RGBA) *Style {
	return newStyle(name, Material, material, tint)
}

// NewFlatColor creates a vertex-painted style.
func NewFlatColor(name string, c color.RGBA) *Style {
	return newStyle(name, FlatColor, "", c)
}

func newStyle(name string, mode Mode, material string, c color.RGBA) *Style {
	s := &Style{
		id:       nextID.Add(1),
		name:     name,
		mode:     mode,
		material: material,
		color:    c,
		params:   make(map[string]float32),
	}
	s.hash = s.computeHash()
	return s
}

// ID returns the reference identity of the style.
func (s *Style) ID() uint64 { return s.id }

// Name returns the style name used by persistence.
func (s *Style) Name() string { return s.name }

// Mode returns how the style is drawn.
func (s *Style) Mode() Mode { return s.mode }

// Material returns the material binding.
func (s *Style) Material() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.material
}

// Color returns the flat color or material tint.
func (s *Style) Color() color.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color
}

// Param returns a bound shader parameter.
func (s *Style) Param(name string) (float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.params[name]
	return v, ok
}

// Params returns a copy of the bound parameters.
func (s *Style) Params() map[string]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float32, len(s.params))
	for k, v := range s.params {
		out[k] = v
	}
	return out
}

// VisualHash returns a hash equal for every style that renders identically.
func (s *Style) VisualHash() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hash
}

// SetColor changes the color and notifies subscribers if the look changed.
func (s *Style) SetColor(c color.RGBA) {
	s.update(func() { s.color = c })
}

// SetMaterial changes the material binding.
func (s *Style) SetMaterial(material string) {
	s.update(func() { s.material = material })
}

// SetParam binds a shader parameter.
func (s *Style) SetParam(name string, v float32) {
	s.update(func() { s.params[name] = v })
}

func (s *Style) update(apply func()) {
	s.mu.Lock()
	apply()
	h := s.computeHash()
	if h == s.hash {
		s.mu.Unlock()
		return
	}
	s.hash = h
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()

	for _, q := range subs {
		q.push(s)
	}
}

// Subscribe registers q for change notifications. Subscribing twice is a no-op.
func (s *Style) Subscribe(q *Queue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.subscribers, q) {
		s.subscribers = append(s.subscribers, q)
	}
}

// Unsubscribe removes q from the change notifications.
func (s *Style) Unsubscribe(q *Queue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.subscribers, q); i >= 0 {
		s.subscribers = slices.Delete(s.subscribers, i, i+1)
	}
}

// Subscribers returns the number of subscribed queues.
func (s *Style) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

func (s *Style) String() string {
	return fmt.Sprintf("%s#%d(%v)", s.name, s.id, s.mode)
}

// computeHash must be called with s.mu held.
func (s *Style) computeHash() uint64 {
	d := xxhash.New()
	var buf [8]byte

	buf[0] = byte(s.mode)
	_, _ = d.Write(buf[:1])
	_, _ = d.WriteString(s.material)
	_, _ = d.Write([]byte{0, s.color.R, s.color.G, s.color.B, s.color.A})

	keys := make([]string, 0, len(s.params))
	for k := range s.params {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		_, _ = d.WriteString(k)
		binary.LittleEndian.PutUint32(buf[:4], stdmath.Float32bits(s.params[k]))
		_, _ = d.Write(buf[:4])
	}
	return d.Sum64()
}
