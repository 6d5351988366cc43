package style

import (
	"fmt"
	"strings"
)

// KeyMode selects the identity rule used to group cells.
type KeyMode uint8

const (
	// ByVisual groups distinct styles that render identically.
	ByVisual KeyMode = iota
	// ByReference keeps one group per style instance.
	ByReference
)

func (m KeyMode) String() string {
	if m == ByReference {
		return "reference"
	}
	return "visual"
}

// ParseKeyMode converts a configuration string to a KeyMode.
func ParseKeyMode(s string) (KeyMode, error) {
	switch strings.ToLower(s) {
	case "", "visual", "hash":
		return ByVisual, nil
	case "reference", "ref":
		return ByReference, nil
	}
	return 0, fmt.Errorf("style: unknown key mode %q", s)
}

// Key is a grouping key produced by a KeyFunc.
type Key struct {
	Mode  KeyMode
	Value uint64
}

// KeyFunc maps a style to its grouping key.
type KeyFunc func(*Style) Key

// KeyByReference keys a style by its reference identity.
func KeyByReference(s *Style) Key {
	return Key{Mode: ByReference, Value: s.ID()}
}

// KeyByVisual keys a style by its visual hash.
func KeyByVisual(s *Style) Key {
	return Key{Mode: ByVisual, Value: s.VisualHash()}
}

// KeyFunc returns the key function for the mode.
func (m KeyMode) KeyFunc() KeyFunc {
	if m == ByReference {
		return KeyByReference
	}
	return KeyByVisual
}

// Equal reports whether a and b fall into the same group under mode.
func Equal(a, b *Style, mode KeyMode) bool {
	if a == nil || b == nil {
		return a == b
	}
	f := mode.KeyFunc()
	return f(a) == f(b)
}
