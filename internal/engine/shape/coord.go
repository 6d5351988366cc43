package shape

import (
	"fmt"
	stdmath "math"
)

// Coord identifies one cell of the logical grid.
type Coord struct {
	X, Y int32
}

// Invalid is returned by lookups that found no cell.
var Invalid = Coord{stdmath.MinInt32, stdmath.MinInt32}

// Key packs the coordinate into a collision-free 64-bit key.
func (c Coord) Key() uint64 {
	return uint64(uint32(c.X))<<32 | uint64(uint32(c.Y))
}

// Key32 packs the coordinate into 16 bits per axis. Coordinates beyond
// ±32767 collide; use Key unless a 32-bit key is required.
func (c Coord) Key32() uint32 {
	return uint32(uint16(c.X))<<16 | uint32(uint16(c.Y))
}

// FromKey reverses Key.
func FromKey(k uint64) Coord {
	return Coord{X: int32(uint32(k >> 32)), Y: int32(uint32(k))}
}

// Add returns c + o.
func (c Coord) Add(o Coord) Coord {
	return Coord{c.X + o.X, c.Y + o.Y}
}

// Valid reports whether c is not the Invalid sentinel.
func (c Coord) Valid() bool {
	return c != Invalid
}

func (c Coord) String() string {
	if c == Invalid {
		return "(invalid)"
	}
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// Rect is a half-open rectangle of coordinates [Start, End).
type Rect struct {
	Start Coord
	End   Coord
}

// NewRect returns the rectangle starting at start with the given size.
func NewRect(start Coord, width, height int32) Rect {
	return Rect{Start: start, End: Coord{start.X + width, start.Y + height}}
}

// Contains reports whether c lies inside the rectangle.
func (r Rect) Contains(c Coord) bool {
	return c.X >= r.Start.X && c.X < r.End.X && c.Y >= r.Start.Y && c.Y < r.End.Y
}

// Size returns the width and height of the rectangle.
func (r Rect) Size() Coord {
	return Coord{r.End.X - r.Start.X, r.End.Y - r.Start.Y}
}

// Empty reports whether the rectangle holds no coordinates.
func (r Rect) Empty() bool {
	return r.End.X <= r.Start.X || r.End.Y <= r.Start.Y
}

// Count returns the number of coordinates inside the rectangle.
func (r Rect) Count() int {
	if r.Empty() {
		return 0
	}
	s := r.Size()
	return int(s.X) * int(s.Y)
}

// Each calls fn for every coordinate in row-major order.
func (r Rect) Each(fn func(Coord)) {
	for y := r.Start.Y; y < r.End.Y; y++ {
		for x := r.Start.X; x < r.End.X; x++ {
			fn(Coord{x, y})
		}
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%v, %v)", r.Start, r.End)
}
