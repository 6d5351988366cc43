// Package shape defines the per-cell template geometry of a grid and the
// transform between grid coordinates and local positions.
package shape

import (
	"errors"
	"fmt"
	stdmath "math"
	"strings"

	"github.com/Faultbox/gridmesh/pkg/math"
)

// Configuration errors.
var (
	ErrInvalidCellSize = errors.New("shape: cell width and height must be positive")
	ErrInvalidGap      = errors.New("shape: gap must not be negative")
	ErrUnknownKind     = errors.New("shape: unknown kind")
	ErrUnknownPlane    = errors.New("shape: unknown orientation")
)

// Kind selects the tessellation.
type Kind uint8

const (
	KindRect Kind = iota
	KindHex
)

func (k Kind) String() string {
	switch k {
	case KindRect:
		return "rect"
	case KindHex:
		return "hex"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind converts a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "rect", "rectangle", "square":
		return KindRect, nil
	case "hex", "hexagon":
		return KindHex, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Orientation selects which plane the flat template occupies in 3D.
type Orientation uint8

const (
	// OrientXY places cells on the XY plane (Z = 0).
	OrientXY Orientation = iota
	// OrientXZ places cells on the XZ plane (Y = 0).
	OrientXZ
)

func (o Orientation) String() string {
	if o == OrientXZ {
		return "xz"
	}
	return "xy"
}

// ParseOrientation converts a configuration string to an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(s) {
	case "", "xy":
		return OrientXY, nil
	case "xz":
		return OrientXZ, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPlane, s)
}

// Config describes one grid shape.
type Config struct {
	Kind        Kind
	Orientation Orientation
	CellWidth   float32
	CellHeight  float32
	GapX        float32
	GapY        float32
}

// Template is the untransformed mesh of a single cell.
type Template struct {
	Vertices  []math.Vec3
	UVs       []math.Vec2
	Triangles []uint32
}

// Shape is the immutable geometry of one grid configuration.
type Shape struct {
	cfg Config

	outline   []math.Vec2 // counter-clockwise, also the vertex list
	uvs       []math.Vec2
	triangles []uint32

	cellMin math.Vec2
	cellMax math.Vec2

	stepX    float32
	stepY    float32
	rowShift float32 // added to X on odd rows
	scan     int32   // neighborhood radius for GridCoordinate
}

// New builds the template geometry for cfg.
func New(cfg Config) (*Shape, error) {
	if cfg.CellWidth <= 0 || cfg.CellHeight <= 0 {
		return nil, ErrInvalidCellSize
	}
	if cfg.GapX < 0 || cfg.GapY < 0 {
		return nil, ErrInvalidGap
	}

	w, h := cfg.CellWidth, cfg.CellHeight
	s := &Shape{cfg: cfg}

	switch cfg.Kind {
	case KindRect:
		s.outline = []math.Vec2{
			{-w / 2, -h / 2},
			{w / 2, -h / 2},
			{w / 2, h / 2},
			{-w / 2, h / 2},
		}
		s.triangles = []uint32{0, 1, 2, 0, 2, 3}
		s.stepX = w + cfg.GapX
		s.stepY = h + cfg.GapY
		s.scan = 1

	case KindHex:
		// Pointy-top hexagon, odd rows shifted right by half a cell.
		s.outline = []math.Vec2{
			{0, h / 2},
			{-w / 2, h / 4},
			{-w / 2, -h / 4},
			{0, -h / 2},
			{w / 2, -h / 4},
			{w / 2, h / 4},
		}
		s.triangles = []uint32{0, 1, 2, 0, 2, 3, 0, 3, 4, 0, 4, 5}
		s.stepX = w + cfg.GapX
		s.stepY = h*0.75 + cfg.GapY
		s.rowShift = w / 2
		s.scan = 2

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, cfg.Kind)
	}

	s.cellMin = s.outline[0]
	s.cellMax = s.outline[0]
	for _, v := range s.outline[1:] {
		s.cellMin = s.cellMin.Min(v)
		s.cellMax = s.cellMax.Max(v)
	}

	s.uvs = make([]math.Vec2, len(s.outline))
	for i, v := range s.outline {
		s.uvs[i] = math.Vec2{
			X: (v.X - s.cellMin.X) / w,
			Y: (v.Y - s.cellMin.Y) / h,
		}
	}

	return s, nil
}

// Config returns the configuration the shape was built from.
func (s *Shape) Config() Config {
	return s.cfg
}

// Kind returns the tessellation kind.
func (s *Shape) Kind() Kind {
	return s.cfg.Kind
}

// VerticesPerCell returns the number of vertices one cell contributes.
func (s *Shape) VerticesPerCell() int {
	return len(s.outline)
}

// IndicesPerCell returns the number of triangle indices one cell contributes.
func (s *Shape) IndicesPerCell() int {
	return len(s.triangles)
}

// Outline returns the template vertices in 2D. The slice must not be modified.
func (s *Shape) Outline() []math.Vec2 {
	return s.outline
}

// UVs returns the template texture coordinates. The slice must not be modified.
func (s *Shape) UVs() []math.Vec2 {
	return s.uvs
}

// Triangles returns the template triangle indices. The slice must not be modified.
func (s *Shape) Triangles() []uint32 {
	return s.triangles
}

// Mesh returns a copy of the untransformed cell mesh embedded in 3D.
func (s *Shape) Mesh() Template {
	t := Template{
		Vertices:  make([]math.Vec3, len(s.outline)),
		UVs:       append([]math.Vec2(nil), s.uvs...),
		Triangles: append([]uint32(nil), s.triangles...),
	}
	for i, v := range s.outline {
		t.Vertices[i] = s.Embed(v)
	}
	return t
}

// Embed maps a point of the flat template plane into 3D.
func (s *Shape) Embed(p math.Vec2) math.Vec3 {
	if s.cfg.Orientation == OrientXZ {
		return math.Vec3{X: p.X, Y: 0, Z: p.Y}
	}
	return math.Vec3{X: p.X, Y: p.Y, Z: 0}
}

// Flatten projects a 3D point onto the template plane.
func (s *Shape) Flatten(p math.Vec3) math.Vec2 {
	if s.cfg.Orientation == OrientXZ {
		return p.XZ()
	}
	return p.XY()
}

// Offset returns the 2D centre of cell c.
func (s *Shape) Offset(c Coord) math.Vec2 {
	x := float32(c.X) * s.stepX
	if c.Y&1 != 0 {
		x += s.rowShift
	}
	return math.Vec2{X: x, Y: float32(c.Y) * s.stepY}
}

// TesselatedPosition returns the local position of cell c.
func (s *Shape) TesselatedPosition(c Coord) math.Vec3 {
	return s.Embed(s.Offset(c))
}

// GridCoordinate returns the cell containing local position p, or Invalid.
func (s *Shape) GridCoordinate(p math.Vec3) Coord {
	q := s.Flatten(p)

	ey := roundCoord(float64(q.Y) / float64(s.stepY))
	shift := float32(0)
	if ey&1 != 0 {
		shift = s.rowShift
	}
	ex := roundCoord(float64(q.X-shift) / float64(s.stepX))

	best := Invalid
	bestDist := float32(stdmath.MaxFloat32)
	for dy := -s.scan; dy <= s.scan; dy++ {
		for dx := -s.scan; dx <= s.scan; dx++ {
			c := Coord{ex + dx, ey + dy}
			local := q.Sub(s.Offset(c))
			if !pointInPolygon(local, s.outline) {
				continue
			}
			if d := local.LengthSq(); d < bestDist {
				best, bestDist = c, d
			}
		}
	}
	return best
}

// ContainsPoint reports whether local position p lies inside cell c.
func (s *Shape) ContainsPoint(c Coord, p math.Vec3) bool {
	return pointInPolygon(s.Flatten(p).Sub(s.Offset(c)), s.outline)
}

// CellBounds returns the bounding box of one untransformed cell.
func (s *Shape) CellBounds() Bounds {
	return Bounds{
		Min: s.Embed(s.cellMin),
		Max: s.Embed(s.cellMax),
	}
}

// RangeBounds returns the bounding box of every cell in r without
// enumerating them.
func (s *Shape) RangeBounds(r Rect) Bounds {
	if r.Empty() {
		return Bounds{}
	}

	rows := r.End.Y - r.Start.Y
	startOdd := r.Start.Y&1 != 0
	hasEven := rows > 1 || !startOdd
	hasOdd := rows > 1 || startOdd

	minX := float32(r.Start.X)*s.stepX + s.cellMin.X
	if !hasEven {
		minX += s.rowShift
	}
	maxX := float32(r.End.X-1)*s.stepX + s.cellMax.X
	if hasOdd {
		maxX += s.rowShift
	}
	minY := float32(r.Start.Y)*s.stepY + s.cellMin.Y
	maxY := float32(r.End.Y-1)*s.stepY + s.cellMax.Y

	return Bounds{
		Min: s.Embed(math.Vec2{X: minX, Y: minY}),
		Max: s.Embed(math.Vec2{X: maxX, Y: maxY}),
	}
}

// pointInPolygon is a crossing-number test.
func pointInPolygon(p math.Vec2, poly []math.Vec2) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

func roundCoord(v float64) int32 {
	v = stdmath.Round(v)
	if v > stdmath.MaxInt32 {
		return stdmath.MaxInt32
	}
	if v < stdmath.MinInt32+1 {
		return stdmath.MinInt32 + 1
	}
	return int32(v)
}
