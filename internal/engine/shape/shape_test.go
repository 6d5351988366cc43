package shape

import (
	"errors"
	stdmath "math"
	"testing"

	"github.com/Faultbox/gridmesh/pkg/math"
)

func mustShape(t *testing.T, cfg Config) *Shape {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New(%+v) failed: %v", cfg, err)
	}
	return s
}

func testConfigs() map[string]Config {
	return map[string]Config{
		"rect xy":         {Kind: KindRect, CellWidth: 1, CellHeight: 1},
		"rect xz gap":     {Kind: KindRect, Orientation: OrientXZ, CellWidth: 2, CellHeight: 1.5, GapX: 0.25, GapY: 0.1},
		"hex xy":          {Kind: KindHex, CellWidth: 1.7320508, CellHeight: 2},
		"hex xz gap":      {Kind: KindHex, Orientation: OrientXZ, CellWidth: 1, CellHeight: 1, GapX: 0.2, GapY: 0.3},
		"hex wide no gap": {Kind: KindHex, CellWidth: 3, CellHeight: 1},
	}
}

func TestGridCoordinateRoundTrip(t *testing.T) {
	for name, cfg := range testConfigs() {
		t.Run(name, func(t *testing.T) {
			s := mustShape(t, cfg)
			for y := int32(-12); y <= 12; y++ {
				for x := int32(-12); x <= 12; x++ {
					c := Coord{x, y}
					got := s.GridCoordinate(s.TesselatedPosition(c))
					if got != c {
						t.Fatalf("GridCoordinate(TesselatedPosition(%v)) = %v", c, got)
					}
				}
			}
		})
	}
}

func TestGridCoordinateInsideCell(t *testing.T) {
	s := mustShape(t, Config{Kind: KindHex, CellWidth: 2, CellHeight: 2})
	c := Coord{3, 5}
	center := s.Offset(c)

	// Points well inside the hexagon but away from the centre still resolve to it.
	for _, d := range []math.Vec2{{0.5, 0.3}, {-0.6, -0.2}, {0, 0.8}, {0.7, -0.3}} {
		p := s.Embed(center.Add(d))
		if got := s.GridCoordinate(p); got != c {
			t.Errorf("GridCoordinate(centre+%v) = %v, want %v", d, got, c)
		}
		if !s.ContainsPoint(c, p) {
			t.Errorf("ContainsPoint(%v, centre+%v) = false", c, d)
		}
	}
}

func TestGridCoordinateGapIsInvalid(t *testing.T) {
	s := mustShape(t, Config{Kind: KindRect, CellWidth: 1, CellHeight: 1, GapX: 1, GapY: 1})
	// Cell (0,0) spans [-0.5, 0.5], cell (1,0) starts at 1.5.
	p := s.Embed(math.Vec2{X: 1.0, Y: 0})
	if got := s.GridCoordinate(p); got.Valid() {
		t.Errorf("GridCoordinate(gap) = %v, want Invalid", got)
	}
}

func TestTesselatedPositionFormulas(t *testing.T) {
	hex := mustShape(t, Config{Kind: KindHex, CellWidth: 2, CellHeight: 4, GapX: 0.5, GapY: 1})
	tests := []struct {
		c    Coord
		want math.Vec2
	}{
		{Coord{0, 0}, math.Vec2{X: 0, Y: 0}},
		{Coord{1, 0}, math.Vec2{X: 2.5, Y: 0}},
		{Coord{0, 1}, math.Vec2{X: 1, Y: 4}},
		{Coord{2, 3}, math.Vec2{X: 6, Y: 12}},
	}
	for _, tt := range tests {
		if got := hex.Offset(tt.c); got != tt.want {
			t.Errorf("hex Offset(%v) = %v, want %v", tt.c, got, tt.want)
		}
	}

	rect := mustShape(t, Config{Kind: KindRect, Orientation: OrientXZ, CellWidth: 2, CellHeight: 3, GapX: 1})
	if got, want := rect.TesselatedPosition(Coord{2, 1}), (math.Vec3{X: 6, Y: 0, Z: 3}); got != want {
		t.Errorf("rect TesselatedPosition = %v, want %v", got, want)
	}
}

func TestTemplate(t *testing.T) {
	tests := []struct {
		kind     Kind
		vertices int
		indices  int
	}{
		{KindRect, 4, 6},
		{KindHex, 6, 12},
	}
	for _, tt := range tests {
		s := mustShape(t, Config{Kind: tt.kind, CellWidth: 1, CellHeight: 1})
		if s.VerticesPerCell() != tt.vertices {
			t.Errorf("%v: VerticesPerCell = %d, want %d", tt.kind, s.VerticesPerCell(), tt.vertices)
		}
		if s.IndicesPerCell() != tt.indices {
			t.Errorf("%v: IndicesPerCell = %d, want %d", tt.kind, s.IndicesPerCell(), tt.indices)
		}
		m := s.Mesh()
		for _, idx := range m.Triangles {
			if int(idx) >= len(m.Vertices) {
				t.Errorf("%v: triangle index %d out of range", tt.kind, idx)
			}
		}
		for _, uv := range m.UVs {
			if uv.X < 0 || uv.X > 1 || uv.Y < 0 || uv.Y > 1 {
				t.Errorf("%v: uv %v outside [0,1]", tt.kind, uv)
			}
		}
		// Triangles wind counter-clockwise.
		for i := 0; i < len(m.Triangles); i += 3 {
			a := s.Outline()[m.Triangles[i]]
			b := s.Outline()[m.Triangles[i+1]]
			c := s.Outline()[m.Triangles[i+2]]
			if b.Sub(a).Cross(c.Sub(a)) <= 0 {
				t.Errorf("%v: triangle %d is not counter-clockwise", tt.kind, i/3)
			}
		}
	}
}

func TestRangeBoundsMatchesEnumeration(t *testing.T) {
	ranges := []Rect{
		NewRect(Coord{0, 0}, 1, 1),
		NewRect(Coord{0, 1}, 1, 1),
		NewRect(Coord{0, 0}, 4, 4),
		NewRect(Coord{3, 5}, 7, 2),
		NewRect(Coord{-4, -3}, 5, 1),
	}
	for name, cfg := range testConfigs() {
		s := mustShape(t, cfg)
		for _, r := range ranges {
			var want Bounds
			first := true
			r.Each(func(c Coord) {
				b := s.CellBounds().Translate(s.TesselatedPosition(c))
				if first {
					want, first = b, false
					return
				}
				want = want.Union(b)
			})
			got := s.RangeBounds(r)
			if !boundsApprox(got, want) {
				t.Errorf("%s: RangeBounds(%v) = %+v, want %+v", name, r, got, want)
			}
		}
	}
}

func TestRangeBoundsEmpty(t *testing.T) {
	s := mustShape(t, Config{Kind: KindRect, CellWidth: 1, CellHeight: 1})
	if got := s.RangeBounds(Rect{Start: Coord{2, 2}, End: Coord{2, 5}}); got != (Bounds{}) {
		t.Errorf("RangeBounds(empty) = %+v, want zero", got)
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"zero width", Config{Kind: KindRect, CellWidth: 0, CellHeight: 1}, ErrInvalidCellSize},
		{"negative height", Config{Kind: KindHex, CellWidth: 1, CellHeight: -1}, ErrInvalidCellSize},
		{"negative gap", Config{Kind: KindHex, CellWidth: 1, CellHeight: 1, GapY: -0.1}, ErrInvalidGap},
		{"unknown kind", Config{Kind: Kind(9), CellWidth: 1, CellHeight: 1}, ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if k, err := ParseKind("Hexagon"); err != nil || k != KindHex {
		t.Errorf("ParseKind(Hexagon) = %v, %v", k, err)
	}
	if _, err := ParseKind("triangle"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(triangle) error = %v", err)
	}
	if o, err := ParseOrientation("XZ"); err != nil || o != OrientXZ {
		t.Errorf("ParseOrientation(XZ) = %v, %v", o, err)
	}
	if o, err := ParseOrientation(""); err != nil || o != OrientXY {
		t.Errorf("ParseOrientation(\"\") = %v, %v", o, err)
	}
}

func boundsApprox(a, b Bounds) bool {
	return vecApprox(a.Min, b.Min) && vecApprox(a.Max, b.Max)
}

func vecApprox(a, b math.Vec3) bool {
	const eps = 1e-4
	return stdmath.Abs(float64(a.X-b.X)) < eps &&
		stdmath.Abs(float64(a.Y-b.Y)) < eps &&
		stdmath.Abs(float64(a.Z-b.Z)) < eps
}
