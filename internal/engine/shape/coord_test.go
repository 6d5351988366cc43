package shape

import "testing"

func TestKeyRoundTrip(t *testing.T) {
	coords := []Coord{{0, 0}, {1, -1}, {-32768, 32767}, {70000, -70000}, {2147483647, -2147483648}}
	for _, c := range coords {
		if got := FromKey(c.Key()); got != c {
			t.Errorf("FromKey(Key(%v)) = %v", c, got)
		}
	}
}

func TestKeyDistinctBeyond16Bits(t *testing.T) {
	a := Coord{1, 0}
	b := Coord{65537, 0}
	if a.Key32() != b.Key32() {
		t.Fatalf("expected 32-bit keys to collide for %v and %v", a, b)
	}
	if a.Key() == b.Key() {
		t.Errorf("64-bit keys collide for %v and %v", a, b)
	}
}

func TestRect(t *testing.T) {
	r := NewRect(Coord{4, 4}, 4, 4)
	if r.End != (Coord{8, 8}) {
		t.Errorf("End = %v, want (8, 8)", r.End)
	}
	if !r.Contains(Coord{4, 7}) || r.Contains(Coord{8, 4}) || r.Contains(Coord{3, 5}) {
		t.Error("Contains does not honour half-open bounds")
	}
	if r.Count() != 16 {
		t.Errorf("Count = %d, want 16", r.Count())
	}

	var seen []Coord
	NewRect(Coord{0, 0}, 2, 2).Each(func(c Coord) { seen = append(seen, c) })
	want := []Coord{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Each order[%d] = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestInvalid(t *testing.T) {
	if Invalid.Valid() {
		t.Error("Invalid.Valid() = true")
	}
	if Invalid.String() != "(invalid)" {
		t.Errorf("Invalid.String() = %q", Invalid.String())
	}
}
