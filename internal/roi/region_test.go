package roi

import (
	"math"
	"testing"
)

func TestUnion_Empty(t *testing.T) {
	if _, ok := Union(nil); ok {
		t.Fatal("Union(nil) ok = true, want false")
	}
	if _, ok := Union([]Region{}); ok {
		t.Fatal("Union([]) ok = true, want false")
	}
}

func TestUnion_SingletonIdempotent(t *testing.T) {
	regions := []Region{
		{X: 0, Y: 0, W: 1, H: 1},
		{X: 0.25, Y: 0.5, W: 0.1, H: 0.05},
		{X: 0.9, Y: 0.9, W: 0.1, H: 0.1},
	}
	for _, r := range regions {
		got, ok := Union([]Region{r})
		if !ok {
			t.Fatalf("Union([%+v]) ok = false", r)
		}
		if got != r {
			t.Errorf("Union([%+v]) = %+v, want input unchanged", r, got)
		}
	}
}

func TestUnion_OrderIndependent(t *testing.T) {
	a := Region{X: 0.1, Y: 0.2, W: 0.3, H: 0.1}
	b := Region{X: 0.5, Y: 0.05, W: 0.2, H: 0.6}
	c := Region{X: 0.0, Y: 0.7, W: 0.1, H: 0.2}

	perms := [][]Region{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}

	first, _ := Union(perms[0])
	for i, p := range perms[1:] {
		got, _ := Union(p)
		if got != first {
			t.Errorf("permutation %d: Union = %+v, want %+v", i+1, got, first)
		}
	}
}

func TestUnion_TwoDisjointRegions(t *testing.T) {
	got, ok := Union([]Region{
		{X: 0.1, Y: 0.1, W: 0.2, H: 0.2},
		{X: 0.6, Y: 0.6, W: 0.1, H: 0.1},
	})
	if !ok {
		t.Fatal("Union ok = false")
	}

	want := Region{X: 0.1, Y: 0.1, W: 0.6, H: 0.6}
	if !regionsClose(got, want) {
		t.Fatalf("Union = %+v, want %+v", got, want)
	}

	center := got.Center()
	if !floatsClose(center.CX, 0.4) || !floatsClose(center.CY, 0.4) {
		t.Errorf("center = (%v, %v), want (0.4, 0.4)", center.CX, center.CY)
	}
}

func TestUnion_ClampsToUnitSquare(t *testing.T) {
	got, ok := Union([]Region{{X: 0.8, Y: 0.9, W: 0.5, H: 0.4}})
	if !ok {
		t.Fatal("Union ok = false")
	}
	if got.X+got.W > 1.0001 || got.Y+got.H > 1.0001 {
		t.Errorf("union exceeds unit square: %+v", got)
	}
}

func TestSuggestCropCenter_NoRegions(t *testing.T) {
	if _, ok := SuggestCropCenter(nil, 3); ok {
		t.Error("SuggestCropCenter(nil) ok = true, want false")
	}
	if _, ok := SuggestCropCenter([][]Region{{}, {}, {}}, 3); ok {
		t.Error("SuggestCropCenter(empty frames) ok = true, want false")
	}
}

func TestSuggestCropCenter_CenterInBounds(t *testing.T) {
	frames := [][]Region{
		{{X: 0, Y: 0, W: 0.1, H: 0.1}},
		{{X: 0.95, Y: 0.95, W: 0.05, H: 0.05}},
	}
	c, ok := SuggestCropCenter(frames, 3)
	if !ok {
		t.Fatal("SuggestCropCenter ok = false")
	}
	if c.CX < 0 || c.CX > 1 || c.CY < 0 || c.CY > 1 {
		t.Errorf("center (%v, %v) outside [0,1]x[0,1]", c.CX, c.CY)
	}
}

func TestSuggestCropCenter_CapsRegionsPerFrame(t *testing.T) {
	// The fourth region would drag the union to the far corner; the cap
	// must discard it.
	frames := [][]Region{{
		{X: 0.1, Y: 0.1, W: 0.1, H: 0.1},
		{X: 0.15, Y: 0.15, W: 0.1, H: 0.1},
		{X: 0.2, Y: 0.2, W: 0.1, H: 0.1},
		{X: 0.9, Y: 0.9, W: 0.1, H: 0.1},
	}}

	c, ok := SuggestCropCenter(frames, 3)
	if !ok {
		t.Fatal("SuggestCropCenter ok = false")
	}
	if c.CX > 0.5 || c.CY > 0.5 {
		t.Errorf("center (%v, %v) pulled past midpoint, cap not applied", c.CX, c.CY)
	}
}

func TestSuggestCropCenter_DefaultCap(t *testing.T) {
	frames := [][]Region{{
		{X: 0.1, Y: 0.1, W: 0.1, H: 0.1},
		{X: 0.1, Y: 0.1, W: 0.1, H: 0.1},
		{X: 0.1, Y: 0.1, W: 0.1, H: 0.1},
		{X: 0.9, Y: 0.9, W: 0.1, H: 0.1},
	}}

	c, ok := SuggestCropCenter(frames, 0)
	if !ok {
		t.Fatal("SuggestCropCenter ok = false")
	}
	if !floatsClose(c.CX, 0.15) || !floatsClose(c.CY, 0.15) {
		t.Errorf("center = (%v, %v), want (0.15, 0.15)", c.CX, c.CY)
	}
}

func TestRegion_Valid(t *testing.T) {
	tests := []struct {
		name string
		r    Region
		want bool
	}{
		{"zero", Region{}, true},
		{"full frame", Region{0, 0, 1, 1}, true},
		{"interior", Region{0.2, 0.3, 0.4, 0.1}, true},
		{"negative x", Region{-0.1, 0, 0.5, 0.5}, false},
		{"width over one", Region{0, 0, 1.5, 0.5}, false},
		{"nan", Region{math.NaN(), 0, 0.5, 0.5}, false},
		{"inf", Region{0, math.Inf(1), 0.5, 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Valid(); got != tt.want {
				t.Errorf("Valid(%+v) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func regionsClose(a, b Region) bool {
	return floatsClose(a.X, b.X) && floatsClose(a.Y, b.Y) &&
		floatsClose(a.W, b.W) && floatsClose(a.H, b.H)
}

func floatsClose(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
