// Package roi holds the region-of-interest geometry used to bias fill-mode
// cropping: normalized rectangles reported by the detector, their bounding-box
// union, and the crop-center suggestion derived from it.
package roi

import "math"

// DefaultMaxRegionsPerFrame caps how many detected regions a single sampled
// frame may contribute to the union, limiting the damage of detector false
// positives.
const DefaultMaxRegionsPerFrame = 3

// Region is a rectangle normalized to the frame: X, Y, W, H all in [0,1],
// relative to frame width/height.
type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Valid reports whether every component is a finite value in [0,1].
func (r Region) Valid() bool {
	for _, v := range [4]float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Center returns the midpoint of the region.
func (r Region) Center() Center {
	return Center{CX: r.X + r.W/2, CY: r.Y + r.H/2}
}

// Center is a normalized point in [0,1]x[0,1] used to recenter a fill-mode
// crop window.
type Center struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
}

// Union computes the axis-aligned bounding box covering all input regions,
// clamped to the unit square. It reports false for an empty input.
//
// This is a bounding-box union, not a union of areas: disjoint regions are
// absorbed into one rectangle that may be far larger than any input. The
// consumer only needs a single centroid, so the simplification is deliberate.
func Union(regions []Region) (Region, bool) {
	if len(regions) == 0 {
		return Region{}, false
	}

	left, top := regions[0].X, regions[0].Y
	right, bottom := regions[0].X+regions[0].W, regions[0].Y+regions[0].H
	for _, r := range regions[1:] {
		left = math.Min(left, r.X)
		top = math.Min(top, r.Y)
		right = math.Max(right, r.X+r.W)
		bottom = math.Max(bottom, r.Y+r.H)
	}

	left = math.Max(0, left)
	top = math.Max(0, top)
	right = math.Min(1, right)
	bottom = math.Min(1, bottom)

	return Region{
		X: left,
		Y: top,
		W: math.Max(0, right-left),
		H: math.Max(0, bottom-top),
	}, true
}

// SuggestCropCenter pools the detected regions of all sampled frames, keeping
// at most maxPerFrame regions per frame (DefaultMaxRegionsPerFrame when
// maxPerFrame <= 0), and returns the center of their bounding-box union.
// It reports false when no frame contributed any region; callers then fall
// back to geometric-center cropping.
func SuggestCropCenter(frames [][]Region, maxPerFrame int) (Center, bool) {
	if maxPerFrame <= 0 {
		maxPerFrame = DefaultMaxRegionsPerFrame
	}

	var pool []Region
	for _, regions := range frames {
		if len(regions) > maxPerFrame {
			regions = regions[:maxPerFrame]
		}
		pool = append(pool, regions...)
	}

	u, ok := Union(pool)
	if !ok {
		return Center{}, false
	}
	return u.Center(), true
}
