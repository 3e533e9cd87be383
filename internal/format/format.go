// Package format holds the catalog of target display formats: LED panels,
// digital billboards, and the social presets kept around for side-by-side
// comparison. Profiles are immutable; the built-in catalog is fixed at
// compile time and ad-hoc profiles are created per request.
package format

import (
	"fmt"
	"math"
)

const (
	CategoryLED       = "LED Displays"
	CategoryBillboard = "Billboards"
	CategorySocial    = "Social Media"
	CategoryCustom    = "Custom"
)

// Profile is a named target geometry.
type Profile struct {
	Key         string `json:"key"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FPS         int    `json:"fps"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// AspectRatio returns width/height, or 0 for degenerate profiles.
func (p Profile) AspectRatio() float64 {
	if p.Height <= 0 {
		return 0
	}
	return float64(p.Width) / float64(p.Height)
}

var catalog = []Profile{
	{"LED_16x9_FHD", 1920, 1080, 30, "Full HD 16:9 LED Display", CategoryLED},
	{"LED_9x16_FHD", 1080, 1920, 30, "Full HD 9:16 Portrait LED Display", CategoryLED},
	{"LED_4x3_XGA", 1024, 768, 30, "XGA 4:3 LED Display", CategoryLED},
	{"LED_960x320", 960, 320, 30, "Ultra-wide LED Strip Display", CategoryLED},
	{"LED_256x128", 256, 128, 25, "Low-res LED Matrix Display", CategoryLED},
	{"LED_1280x720", 1280, 720, 30, "HD 16:9 LED Display", CategoryLED},
	{"LED_800x600", 800, 600, 30, "SVGA 4:3 LED Display", CategoryLED},
	{"LED_1024x1024", 1024, 1024, 30, "Square LED Display", CategoryLED},
	{"BILLBOARD_14x48", 1680, 480, 30, "Standard Billboard 14'x48'", CategoryBillboard},
	{"BILLBOARD_12x24", 1440, 720, 30, "Junior Billboard 12'x24'", CategoryBillboard},
	{"BILLBOARD_6x12", 720, 360, 30, "Poster Billboard 6'x12'", CategoryBillboard},
	{"INSTAGRAM_SQUARE", 1080, 1080, 30, "Instagram Square Post", CategorySocial},
	{"INSTAGRAM_STORY", 1080, 1920, 30, "Instagram Story", CategorySocial},
	{"YOUTUBE_16x9", 1920, 1080, 30, "YouTube 16:9 Video", CategorySocial},
	{"TIKTOK_9x16", 1080, 1920, 30, "TikTok Portrait Video", CategorySocial},
}

// All returns a copy of the built-in catalog.
func All() []Profile {
	out := make([]Profile, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a built-in profile by key.
func Lookup(key string) (Profile, bool) {
	for _, p := range catalog {
		if p.Key == key {
			return p, true
		}
	}
	return Profile{}, false
}

// ByAspect returns the built-in profiles whose aspect ratio is within 0.1 of
// the named ratio ("16:9", "9:16", "4:3", or "1:1").
func ByAspect(aspect string) []Profile {
	var want float64
	switch aspect {
	case "16:9":
		want = 16.0 / 9.0
	case "9:16":
		want = 9.0 / 16.0
	case "4:3":
		want = 4.0 / 3.0
	case "1:1":
		want = 1.0
	default:
		return nil
	}

	var out []Profile
	for _, p := range catalog {
		if math.Abs(p.AspectRatio()-want) < 0.1 {
			out = append(out, p)
		}
	}
	return out
}

// Custom builds an ad-hoc profile for a user-supplied size. fps <= 0 falls
// back to 30.
func Custom(width, height, fps int) Profile {
	if fps <= 0 {
		fps = 30
	}
	return Profile{
		Key:         fmt.Sprintf("CUSTOM_%dx%d", width, height),
		Width:       width,
		Height:      height,
		FPS:         fps,
		Description: fmt.Sprintf("Custom %dx%d", width, height),
		Category:    CategoryCustom,
	}
}

// Categories maps each category name to its profile keys, in catalog order.
func Categories() map[string][]string {
	out := make(map[string][]string)
	for _, p := range catalog {
		out[p.Category] = append(out[p.Category], p.Key)
	}
	return out
}
