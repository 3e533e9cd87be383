package catalog

import "testing"

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"clean", "Summer Sale (v2).mp4", 0, "Summer Sale (v2).mp4"},
		{"slashes", "a/b\\c", 0, "a_b_c"},
		{"control chars", "ab\x00\x1fcd", 0, "abcd"},
		{"truncated", "abcdefgh", 4, "abcd"},
		{"trimmed", "  spaced  ", 0, "spaced"},
		{"unicode kept", "vidéo über", 0, "vidéo über"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("SanitizeName(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestRenditionFilename(t *testing.T) {
	got := RenditionFilename("Summer Sale.mp4", "LED_16_9")
	if got != "Summer Sale__LED_16_9.mp4" {
		t.Errorf("RenditionFilename = %q", got)
	}
}

func TestArchiveFilename(t *testing.T) {
	got := ArchiveFilename("clip.mov")
	if got != "clip__batch.zip" {
		t.Errorf("ArchiveFilename = %q", got)
	}
}

func TestStem_EmptyFallsBack(t *testing.T) {
	if got := stem("???.mp4"); got != "___" {
		// every rune replaced, not dropped
		t.Errorf("stem = %q, want ___", got)
	}
	if got := stem(".mp4"); got != "asset" {
		t.Errorf("stem = %q, want asset fallback", got)
	}
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"clip.mp4", true},
		{"clip.MOV", true},
		{"clip.webm", true},
		{"clip.m4v", true},
		{"photo.jpg", false},
		{"noext", false},
		{"clip.mp4.txt", false},
	}
	for _, tt := range tests {
		if got := IsVideoFile(tt.filename); got != tt.want {
			t.Errorf("IsVideoFile(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}
