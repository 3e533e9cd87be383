package catalog

import (
	"path/filepath"
	"strings"
	"unicode"
)

const maxStemLen = 80

// SanitizeName strips control characters and replaces anything outside a
// conservative filename alphabet with underscores, truncating to maxLen runes
// when maxLen is positive.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', '(', ')':
		return true
	default:
		return false
	}
}

// stem returns the sanitized source filename without its extension, used as
// the prefix of every output name derived from that asset.
func stem(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	s := SanitizeName(base, maxStemLen)
	if s == "" {
		s = "asset"
	}
	return s
}

// RenditionFilename names one output: <stem>__<FORMAT_KEY>.mp4
func RenditionFilename(sourceFilename, formatKey string) string {
	return stem(sourceFilename) + "__" + formatKey + ".mp4"
}

// ArchiveFilename names the batch zip for an asset: <stem>__batch.zip
func ArchiveFilename(sourceFilename string) string {
	return stem(sourceFilename) + "__batch.zip"
}
