package engine

import (
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
)

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// TruncateAtWord truncates a string to maxLen runes at a word boundary.
func TruncateAtWord(s string, maxLen int) string {
	return strutil.TruncateAtWord(s, maxLen)
}

// CollapseSpace folds runs of whitespace into single spaces.
// Transcripts come back with stray newlines between segments.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
