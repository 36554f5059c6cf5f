package descriptor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// MaxFolderNameLength is the longest folder name SanitizeFolderName returns,
// counted in runes.
const MaxFolderNameLength = 255

const illegalFolderChars = `\/:*?"<>|`

// SanitizeFolderName turns a display name into a directory name that is
// safe on common filesystems. The display name itself is never changed.
func SanitizeFolderName(name string) string {
	if name == "" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(illegalFolderChars, r) {
			return -1
		}
		return r
	}, name)
	cleaned = trimEnds(cleaned)
	cleaned = truncate(cleaned, MaxFolderNameLength)
	return trimEnds(cleaned)
}

// trimEnds strips whitespace and periods from both ends until neither remains.
func trimEnds(s string) string {
	for {
		next := strings.Trim(strings.TrimFunc(s, unicode.IsSpace), ".")
		if next == s {
			return s
		}
		s = next
	}
}

// truncate keeps at most limit runes without splitting a grapheme cluster.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	var b strings.Builder
	runes := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		n := len(g.Runes())
		if runes+n > limit {
			break
		}
		b.WriteString(g.Str())
		runes += n
	}
	return b.String()
}
