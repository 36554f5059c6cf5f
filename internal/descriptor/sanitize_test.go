package descriptor

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFolderName_Empty(t *testing.T) {
	if got := SanitizeFolderName(""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestSanitizeFolderName_Periods(t *testing.T) {
	cases := map[string]string{
		".test":      "test",
		" .test":     "test",
		"test.":      "test",
		"test. ":     "test",
		". . test..": "test",
		"a.b":        "a.b",
	}
	for in, want := range cases {
		if got := SanitizeFolderName(in); got != want {
			t.Errorf("SanitizeFolderName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFolderName_ValidUntouched(t *testing.T) {
	for _, in := range []string{"Simple example", "This is okay!", "1+1=2", "Données été", "研究 2026"} {
		if got := SanitizeFolderName(in); got != in {
			t.Errorf("SanitizeFolderName(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestSanitizeFolderName_IllegalCharacters(t *testing.T) {
	cases := map[string]string{
		`a\b/c:d*e?f"g<h>i|j`:    "abcdefghij",
		".My: Test** Project ??": "My Test Project",
		"tab\there":              "tabhere",
		"a\x01b":                 "ab",
		"?.hidden":               "hidden",
	}
	for in, want := range cases {
		if got := SanitizeFolderName(in); got != want {
			t.Errorf("SanitizeFolderName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFolderName_Truncates(t *testing.T) {
	long := strings.Repeat("a", 255)
	if got := SanitizeFolderName(long); got != long {
		t.Errorf("255 chars should be kept, got %d", len(got))
	}
	if got := SanitizeFolderName(long + "a"); got != long {
		t.Errorf("256 chars should be cut to 255, got %d", len(got))
	}
}

func TestSanitizeFolderName_TruncatesOnGraphemes(t *testing.T) {
	// "e" + combining acute accent is one grapheme made of two runes.
	in := strings.Repeat("a", 254) + "e\u0301" + "z"
	got := SanitizeFolderName(in)
	if utf8.RuneCountInString(got) > MaxFolderNameLength {
		t.Fatalf("too long: %d runes", utf8.RuneCountInString(got))
	}
	if strings.HasSuffix(got, "e") {
		t.Errorf("grapheme was split: %q", got[len(got)-3:])
	}
	if got != strings.Repeat("a", 254) {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeFolderName_TruncationRetrims(t *testing.T) {
	in := strings.Repeat("a", 254) + ".b"
	got := SanitizeFolderName(in)
	if got != strings.Repeat("a", 254) {
		t.Errorf("trailing period left after truncation: %q", got[250:])
	}
}

func TestSanitizeFolderName_Idempotent(t *testing.T) {
	inputs := []string{
		"", ".test", "test. ", ".My: Test** Project ??", " . x . ",
		strings.Repeat("a", 300), strings.Repeat("ab. ", 80), "研究: 2026?",
	}
	for _, in := range inputs {
		once := SanitizeFolderName(in)
		if twice := SanitizeFolderName(once); twice != once {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
