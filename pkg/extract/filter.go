package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultMinLength is the shortest trimmed string, in characters, that
	// survives filtering.
	DefaultMinLength = 5

	// DefaultMaxNoiseRatio is the largest share of "other" symbols a trimmed
	// string may contain.
	DefaultMaxNoiseRatio = 0.3
)

// Hangul syllables block. Korean text counts as signal; other non-Latin
// scripts count as noise.
const (
	hangulFirst = '가'
	hangulLast  = '힣'
)

// Predicate reports whether a trimmed candidate should be kept.
type Predicate func(trimmed string) bool

// Filter drops candidates that are unlikely to be human-written text.
type Filter struct {
	MinLength     int
	MaxNoiseRatio float64
}

// NewFilter returns a Filter with the default thresholds.
func NewFilter() *Filter {
	return &Filter{
		MinLength:     DefaultMinLength,
		MaxNoiseRatio: DefaultMaxNoiseRatio,
	}
}

// FilterStrings applies the default Filter to candidates.
func FilterStrings(candidates []string) []string {
	return NewFilter().Apply(candidates)
}

// Predicates returns the checks applied by f, cheapest first.
func (f *Filter) Predicates() []Predicate {
	return []Predicate{
		f.LongEnough,
		NotUUID,
		NotHexRun,
		f.LowNoise,
	}
}

// Keep reports whether s passes every predicate. Predicates see s with
// surrounding whitespace removed.
func (f *Filter) Keep(s string) bool {
	t := strings.TrimFunc(s, isSpace)
	for _, p := range f.Predicates() {
		if !p(t) {
			return false
		}
	}
	return true
}

// Apply returns the candidates that pass Keep, in their original order and
// untrimmed. The result is never nil.
func (f *Filter) Apply(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, s := range candidates {
		if f.Keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// LongEnough reports whether t has at least MinLength characters.
func (f *Filter) LongEnough(t string) bool {
	return utf8.RuneCountInString(t) >= f.MinLength
}

// NotUUID reports whether t is anything other than a canonical
// 8-4-4-4-12 hex UUID.
func NotUUID(t string) bool {
	// uuid.Parse also accepts braced, urn: and undashed forms, all of which
	// have a different length.
	if len(t) != 36 {
		return true
	}
	_, err := uuid.Parse(t)
	return err != nil
}

// NotHexRun reports whether t is anything other than 16 to 64 hex digits.
func NotHexRun(t string) bool {
	if len(t) < 16 || len(t) > 64 {
		return true
	}
	for i := 0; i < len(t); i++ {
		if !isHexDigit(t[i]) {
			return true
		}
	}
	return false
}

// LowNoise reports whether at most MaxNoiseRatio of t's characters fall
// outside ASCII letters, ASCII digits, whitespace and Hangul syllables.
func (f *Filter) LowNoise(t string) bool {
	total, noise := 0, 0
	for _, r := range t {
		total++
		if !isSignalRune(r) {
			noise++
		}
	}
	return float64(noise) <= float64(total)*f.MaxNoiseRatio
}

func isSignalRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r >= hangulFirst && r <= hangulLast:
		return true
	}
	return isSpace(r)
}

// isSpace is the ECMAScript whitespace set: Unicode White_Space without
// U+0085, plus the byte order mark.
func isSpace(r rune) bool {
	switch r {
	case '\u0085':
		return false
	case '\ufeff':
		return true
	}
	return unicode.IsSpace(r)
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
