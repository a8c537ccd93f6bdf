// Package textnorm turns free-form Thai/Latin text into the comparison key
// and search tokens used by the catalog indexes.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalized is the comparison form of a piece of text.
type Normalized struct {
	// ComparisonKey is the lowercase, mark-free, single-spaced form.
	ComparisonKey string
	// Tokens are the distinct words of ComparisonKey in first-seen order.
	Tokens []string
}

// IsEmpty reports whether the text carried nothing searchable.
func (n Normalized) IsEmpty() bool {
	return n.ComparisonKey == "" && len(n.Tokens) == 0
}

var zeroWidth = runes.Predicate(func(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\ufeff':
		return true
	}
	return false
})

// Normalize is pure and total: any input, including "", yields a value.
func Normalize(text string) Normalized {
	key := comparisonKey(text)
	if key == "" {
		return Normalized{}
	}
	return Normalized{ComparisonKey: key, Tokens: tokenize(key)}
}

// Keywords builds the stored searchTokens array for a document: for every
// value the full comparison key followed by its tokens, deduplicated.
func Keywords(values ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, v := range values {
		n := Normalize(v)
		add(n.ComparisonKey)
		for _, tok := range n.Tokens {
			add(tok)
		}
	}
	return out
}

func comparisonKey(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return ""
	}

	// Transformers carry state, so the chain is built per call.
	t := transform.Chain(
		runes.Remove(zeroWidth),
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(foldRune),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = strings.Map(foldRune, s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// foldRune keeps Thai and Latin letters, digits and whitespace; everything
// else becomes a space.
func foldRune(r rune) rune {
	r = unicode.ToLower(r)
	switch {
	case unicode.IsLetter(r) && (unicode.Is(unicode.Thai, r) || unicode.Is(unicode.Latin, r)):
		return r
	case unicode.IsDigit(r), unicode.IsSpace(r):
		return r
	}
	return ' '
}

func tokenize(key string) []string {
	fields := strings.FieldsFunc(key, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}
