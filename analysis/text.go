package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TextOptions configures a text analyzer.
type TextOptions struct {
	// Locale is a BCP 47 tag used for case folding. Empty means root locale.
	Locale string

	// KeepCase disables lower-casing.
	KeepCase bool

	// KeepAccent disables diacritic removal.
	KeepAccent bool

	// StopWords are dropped after normalization. Positions still advance.
	StopWords []string
}

// Text splits on anything that is not a letter or digit and normalizes
// case and accents.
type Text struct {
	name      string
	tag       language.Tag
	opts      TextOptions
	stopWords map[string]struct{}
}

// NewText creates a text analyzer.
func NewText(name string, opts TextOptions) *Text {
	tag := language.Und
	if opts.Locale != "" {
		if parsed, err := language.Parse(opts.Locale); err == nil {
			tag = parsed
		}
	}
	t := &Text{
		name:      name,
		tag:       tag,
		opts:      opts,
		stopWords: make(map[string]struct{}, len(opts.StopWords)),
	}
	for _, w := range opts.StopWords {
		t.stopWords[t.normalize(w)] = struct{}{}
	}
	return t
}

func (t *Text) Name() string { return t.name }
func (t *Text) Kind() Kind   { return KindText }

func (t *Text) Analyze(input string) []Token {
	words := strings.FieldsFunc(input, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := make([]Token, 0, len(words))
	for pos, w := range words {
		term := t.normalize(w)
		if _, stop := t.stopWords[term]; stop {
			continue
		}
		out = append(out, Token{Term: term, Position: pos})
	}
	return out
}

// normalize builds its transformers per call; they are stateful.
func (t *Text) normalize(s string) string {
	if !t.opts.KeepAccent {
		stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
		if err == nil {
			s = stripped
		}
	}
	if !t.opts.KeepCase {
		s = cases.Lower(t.tag).String(s)
	}
	return s
}
