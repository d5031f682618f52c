// Package chunk splits arbitrary-length text into pieces that fit a
// translation backend's payload budget without ever cutting inside a word.
//
// A split is reversible: every piece remembers the whitespace run that
// followed it in the source, so Join(Split(s, b)) == s for any budget b > 0.
// The budget applies to the text of a piece, not its separator, because the
// separator is never sent to the backend.
package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Piece is one budgeted fragment of the input.
type Piece struct {
	// Text is the fragment content with no leading or trailing whitespace,
	// except for oversized single words which are emitted verbatim.
	Text string
	// Sep is the exact whitespace run that followed Text in the source
	// (empty for the final piece when the source has no trailing whitespace).
	Sep string
	// Oversized marks a piece whose Text alone exceeds the budget because
	// the source contained a contiguous non-whitespace run longer than the
	// budget. Such pieces are emitted whole rather than corrupted.
	Oversized bool
}

// Split breaks text into pieces of at most budget bytes each, cutting only
// at whitespace boundaries. An empty input yields no pieces; an input that
// fits the budget yields exactly one. A single word longer than the budget
// becomes its own piece with Oversized set.
//
// budget must be positive.
func Split(text string, budget int) []Piece {
	if text == "" {
		return nil
	}

	words, seps := tokenize(text)

	var pieces []Piece
	var cur strings.Builder
	var curSep string // separator pending between cur and the next word

	flush := func(sep string) {
		if cur.Len() == 0 {
			return
		}
		pieces = append(pieces, Piece{Text: cur.String(), Sep: sep})
		cur.Reset()
	}

	for i, w := range words {
		if w == "" {
			// Leading whitespace run: carry it on an empty piece so the
			// round-trip stays exact.
			pieces = append(pieces, Piece{Text: "", Sep: seps[i]})
			continue
		}
		if len(w) > budget {
			// Degenerate: the word alone blows the budget. Close the current
			// piece, then emit the word whole.
			flush(curSep)
			pieces = append(pieces, Piece{Text: w, Sep: seps[i], Oversized: true})
			curSep = ""
			continue
		}

		add := len(w)
		if cur.Len() > 0 {
			add += len(curSep)
		}
		if cur.Len()+add > budget {
			flush(curSep)
		}
		if cur.Len() > 0 {
			cur.WriteString(curSep)
		}
		cur.WriteString(w)
		curSep = seps[i]
	}
	flush(curSep)

	return pieces
}

// Join reassembles pieces (or their translations) using the recorded
// separators. Join(Split(s, b)) reproduces s exactly.
func Join(pieces []Piece) string {
	var b strings.Builder
	for _, p := range pieces {
		b.WriteString(p.Text)
		b.WriteString(p.Sep)
	}
	return b.String()
}

// JoinTexts reassembles replacement texts (one per piece, in piece order)
// with the separators recorded at split time. Used after translating each
// piece independently.
func JoinTexts(pieces []Piece, texts []string) string {
	var b strings.Builder
	for i, p := range pieces {
		if i < len(texts) {
			b.WriteString(texts[i])
		} else {
			b.WriteString(p.Text)
		}
		b.WriteString(p.Sep)
	}
	return b.String()
}

// HasOversized reports whether any piece carries an oversized word.
func HasOversized(pieces []Piece) bool {
	for _, p := range pieces {
		if p.Oversized {
			return true
		}
	}
	return false
}

// tokenize splits text into maximal non-whitespace runs and the whitespace
// run following each. A leading whitespace run is attached to an initial
// empty word so that concatenation reproduces the input.
func tokenize(text string) (words, seps []string) {
	i := 0
	n := len(text)
	for i < n {
		start := i
		for i < n && !isSpaceAt(text, i) {
			i = nextRune(text, i)
		}
		word := text[start:i]

		sepStart := i
		for i < n && isSpaceAt(text, i) {
			i = nextRune(text, i)
		}
		words = append(words, word)
		seps = append(seps, text[sepStart:i])
	}
	return words, seps
}

func isSpaceAt(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsSpace(r)
}

func nextRune(s string, i int) int {
	_, size := utf8.DecodeRuneInString(s[i:])
	return i + size
}
