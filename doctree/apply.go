package doctree

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ---------------------------------------------------------------------------
// Applying translations
// ---------------------------------------------------------------------------

// Apply rewrites the carriers named in translations. Attribute carriers get
// the new value verbatim, text carriers get their character data replaced,
// and line carriers redistribute the translated words across their original
// token elements. Refs not present in the map are left untouched; a Ref the
// tree never issued is an error.
//
// Apply is a single stateless pass: callers resolve all translations for a
// document first, then apply once.
func (t *Tree) Apply(translations map[Ref]string) error {
	for r := range translations {
		if _, err := t.carrierAt(r); err != nil {
			return err
		}
	}
	for r := Ref(0); int(r) < len(t.carriers); r++ {
		text, ok := translations[r]
		if !ok {
			continue
		}
		c := t.carriers[int(r)]
		switch {
		case c.tokens != nil:
			redistribute(c.tokens, c.attr, text)
		case c.attr != "":
			c.el.CreateAttr(c.attr, text)
		default:
			c.el.SetText(text)
		}
	}
	return nil
}

// redistribute splits a translated line into words and deals them out over
// the original token elements: an even share per token, with the remainder
// handed out one extra word to the leading tokens. With fewer words than
// tokens the trailing tokens end up empty. Deterministic for every
// words/tokens ratio.
func redistribute(tokens []*etree.Element, attr string, text string) {
	words := strings.Fields(text)
	n := len(words)
	k := len(tokens)
	per := n / k
	rem := n % k

	idx := 0
	for i, tok := range tokens {
		take := per
		if i < rem {
			take++
		}
		tok.CreateAttr(attr, strings.Join(words[idx:idx+take], " "))
		idx += take
	}
}

// Redistribute exposes the word-redistribution policy on plain strings for
// callers (and tests) that need the deal without a tree: it returns the
// per-token contents for a translated line over k original tokens.
func Redistribute(text string, k int) ([]string, error) {
	if k <= 0 {
		return nil, fmt.Errorf("redistribute: token count must be positive, got %d", k)
	}
	words := strings.Fields(text)
	out := make([]string, k)
	per := len(words) / k
	rem := len(words) % k
	idx := 0
	for i := range out {
		take := per
		if i < rem {
			take++
		}
		out[i] = strings.Join(words[idx:idx+take], " ")
		idx += take
	}
	return out, nil
}
