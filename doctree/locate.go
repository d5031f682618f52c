package doctree

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ---------------------------------------------------------------------------
// Addressing modes
// ---------------------------------------------------------------------------

// Mode selects how a Tree is searched for translatable text.
type Mode interface {
	locate(t *Tree) ([]Unit, []string, error)
}

// FixedSchema addresses documents with a known page → block → line → token
// hierarchy. Matching is by local tag name so the same schema covers every
// namespace revision of the format.
type FixedSchema struct {
	// Page, Block, Line, Token are local element tag names.
	Page  string
	Block string
	Line  string
	Token string
	// Content is the attribute on Token elements that carries the text.
	Content string
	// IDAttr names the attribute used as the unit ID in logs, usually on
	// the line element.
	IDAttr string
}

// ALTOSchema is the fixed schema for ALTO OCR documents.
func ALTOSchema() FixedSchema {
	return FixedSchema{
		Page:    "Page",
		Block:   "TextBlock",
		Line:    "TextLine",
		Token:   "String",
		Content: "CONTENT",
		IDAttr:  "ID",
	}
}

// Rule is one match rule for PathMatch mode. A rule names an element by its
// local tag, optionally namespace-qualified, and optionally the attribute to
// read; with no attribute (or when the attribute is absent on a matching
// node) the element's inner text is used.
type Rule struct {
	Tag string `yaml:"tag"`
	// Namespace restricts the match to elements whose namespace prefix or
	// resolved URI equals this value, or whose URI contains it as a
	// substring. Empty matches any namespace.
	Namespace string `yaml:"namespace,omitempty"`
	Attribute string `yaml:"attribute,omitempty"`
}

func (r Rule) String() string {
	s := r.Tag
	if r.Namespace != "" {
		s = r.Namespace + ":" + r.Tag
	}
	if r.Attribute != "" {
		s += "@" + r.Attribute
	}
	return s
}

func (r Rule) matches(el *etree.Element) bool {
	if el.Tag != r.Tag {
		return false
	}
	if r.Namespace == "" {
		return true
	}
	uri := namespaceOf(el)
	return el.Space == r.Namespace || uri == r.Namespace || (uri != "" && strings.Contains(uri, r.Namespace))
}

// PathMatch addresses documents by an ordered rule list. The whole tree is
// walked once in document order; a node matched by several rules is yielded
// once, for the first rule that matches it.
type PathMatch struct {
	Rules []Rule
	// Group labels all units from this document for language resolution.
	// Empty defaults to "record".
	Group string
}

// ---------------------------------------------------------------------------
// Locate
// ---------------------------------------------------------------------------

// Locate extracts every translatable unit addressed by mode. The returned
// warnings name rules that matched nothing; the tree is not modified and
// the units' Refs remain valid until the tree is re-parsed.
func (t *Tree) Locate(mode Mode) ([]Unit, []string, error) {
	return mode.locate(t)
}

func (s FixedSchema) locate(t *Tree) ([]Unit, []string, error) {
	var units []Unit
	pages := descendantsByTag(t.doc.Root(), s.Page)
	for pi, page := range pages {
		pageNum := pi + 1
		group := fmt.Sprintf("page-%d", pageNum)
		for _, line := range descendantsByTag(page, s.Line) {
			var toks []*etree.Element
			var parts []string
			var lens []int
			for _, tok := range descendantsByTag(line, s.Token) {
				content, ok := attrValue(tok, s.Content)
				if !ok || strings.TrimSpace(content) == "" {
					continue
				}
				toks = append(toks, tok)
				parts = append(parts, content)
				lens = append(lens, len(content))
			}
			if len(toks) == 0 {
				continue
			}
			id, _ := attrValue(line, s.IDAttr)
			ref := t.addCarrier(carrier{attr: s.Content, tokens: toks})
			units = append(units, Unit{
				Ref:       ref,
				Text:      strings.Join(parts, " "),
				Group:     group,
				ID:        id,
				Page:      pageNum,
				TokenLens: lens,
				Box:       boxOf(line),
			})
		}
	}
	if len(pages) == 0 {
		return units, []string{fmt.Sprintf("no <%s> elements found", s.Page)}, nil
	}
	return units, nil, nil
}

// LocateTokens yields one unit per token element with its own bounding box,
// for the linear-text path where token order is rebuilt spatially instead of
// taken from the document.
func (t *Tree) LocateTokens(s FixedSchema) []Unit {
	var units []Unit
	for pi, page := range descendantsByTag(t.doc.Root(), s.Page) {
		pageNum := pi + 1
		group := fmt.Sprintf("page-%d", pageNum)
		for _, tok := range descendantsByTag(page, s.Token) {
			content, ok := attrValue(tok, s.Content)
			if !ok || strings.TrimSpace(content) == "" {
				continue
			}
			id, _ := attrValue(tok, s.IDAttr)
			ref := t.addCarrier(carrier{el: tok, attr: s.Content})
			units = append(units, Unit{
				Ref:   ref,
				Text:  content,
				Group: group,
				ID:    id,
				Page:  pageNum,
				Box:   boxOf(tok),
			})
		}
	}
	return units
}

func (m PathMatch) locate(t *Tree) ([]Unit, []string, error) {
	if len(m.Rules) == 0 {
		return nil, nil, fmt.Errorf("path-match mode needs at least one rule")
	}
	group := m.Group
	if group == "" {
		group = "record"
	}

	matched := make([]int, len(m.Rules))
	seen := make(map[*etree.Element]bool)
	var units []Unit

	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		first := -1
		for ri, rule := range m.Rules {
			if rule.matches(el) {
				matched[ri]++
				if first < 0 {
					first = ri
				}
			}
		}
		if first >= 0 && !seen[el] {
			seen[el] = true
			rule := m.Rules[first]

			c := carrier{el: el}
			text := el.Text()
			if rule.Attribute != "" {
				if v, ok := attrValue(el, rule.Attribute); ok {
					c.attr = rule.Attribute
					text = v
				}
			}
			if strings.TrimSpace(text) != "" {
				units = append(units, Unit{
					Ref:   t.addCarrier(c),
					Text:  text,
					Group: group,
					ID:    rule.String(),
				})
			}
		}
		for _, ch := range el.ChildElements() {
			walk(ch)
		}
	}
	walk(t.doc.Root())

	var warnings []string
	for ri, rule := range m.Rules {
		if matched[ri] == 0 {
			warnings = append(warnings, fmt.Sprintf("rule %s matched no nodes", rule))
		}
	}
	return units, warnings, nil
}

// descendantsByTag collects all descendants (and el itself) with the given
// local tag, in document order.
func descendantsByTag(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		if e.Tag == tag {
			out = append(out, e)
		}
		for _, ch := range e.ChildElements() {
			walk(ch)
		}
	}
	walk(el)
	return out
}

// boxOf reads an ALTO-style bounding box from an element's position
// attributes. Missing attributes leave the corresponding field zero.
func boxOf(el *etree.Element) Box {
	return Box{
		X: floatAttr(el, "HPOS"),
		Y: floatAttr(el, "VPOS"),
		W: floatAttr(el, "WIDTH"),
		H: floatAttr(el, "HEIGHT"),
	}
}
