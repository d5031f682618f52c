// Package doctree implements structure-preserving access to translatable
// text inside XML documents.
//
// A Tree wraps a parsed document and hands out stable location references
// (Ref) for every text carrier that should be translated: either an
// attribute value or an element's inner text. The tree itself is never
// touched between locating and applying, so a Ref stays valid for the whole
// extraction → translation → re-injection pass. Everything the locator did
// not address — attribute order, namespace declarations, sibling order,
// whitespace in untouched nodes — is written back exactly as it was read.
//
// Two addressing modes are supported:
//
//   - FixedSchema walks a known hierarchy (page → block → line → token,
//     ALTO by default) and yields one unit per line, remembering the
//     token-level sub-carriers needed for word redistribution on apply.
//   - PathMatch walks the whole document in document order and yields one
//     unit per element matching any of the configured rules.
package doctree

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ---------------------------------------------------------------------------
// Tree and location references
// ---------------------------------------------------------------------------

// Ref is a stable handle to one rewritable text carrier in a Tree.
// Refs are indices into the tree's carrier arena, not live pointers, so a
// deferred or concurrent apply cannot be invalidated by anything short of
// re-parsing the document.
type Ref int

// carrier is one addressable text location.
type carrier struct {
	// el is the carrier element (simple carriers).
	el *etree.Element
	// attr is the attribute key holding the text; empty means inner text.
	attr string
	// tokens, when non-nil, marks a fixed-schema line carrier: the text is
	// the space-joined content of these token elements and translated text
	// is redistributed across them on apply.
	tokens []*etree.Element
}

// Box is a bounding box in source-document coordinates.
type Box struct {
	X, Y, W, H float64
}

// Unit is one string extracted at a location reference.
type Unit struct {
	// Ref addresses the carrier this text came from.
	Ref Ref
	// Text is the extracted source text.
	Text string
	// Group identifies the logical group (page or record) the unit belongs
	// to; language detection is resolved once per group, not per unit.
	Group string
	// ID is a human-readable identifier for QA logs (line ID, rule path).
	ID string
	// Page is the 1-based page number, 0 when the format has no pages.
	Page int
	// TokenLens holds the byte lengths of the original token contents for
	// fixed-schema line units; nil otherwise.
	TokenLens []int
	// Box is the unit's bounding box; zero when the format carries none.
	Box Box
}

// Tree is a parsed document plus the arena of located carriers.
type Tree struct {
	doc      *etree.Document
	carriers []carrier
}

// Parse reads an XML document from raw bytes.
func Parse(data []byte) (*Tree, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parsing document: no root element")
	}
	return &Tree{doc: doc}, nil
}

// ParseFile reads an XML document from disk.
func ParseFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Bytes serializes the document. Untouched nodes reproduce their input
// form: attribute order, namespace prefixes and declarations, and character
// data are preserved by the underlying document model.
func (t *Tree) Bytes() ([]byte, error) {
	data, err := t.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}
	return data, nil
}

// WriteFile serializes the document to disk and re-parses the result as a
// well-formedness check.
func (t *Tree) WriteFile(path string) error {
	data, err := t.Bytes()
	if err != nil {
		return err
	}
	check := etree.NewDocument()
	check.ReadSettings.PreserveCData = true
	if err := check.ReadFromBytes(data); err != nil {
		return fmt.Errorf("output is not well-formed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Root returns the document's root element tag (with prefix if any).
func (t *Tree) Root() string {
	return t.doc.Root().FullTag()
}

// addCarrier registers a carrier and returns its reference.
func (t *Tree) addCarrier(c carrier) Ref {
	t.carriers = append(t.carriers, c)
	return Ref(len(t.carriers) - 1)
}

// carrierAt resolves a reference, failing loudly on a foreign or stale Ref.
func (t *Tree) carrierAt(r Ref) (carrier, error) {
	if int(r) < 0 || int(r) >= len(t.carriers) {
		return carrier{}, fmt.Errorf("location reference %d out of range (have %d)", r, len(t.carriers))
	}
	return t.carriers[int(r)], nil
}

// ---------------------------------------------------------------------------
// Namespace helpers
// ---------------------------------------------------------------------------

// FindNamespaceURI performs a deep search for a namespace URI containing
// substr, mirroring documents that declare their record namespace on an
// inner element rather than the root (OAI-PMH envelopes do this).
// Returns "" when no declaration matches.
func (t *Tree) FindNamespaceURI(substr string) string {
	var found string
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if found != "" {
			return
		}
		for _, a := range el.Attr {
			isDecl := a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
			if isDecl && strings.Contains(a.Value, substr) {
				found = a.Value
				return
			}
		}
		for _, ch := range el.ChildElements() {
			walk(ch)
		}
	}
	walk(t.doc.Root())
	return found
}

// namespaceOf returns the resolved namespace URI of an element.
func namespaceOf(el *etree.Element) string {
	return el.NamespaceURI()
}

// ---------------------------------------------------------------------------
// Attribute helpers
// ---------------------------------------------------------------------------

func attrValue(el *etree.Element, key string) (string, bool) {
	for _, a := range el.Attr {
		if a.Key == key && a.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

func floatAttr(el *etree.Element, key string) float64 {
	v, ok := attrValue(el, key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
