package extract

import (
	"fmt"
	"math"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/K4TEL/atrium-translator/doctree"
)

// ---------------------------------------------------------------------------
// PDF
// ---------------------------------------------------------------------------

// PDFReader extracts words with bounding boxes so the reading-order model
// can rebuild the text sequence. PDF y-coordinates grow upward; they are
// flipped here so boxes follow the top-down convention the rest of the
// pipeline uses.
type PDFReader struct{}

func (PDFReader) Read(path string) (*Document, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var words []Word
	numPages := reader.NumPage()
	for p := 1; p <= numPages; p++ {
		page := reader.Page(p)
		if page.V.IsNull() {
			continue
		}
		words = append(words, pageWords(page, p)...)
	}
	return &Document{Words: words, Pages: numPages}, nil
}

// pageWords groups the page's character fragments into words: a new word
// starts on a whitespace fragment, a baseline change, or a horizontal gap
// wider than a third of the font size.
func pageWords(page pdflib.Page, pageNum int) []Word {
	texts := page.Content().Text
	var words []Word

	var cur strings.Builder
	var box doctree.Box
	var lastEnd, lastY float64

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		words = append(words, Word{Text: cur.String(), Box: box, Page: pageNum})
		cur.Reset()
	}

	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}
		sameLine := cur.Len() > 0 && math.Abs(t.Y-lastY) < 0.1
		gap := t.X - lastEnd
		if !sameLine || gap > t.FontSize/3 {
			flush()
		}
		if cur.Len() == 0 {
			box = doctree.Box{X: t.X, Y: t.Y, W: t.W, H: t.FontSize}
		} else {
			box.W = t.X + t.W - box.X
		}
		cur.WriteString(t.S)
		lastEnd = t.X + t.W
		lastY = t.Y
	}
	flush()

	// Flip to top-down y.
	var maxY float64
	for _, w := range words {
		maxY = math.Max(maxY, w.Box.Y+w.Box.H)
	}
	for i := range words {
		words[i].Box.Y = maxY - words[i].Box.Y - words[i].Box.H
	}
	return words
}
