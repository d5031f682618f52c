package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// ---------------------------------------------------------------------------
// DOCX
// ---------------------------------------------------------------------------

// DOCXReader extracts paragraph text linearly, one line per paragraph.
type DOCXReader struct{}

func (DOCXReader) Read(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: opening docx %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("extract: stat %s: %w", path, err)
	}
	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("extract: parsing docx %s: %w", path, err)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if text := paragraphText(para); strings.TrimSpace(text) != "" {
			lines = append(lines, text)
		}
	}
	return &Document{Text: strings.Join(lines, "\n"), Pages: 1}, nil
}

func paragraphText(para *docx.Paragraph) string {
	var sb strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				sb.WriteString(t.Text)
			}
		}
	}
	return sb.String()
}
