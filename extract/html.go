package extract

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// ---------------------------------------------------------------------------
// HTML
// ---------------------------------------------------------------------------

// HTMLReader extracts visible text with a space separator between nodes so
// words never merge across tag boundaries. Script and style content is
// skipped.
type HTMLReader struct{}

func (HTMLReader) Read(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: opening html %s: %w", path, err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("extract: parsing html %s: %w", path, err)
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return &Document{Text: strings.Join(parts, " "), Pages: 1}, nil
}
