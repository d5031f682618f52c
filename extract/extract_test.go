package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func TestForFile(t *testing.T) {
	cases := map[string]bool{
		"doc.pdf":  true,
		"doc.docx": true,
		"doc.html": true,
		"doc.htm":  true,
		"doc.csv":  true,
		"doc.json": true,
		"doc.txt":  true,
		"doc.xml":  false, // XML goes through the structural pipeline
		"doc.bin":  false,
	}
	for name, ok := range cases {
		_, err := ForFile(name)
		if ok && err != nil {
			t.Errorf("ForFile(%q): unexpected error %v", name, err)
		}
		if !ok && err == nil {
			t.Errorf("ForFile(%q): expected error", name)
		}
	}
}

// ---------------------------------------------------------------------------
// Linear readers
// ---------------------------------------------------------------------------

func TestTextReader(t *testing.T) {
	path := writeFixture(t, "a.txt", "plain content\n")
	doc, err := TextReader{}.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if doc.Text != "plain content\n" {
		t.Fatalf("text = %q", doc.Text)
	}
}

func TestCSVReader_TextColumn(t *testing.T) {
	path := writeFixture(t, "a.csv",
		"id,full_text,score\n1,first row text,0.9\n2,,0.1\n3,third row text,0.5\n")
	doc, err := CSVReader{}.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "first row text\nthird row text"
	if doc.Text != want {
		t.Fatalf("text = %q, want %q", doc.Text, want)
	}
}

func TestCSVReader_NoTextColumn(t *testing.T) {
	path := writeFixture(t, "a.csv", "id,score\n1,0.9\n")
	if _, err := (CSVReader{}).Read(path); err == nil {
		t.Fatal("expected error for csv without a text column")
	}
}

func TestJSONReader_RecursiveTextKeys(t *testing.T) {
	path := writeFixture(t, "a.json", `{
		"title": "ignored",
		"text": "top level",
		"items": [
			{"ocr_text": "nested one", "score": 1},
			{"meta": {"text_value": "nested two"}}
		]
	}`)
	doc, err := JSONReader{}.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"top level", "nested one", "nested two"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("text %q missing %q", doc.Text, want)
		}
	}
	if strings.Contains(doc.Text, "ignored") {
		t.Errorf("non-text key leaked into %q", doc.Text)
	}
}

func TestHTMLReader(t *testing.T) {
	path := writeFixture(t, "a.html", `<html><head>
		<title>Title</title><style>p{color:red}</style></head>
		<body><p>First<b>bold</b></p><script>alert(1)</script><p>Second</p></body></html>`)
	doc, err := HTMLReader{}.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(doc.Text, "First bold") || !strings.Contains(doc.Text, "Second") {
		t.Errorf("text = %q", doc.Text)
	}
	if strings.Contains(doc.Text, "alert") || strings.Contains(doc.Text, "color") {
		t.Errorf("script/style content leaked into %q", doc.Text)
	}
}
