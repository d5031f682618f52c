package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	h1 := Hash([]byte("hello world"))
	h2 := Hash([]byte("hello world"))
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	h3 := Hash([]byte("different"))
	if h1 == h3 {
		t.Errorf("Hash collision: %s == %s", h1, h3)
	}
}

func TestLoadNonExistent(t *testing.T) {
	lf, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if lf.Version != Version {
		t.Errorf("Version = %d, want %d", lf.Version, Version)
	}
	if len(lf.Checksums) != 0 {
		t.Errorf("Checksums not empty: %v", lf.Checksums)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lf.Update("en", "scan1.xml", []byte("<alto/>"))
	lf.Update("en", "scan2.xml", []byte("<alto/>"))
	lf.Update("de", "scan1.xml", []byte("<alto/>"))

	if err := lf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Verify file exists
	path := filepath.Join(dir, LockFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Lock file not created at %s", path)
	}

	// Reload and verify
	lf2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}

	targets, docs := lf2.Stats()
	if targets != 2 {
		t.Errorf("targets = %d, want 2", targets)
	}
	if docs != 3 {
		t.Errorf("docs = %d, want 3", docs)
	}
}

func TestIsChanged(t *testing.T) {
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}

	// New document is always changed
	if !lf.IsChanged("en", "scan.xml", []byte("content")) {
		t.Error("new document should be changed")
	}

	// After update, same content is not changed
	lf.Update("en", "scan.xml", []byte("content"))
	if lf.IsChanged("en", "scan.xml", []byte("content")) {
		t.Error("unchanged document should not be changed")
	}

	// Modified content is changed
	if !lf.IsChanged("en", "scan.xml", []byte("content!")) {
		t.Error("modified document should be changed")
	}

	// Different target language is changed
	if !lf.IsChanged("de", "scan.xml", []byte("content")) {
		t.Error("different target should be changed")
	}
}

func TestDocKey(t *testing.T) {
	if got := DocKey("/data/in/scan.xml"); got != "scan.xml" {
		t.Errorf("DocKey = %q, want %q", got, "scan.xml")
	}
}

func TestClean(t *testing.T) {
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}

	lf.Update("en", "a.xml", []byte("a"))
	lf.Update("en", "b.xml", []byte("b"))
	lf.Update("en", "deleted.xml", []byte("x"))

	// Only a and b remain in the input set
	lf.Clean("en", []string{"a.xml", "b.xml"})

	if lf.IsChanged("en", "a.xml", []byte("a")) {
		t.Error("a.xml should still be tracked")
	}
	if !lf.IsChanged("en", "deleted.xml", []byte("x")) {
		t.Error("deleted.xml should be removed by Clean")
	}
}

func TestTargets(t *testing.T) {
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}

	lf.Update("de", "a.xml", []byte("a"))
	lf.Update("en", "a.xml", []byte("a"))
	lf.Update("cs", "a.xml", []byte("a"))

	targets := lf.Targets()
	expected := []string{"cs", "de", "en"}
	if len(targets) != len(expected) {
		t.Fatalf("targets len = %d, want %d", len(targets), len(expected))
	}
	for i, want := range expected {
		if targets[i] != want {
			t.Errorf("targets[%d] = %q, want %q", i, targets[i], want)
		}
	}
}

func TestSummary(t *testing.T) {
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}

	if lf.Summary() != "empty" {
		t.Errorf("empty summary = %q, want %q", lf.Summary(), "empty")
	}

	lf.Update("en", "a.xml", []byte("a"))
	lf.Update("de", "a.xml", []byte("a"))
	s := lf.Summary()
	if s == "empty" {
		t.Error("summary should not be empty after updates")
	}
}

func TestConcurrentAccess(t *testing.T) {
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			doc := "doc" + string(rune('0'+n)) + ".xml"
			lf.Update("en", doc, []byte("value"))
			lf.IsChanged("en", doc, []byte("value"))
			lf.Stats()
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	_, docs := lf.Stats()
	if docs != 10 {
		t.Errorf("docs after concurrent writes = %d, want 10", docs)
	}
}
