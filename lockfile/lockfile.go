// Package lockfile implements atrium.lock — a lock file that tracks MD5
// checksums of source documents per target language. This enables
// incremental batch runs: a document whose content has not changed since
// its last successful translation to the same target is skipped.
//
// The lock file is stored in the output directory as atrium.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "atrium.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the atrium.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // target lang -> document -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of raw content.
func Hash(content []byte) string {
	return fmt.Sprintf("%x", md5.Sum(content))
}

// DocKey builds a stable key for a document path.
func DocKey(filePath string) string {
	return filepath.ToSlash(filepath.Base(filePath))
}

// IsChanged checks if a document has changed since its last translation to
// the given target language. Returns true for new documents.
func (lf *LockFile) IsChanged(target, doc string, content []byte) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	docs, ok := lf.Checksums[target]
	if !ok {
		return true
	}
	oldHash, ok := docs[doc]
	if !ok {
		return true
	}
	return oldHash != Hash(content)
}

// Update records a document's checksum after successful translation.
func (lf *LockFile) Update(target, doc string, content []byte) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[target] == nil {
		lf.Checksums[target] = make(map[string]string)
	}
	lf.Checksums[target][doc] = Hash(content)
}

// Clean removes entries for documents no longer present in the input set,
// so stale entries don't accumulate across runs.
func (lf *LockFile) Clean(target string, currentDocs []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[target]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentDocs))
	for _, d := range currentDocs {
		valid[d] = true
	}

	for d := range existing {
		if !valid[d] {
			delete(existing, d)
		}
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of target languages and total documents tracked.
func (lf *LockFile) Stats() (targets, docs int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		docs += len(m)
	}
	return
}

// Targets returns the sorted list of target languages.
func (lf *LockFile) Targets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	targets, docs := lf.Stats()
	if targets == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range lf.Targets() {
		n := len(lf.Checksums[t])
		parts = append(parts, fmt.Sprintf("%s: %d documents", t, n))
	}
	return fmt.Sprintf("%d targets, %d documents (%s)", targets, docs, strings.Join(parts, ", "))
}
