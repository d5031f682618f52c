// Package translate holds the caching translation client and the document
// pipeline built on top of it.
//
// The Translator wraps a backend with a per-run cache keyed by the exact
// (text, source, target) triple and coalesces concurrent requests for the
// same uncached triple into a single backend call. Oversized payloads are
// split by the chunker at the configured budget and the chunk translations
// are reassembled in their original order with the original separators.
package translate

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/K4TEL/atrium-translator/chunk"
)

// Backend is the external translation function.
type Backend interface {
	Translate(ctx context.Context, text, src, tgt string) (string, error)
}

// BackendFunc adapts a plain function to Backend.
type BackendFunc func(ctx context.Context, text, src, tgt string) (string, error)

func (f BackendFunc) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	return f(ctx, text, src, tgt)
}

// ---------------------------------------------------------------------------
// Caching translator
// ---------------------------------------------------------------------------

type cacheKey struct {
	text, src, tgt string
}

// Translator is the caching, chunking translation client. The cache is
// process-scoped to one run: create one Translator per document (or share
// one across a batch when cross-document reuse is wanted) and drop it when
// the run ends. Safe for concurrent use.
type Translator struct {
	backend Backend
	budget  int

	group singleflight.Group
	mu    sync.RWMutex
	cache map[cacheKey]string

	// OnDegenerate is called for each single word longer than the chunk
	// budget; such words are sent whole rather than corrupted.
	OnDegenerate func(word string)
}

// NewTranslator wraps a backend with a chunk budget in bytes.
func NewTranslator(backend Backend, budget int) (*Translator, error) {
	if backend == nil {
		return nil, fmt.Errorf("translate: nil backend")
	}
	if budget <= 0 {
		return nil, fmt.Errorf("translate: chunk budget must be positive, got %d", budget)
	}
	return &Translator{
		backend: backend,
		budget:  budget,
		cache:   make(map[cacheKey]string),
	}, nil
}

// Translate resolves one text unit. Identical triples resolve from the
// cache; two concurrent calls for the same uncached triple share one
// backend round trip. Chunks of one unit are translated sequentially so
// their order can never be scrambled by completion order.
func (t *Translator) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	if text == "" {
		return "", nil
	}
	key := cacheKey{text, src, tgt}
	t.mu.RLock()
	cached, ok := t.cache[key]
	t.mu.RUnlock()
	if ok {
		return cached, nil
	}

	flightKey := src + "\x00" + tgt + "\x00" + text
	result, err, _ := t.group.Do(flightKey, func() (any, error) {
		// A concurrent flight may have filled the cache between the read
		// above and entering the flight.
		t.mu.RLock()
		cached, ok := t.cache[key]
		t.mu.RUnlock()
		if ok {
			return cached, nil
		}

		translated, err := t.translateChunked(ctx, text, src, tgt)
		if err != nil {
			return "", err
		}
		t.mu.Lock()
		t.cache[key] = translated
		t.mu.Unlock()
		return translated, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (t *Translator) translateChunked(ctx context.Context, text, src, tgt string) (string, error) {
	pieces := chunk.Split(text, t.budget)
	if t.OnDegenerate != nil {
		for _, p := range pieces {
			if p.Oversized {
				t.OnDegenerate(p.Text)
			}
		}
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		if p.Text == "" {
			continue
		}
		out, err := t.backend.Translate(ctx, p.Text, src, tgt)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(pieces), err)
		}
		texts[i] = out
	}
	return chunk.JoinTexts(pieces, texts), nil
}

// CacheSize reports the number of distinct resolved triples.
func (t *Translator) CacheSize() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.cache)
}
