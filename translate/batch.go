package translate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/K4TEL/atrium-translator/lockfile"
)

// ---------------------------------------------------------------------------
// Batch runner
// ---------------------------------------------------------------------------

// BatchResult summarizes one batch run.
type BatchResult struct {
	Processed int
	Skipped   int
	Failed    []string
}

// ProcessBatch translates every supported document in inputDir into
// outputDir, running up to the configured concurrency in parallel. Each
// document gets its own tree; the translator cache and report are shared.
// An atrium.lock in the output directory makes reruns incremental:
// documents unchanged since their last successful translation to the same
// target are skipped. A failed document is recorded and the batch
// continues.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputDir, outputDir string) (*BatchResult, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputDir, err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", outputDir, err)
	}
	lock, err := lockfile.Load(outputDir)
	if err != nil {
		return nil, err
	}

	var inputs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if supportedInput(e.Name()) {
			inputs = append(inputs, filepath.Join(inputDir, e.Name()))
		}
	}
	sort.Strings(inputs)
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no supported documents in %s", inputDir)
	}

	result := &BatchResult{}
	var keys []string
	for _, in := range inputs {
		keys = append(keys, lockfile.DocKey(in))
	}
	lock.Clean(p.cfg.TargetLang, keys)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	var mu sync.Mutex
	record := func(fn func()) {
		mu.Lock()
		fn()
		mu.Unlock()
	}

	for _, input := range inputs {
		input := input
		g.Go(func() error {
			name := filepath.Base(input)
			content, err := os.ReadFile(input)
			if err != nil {
				record(func() { result.Failed = append(result.Failed, name) })
				p.opts.logError("%s: %v", name, err)
				return nil
			}
			key := lockfile.DocKey(input)
			if !lock.IsChanged(p.cfg.TargetLang, key, content) {
				record(func() { result.Skipped++ })
				p.opts.log("%s: unchanged, skipping", name)
				return nil
			}

			if err := p.processOne(gctx, input, outputDir); err != nil {
				record(func() { result.Failed = append(result.Failed, name) })
				p.opts.logError("%s: %v", name, err)
				return nil
			}
			lock.Update(p.cfg.TargetLang, key, content)
			record(func() { result.Processed++ })
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := lock.Save(); err != nil {
		return nil, err
	}
	if result.Processed == 0 && len(result.Failed) > 0 {
		return result, fmt.Errorf("all %d documents failed", len(result.Failed))
	}
	return result, nil
}

// processOne routes a single document: XML round-trips, everything else
// becomes a translated text file.
func (p *Pipeline) processOne(ctx context.Context, input, outputDir string) error {
	name := filepath.Base(input)
	if strings.EqualFold(filepath.Ext(input), ".xml") {
		return p.ProcessXML(ctx, input, filepath.Join(outputDir, OutputName(name, p.cfg.TargetLang)))
	}
	text, err := p.ProcessText(ctx, input)
	if err != nil {
		return err
	}
	out := filepath.Join(outputDir, OutputName(name, p.cfg.TargetLang))
	return os.WriteFile(out, []byte(text), 0644)
}

// OutputName derives the default output file name: the input base with the
// target language suffixed, XML keeping its extension and every other
// format becoming plain text.
func OutputName(inputName, tgt string) string {
	ext := filepath.Ext(inputName)
	base := strings.TrimSuffix(inputName, ext)
	if strings.EqualFold(ext, ".xml") {
		return fmt.Sprintf("%s_%s.xml", base, tgt)
	}
	return fmt.Sprintf("%s_%s.txt", base, tgt)
}

func supportedInput(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml", ".pdf", ".docx", ".html", ".htm", ".csv", ".json", ".txt":
		return true
	}
	return false
}
