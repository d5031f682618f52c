package translate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/K4TEL/atrium-translator/config"
	"github.com/K4TEL/atrium-translator/doctree"
	"github.com/K4TEL/atrium-translator/extract"
	"github.com/K4TEL/atrium-translator/identify"
	"github.com/K4TEL/atrium-translator/reorder"
	"github.com/K4TEL/atrium-translator/report"
)

// ---------------------------------------------------------------------------
// Pipeline options
// ---------------------------------------------------------------------------

// Options wires the pipeline's collaborators. Backend and Config are
// required; a nil Resolver disables detection and uses Config.SourceLang
// (or the default language) for every unit.
type Options struct {
	Config   *config.Config
	Backend  Backend
	Resolver *identify.Resolver
	// Reorder is the reading-order model for spatial formats; nil selects
	// the geometric fallback.
	Reorder reorder.Model
	// Report collects per-unit outcomes; nil allocates a private one.
	Report *report.Report
	// OnLog emits log messages during processing.
	OnLog func(format string, args ...any)
	// OnProgress is called after each unit resolves.
	OnProgress func(document string, done, total int)
	// OnError emits error messages.
	OnError func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// Pipeline processes documents end to end: locate, identify, translate,
// re-inject, write.
type Pipeline struct {
	opts       Options
	cfg        *config.Config
	translator *Translator
	reporter   *report.Report
}

// NewPipeline validates the options and builds the shared translator.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("translate: nil config")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	tr, err := NewTranslator(opts.Backend, opts.Config.ChunkSize)
	if err != nil {
		return nil, err
	}
	rep := opts.Report
	if rep == nil {
		rep = report.New()
	}
	if opts.Reorder == nil {
		opts.Reorder = reorder.Geometric{}
	}
	p := &Pipeline{opts: opts, cfg: opts.Config, translator: tr, reporter: rep}
	tr.OnDegenerate = func(word string) {
		opts.logError("word longer than chunk budget (%d bytes), sent whole: %.40s...", opts.Config.ChunkSize, word)
	}
	return p, nil
}

// Report returns the outcome collector.
func (p *Pipeline) Report() *report.Report { return p.reporter }

// ---------------------------------------------------------------------------
// Structural round trip (XML in, XML out)
// ---------------------------------------------------------------------------

// ProcessXML translates a document in place: ALTO files walk the fixed
// schema, anything else uses the configured match rules. The output is
// byte-identical to the input outside the translated carriers and is
// re-parsed before writing as a well-formedness check.
func (p *Pipeline) ProcessXML(ctx context.Context, inputPath, outputPath string) error {
	tree, err := doctree.ParseFile(inputPath)
	if err != nil {
		return err
	}
	docName := filepath.Base(inputPath)

	var mode doctree.Mode
	if isALTO(tree) {
		mode = doctree.ALTOSchema()
	} else {
		if len(p.cfg.Rules) == 0 {
			return fmt.Errorf("%s: not an ALTO document and no match rules configured", docName)
		}
		if ns := tree.FindNamespaceURI(p.cfg.NamespaceHint); ns != "" {
			p.opts.log("record namespace: %s", ns)
		} else {
			p.opts.log("record namespace not declared, assuming %s", p.cfg.NamespaceFallback)
		}
		mode = doctree.PathMatch{Rules: p.cfg.Rules, Group: docName}
	}

	units, warnings, err := tree.Locate(mode)
	if err != nil {
		return fmt.Errorf("%s: %w", docName, err)
	}
	for _, w := range warnings {
		p.opts.logError("%s: %s", docName, w)
	}
	if len(units) == 0 {
		p.opts.log("%s: nothing to translate", docName)
		return tree.WriteFile(outputPath)
	}

	translations, err := p.translateUnits(ctx, docName, units)
	if err != nil {
		return err
	}
	if err := tree.Apply(translations); err != nil {
		return fmt.Errorf("%s: %w", docName, err)
	}
	return tree.WriteFile(outputPath)
}

// translateUnits dispatches distinct units concurrently under the
// configured limit and collects the complete Ref→translation mapping.
// Failed units are reported and skipped; the mapping error is only
// surfaced when every unit failed.
func (p *Pipeline) translateUnits(ctx context.Context, docName string, units []doctree.Unit) (map[doctree.Ref]string, error) {
	translations := make(map[doctree.Ref]string, len(units))
	var mu sync.Mutex
	var done int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, u := range units {
		u := u
		g.Go(func() error {
			src := p.sourceLang(u.Group, u.Text)
			out, err := p.translator.Translate(gctx, u.Text, src, p.cfg.TargetLang)

			mu.Lock()
			defer mu.Unlock()
			done++
			if p.opts.OnProgress != nil {
				p.opts.OnProgress(docName, done, len(units))
			}
			rec := report.Record{
				Document: docName,
				Page:     u.Page,
				Location: u.ID,
				Source:   u.Text,
			}
			if err != nil {
				rec.Status = report.StatusFailed
				rec.Err = err
				p.reporter.Add(rec)
				p.opts.logError("%s %s: %v", docName, u.ID, err)
				return nil
			}
			translations[u.Ref] = out
			rec.Status = report.StatusTranslated
			rec.Translated = out
			p.reporter.Add(rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(translations) == 0 {
		return nil, fmt.Errorf("%s: all %d units failed", docName, len(units))
	}
	return translations, nil
}

// sourceLang resolves the source language for one group.
func (p *Pipeline) sourceLang(group, sample string) string {
	if p.cfg.SourceLang != "" {
		return p.cfg.SourceLang
	}
	if p.opts.Resolver == nil {
		return p.cfg.DefaultLang
	}
	return p.opts.Resolver.ResolveGroup(group, sample)
}

func isALTO(tree *doctree.Tree) bool {
	root := tree.Root()
	if i := strings.IndexByte(root, ':'); i >= 0 {
		root = root[i+1:]
	}
	return strings.EqualFold(root, "alto")
}

// ---------------------------------------------------------------------------
// Linear text path
// ---------------------------------------------------------------------------

// ExtractText reads a document's linear text. Spatial formats go through
// the reading-order model; ALTO files take the token path (words and boxes
// from the schema walk) instead of the line path.
func (p *Pipeline) ExtractText(inputPath string) (string, error) {
	if strings.EqualFold(filepath.Ext(inputPath), ".xml") {
		return p.extractALTOText(inputPath)
	}
	reader, err := extract.ForFile(inputPath)
	if err != nil {
		return "", err
	}
	doc, err := reader.Read(inputPath)
	if err != nil {
		return "", err
	}
	if len(doc.Words) == 0 {
		return doc.Text, nil
	}
	return p.orderWords(doc.Words, doc.Pages)
}

func (p *Pipeline) extractALTOText(inputPath string) (string, error) {
	tree, err := doctree.ParseFile(inputPath)
	if err != nil {
		return "", err
	}
	if !isALTO(tree) {
		return "", fmt.Errorf("%s: text extraction from record XML is not supported, use the round-trip mode", filepath.Base(inputPath))
	}
	units := tree.LocateTokens(doctree.ALTOSchema())
	words := make([]extract.Word, len(units))
	pages := 0
	for i, u := range units {
		words[i] = extract.Word{Text: u.Text, Box: u.Box, Page: u.Page}
		if u.Page > pages {
			pages = u.Page
		}
	}
	return p.orderWords(words, pages)
}

// orderWords rebuilds reading order page by page and joins the words with
// single spaces, pages separated by blank lines.
func (p *Pipeline) orderWords(words []extract.Word, pages int) (string, error) {
	var pageTexts []string
	for page := 1; page <= pages; page++ {
		var texts []string
		var boxes []doctree.Box
		for _, w := range words {
			if w.Page != page {
				continue
			}
			texts = append(texts, w.Text)
			boxes = append(boxes, w.Box)
		}
		if len(texts) == 0 {
			continue
		}
		order, err := reorder.Sequence(reorder.Normalize(boxes, 0, 0), p.opts.Reorder, p.cfg.WindowSize)
		if err != nil {
			return "", err
		}
		ordered := make([]string, len(order))
		for i, idx := range order {
			ordered[i] = texts[idx]
		}
		pageTexts = append(pageTexts, strings.Join(ordered, " "))
	}
	return strings.Join(pageTexts, "\n\n"), nil
}

// ProcessText extracts a document's text, translates it and returns the
// result; the per-run cache and report are shared with the XML path.
func (p *Pipeline) ProcessText(ctx context.Context, inputPath string) (string, error) {
	docName := filepath.Base(inputPath)
	text, err := p.ExtractText(inputPath)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		p.opts.log("%s: no text extracted", docName)
		return "", nil
	}
	src := p.sourceLang(docName, text)
	out, err := p.translator.Translate(ctx, text, src, p.cfg.TargetLang)
	rec := report.Record{Document: docName, Location: "full-text", Source: text}
	if err != nil {
		rec.Status = report.StatusFailed
		rec.Err = err
		p.reporter.Add(rec)
		return "", err
	}
	rec.Status = report.StatusTranslated
	rec.Translated = out
	p.reporter.Add(rec)
	return out, nil
}
