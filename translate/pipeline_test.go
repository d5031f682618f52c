package translate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/K4TEL/atrium-translator/config"
	"github.com/K4TEL/atrium-translator/doctree"
	"github.com/K4TEL/atrium-translator/report"
)

const altoInput = `<?xml version="1.0" encoding="UTF-8"?>
<alto xmlns="http://www.loc.gov/standards/alto/ns-v4#">
  <Layout>
    <Page ID="P1" WIDTH="2000" HEIGHT="3000">
      <TextBlock ID="B1">
        <TextLine ID="L1" HPOS="100" VPOS="200" WIDTH="800" HEIGHT="40">
          <String CONTENT="Hello" HPOS="100" VPOS="200" WIDTH="380" HEIGHT="40"/>
          <String CONTENT="world" HPOS="500" VPOS="200" WIDTH="400" HEIGHT="40"/>
        </TextLine>
      </TextBlock>
    </Page>
  </Layout>
</alto>`

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.SourceLang = "en"
	cfg.TargetLang = "cs"
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config, backend Backend) *Pipeline {
	t.Helper()
	p, err := NewPipeline(Options{
		Config:  cfg,
		Backend: backend,
		Report:  report.New(),
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

// ---------------------------------------------------------------------------
// ALTO round trip
// ---------------------------------------------------------------------------

func TestProcessXML_ALTO(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scan.xml")
	out := filepath.Join(dir, "scan_cs.xml")
	if err := os.WriteFile(in, []byte(altoInput), 0644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	backend := BackendFunc(func(ctx context.Context, text, src, tgt string) (string, error) {
		if text != "Hello world" {
			t.Errorf("backend got %q", text)
		}
		return "Ahoj krásný světe", nil
	})
	p := newTestPipeline(t, testConfig(), backend)

	if err := p.ProcessXML(context.Background(), in, out); err != nil {
		t.Fatalf("process: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	got := string(data)

	// Three translated words redistributed over two token carriers: 2+1.
	if !strings.Contains(got, `CONTENT="Ahoj krásný"`) {
		t.Errorf("first token not redistributed: %s", got)
	}
	if !strings.Contains(got, `CONTENT="světe"`) {
		t.Errorf("second token not redistributed: %s", got)
	}
	if !strings.Contains(got, `xmlns="http://www.loc.gov/standards/alto/ns-v4#"`) {
		t.Error("namespace declaration lost")
	}
	if !strings.Contains(got, `HPOS="500"`) {
		t.Error("untouched attributes lost")
	}
	// Output must re-parse.
	if _, err := doctree.Parse(data); err != nil {
		t.Fatalf("output not well-formed: %v", err)
	}

	s := p.Report().Summary()
	if s.Translated != 1 || s.Failed != 0 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestProcessXML_PartialFailure(t *testing.T) {
	const twoLines = `<?xml version="1.0"?>
<alto>
  <Layout>
    <Page>
      <TextLine ID="L1"><String CONTENT="good"/></TextLine>
      <TextLine ID="L2"><String CONTENT="poison"/></TextLine>
    </Page>
  </Layout>
</alto>`
	dir := t.TempDir()
	in := filepath.Join(dir, "scan.xml")
	out := filepath.Join(dir, "out.xml")
	os.WriteFile(in, []byte(twoLines), 0644)

	backend := BackendFunc(func(ctx context.Context, text, src, tgt string) (string, error) {
		if text == "poison" {
			return "", os.ErrDeadlineExceeded
		}
		return "dobrý", nil
	})
	p := newTestPipeline(t, testConfig(), backend)

	if err := p.ProcessXML(context.Background(), in, out); err != nil {
		t.Fatalf("partial failure must not abort the document: %v", err)
	}
	data, _ := os.ReadFile(out)
	if !strings.Contains(string(data), `CONTENT="dobrý"`) {
		t.Error("successful unit not applied")
	}
	if !strings.Contains(string(data), `CONTENT="poison"`) {
		t.Error("failed unit should keep its source text")
	}
	s := p.Report().Summary()
	if s.Translated != 1 || s.Failed != 1 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestProcessXML_AllUnitsFailed(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scan.xml")
	os.WriteFile(in, []byte(altoInput), 0644)

	backend := BackendFunc(func(ctx context.Context, text, src, tgt string) (string, error) {
		return "", os.ErrDeadlineExceeded
	})
	p := newTestPipeline(t, testConfig(), backend)
	if err := p.ProcessXML(context.Background(), in, filepath.Join(dir, "out.xml")); err == nil {
		t.Fatal("expected error when every unit fails")
	}
}

// ---------------------------------------------------------------------------
// Record XML
// ---------------------------------------------------------------------------

func TestProcessXML_RecordRules(t *testing.T) {
	const record = `<?xml version="1.0"?>
<zaznam xmlns:amcr="http://amcr.aiscr.cz/ns/amcr">
  <amcr:poznamka>Keramické zlomky</amcr:poznamka>
  <amcr:rok>1999</amcr:rok>
</zaznam>`
	dir := t.TempDir()
	in := filepath.Join(dir, "record.xml")
	out := filepath.Join(dir, "record_en.xml")
	os.WriteFile(in, []byte(record), 0644)

	cfg := testConfig()
	cfg.SourceLang = "cs"
	cfg.TargetLang = "en"
	cfg.Rules = []doctree.Rule{{Tag: "poznamka", Namespace: "amcr"}}

	backend := BackendFunc(func(ctx context.Context, text, src, tgt string) (string, error) {
		return "Ceramic fragments", nil
	})
	p := newTestPipeline(t, cfg, backend)

	if err := p.ProcessXML(context.Background(), in, out); err != nil {
		t.Fatalf("process: %v", err)
	}
	data, _ := os.ReadFile(out)
	if !strings.Contains(string(data), ">Ceramic fragments<") {
		t.Errorf("output = %s", data)
	}
	if !strings.Contains(string(data), ">1999<") {
		t.Error("non-matching element was modified")
	}
}

func TestProcessXML_NoRulesForRecord(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "record.xml")
	os.WriteFile(in, []byte(`<zaznam><a>x</a></zaznam>`), 0644)

	p := newTestPipeline(t, testConfig(), BackendFunc(func(ctx context.Context, text, src, tgt string) (string, error) {
		return text, nil
	}))
	if err := p.ProcessXML(context.Background(), in, filepath.Join(dir, "out.xml")); err == nil {
		t.Fatal("expected error for record XML without rules")
	}
}

// ---------------------------------------------------------------------------
// Linear text path
// ---------------------------------------------------------------------------

func TestProcessText_ALTOTokens(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scan.xml")
	os.WriteFile(in, []byte(altoInput), 0644)

	backend := BackendFunc(func(ctx context.Context, text, src, tgt string) (string, error) {
		return "[" + text + "]", nil
	})
	p := newTestPipeline(t, testConfig(), backend)

	got, err := p.ProcessText(context.Background(), in)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got != "[Hello world]" {
		t.Fatalf("text = %q", got)
	}
}

func TestProcessText_PlainFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "note.txt")
	os.WriteFile(in, []byte("ahoj světe"), 0644)

	cfg := testConfig()
	cfg.SourceLang = "cs"
	backend := BackendFunc(func(ctx context.Context, text, src, tgt string) (string, error) {
		if src != "cs" {
			t.Errorf("src = %q, want configured cs", src)
		}
		return "hello world", nil
	})
	p := newTestPipeline(t, cfg, backend)
	got, err := p.ProcessText(context.Background(), in)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("text = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Batch
// ---------------------------------------------------------------------------

func TestProcessBatch_Incremental(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	os.WriteFile(filepath.Join(inDir, "a.txt"), []byte("jedna"), 0644)
	os.WriteFile(filepath.Join(inDir, "b.txt"), []byte("dva"), 0644)

	cfg := testConfig()
	cfg.SourceLang = "cs"
	backend := BackendFunc(func(ctx context.Context, text, src, tgt string) (string, error) {
		return strings.ToUpper(text), nil
	})

	p := newTestPipeline(t, cfg, backend)
	res, err := p.ProcessBatch(context.Background(), inDir, outDir)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if res.Processed != 2 || res.Skipped != 0 {
		t.Fatalf("first run = %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "a_cs.txt"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != "JEDNA" {
		t.Fatalf("output = %q", data)
	}

	// Second run: nothing changed, everything skipped.
	p2 := newTestPipeline(t, cfg, backend)
	res2, err := p2.ProcessBatch(context.Background(), inDir, outDir)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if res2.Processed != 0 || res2.Skipped != 2 {
		t.Fatalf("second run = %+v", res2)
	}

	// Changing one input re-translates just that document.
	os.WriteFile(filepath.Join(inDir, "a.txt"), []byte("tři"), 0644)
	p3 := newTestPipeline(t, cfg, backend)
	res3, err := p3.ProcessBatch(context.Background(), inDir, outDir)
	if err != nil {
		t.Fatalf("third batch: %v", err)
	}
	if res3.Processed != 1 || res3.Skipped != 1 {
		t.Fatalf("third run = %+v", res3)
	}
}

func TestProcessBatch_ContinuesOnFailure(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	os.WriteFile(filepath.Join(inDir, "good.txt"), []byte("text"), 0644)
	// CSV without a text column fails extraction.
	os.WriteFile(filepath.Join(inDir, "bad.csv"), []byte("id,score\n1,2\n"), 0644)

	cfg := testConfig()
	cfg.SourceLang = "cs"
	p := newTestPipeline(t, cfg, BackendFunc(func(ctx context.Context, text, src, tgt string) (string, error) {
		return text, nil
	}))
	res, err := p.ProcessBatch(context.Background(), inDir, outDir)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if res.Processed != 1 || len(res.Failed) != 1 || res.Failed[0] != "bad.csv" {
		t.Fatalf("result = %+v", res)
	}
}

func TestOutputName(t *testing.T) {
	cases := map[string]string{
		"scan.xml": "scan_en.xml",
		"doc.pdf":  "doc_en.txt",
		"note.txt": "note_en.txt",
	}
	for in, want := range cases {
		if got := OutputName(in, "en"); got != want {
			t.Errorf("OutputName(%q) = %q, want %q", in, got, want)
		}
	}
}
