// atrium — structural document translator: round-trips ALTO OCR layouts
// and archival record XML through the Lindat translation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/K4TEL/atrium-translator/config"
	"github.com/K4TEL/atrium-translator/i18n"
	"github.com/K4TEL/atrium-translator/identify"
	"github.com/K4TEL/atrium-translator/langmeta"
	"github.com/K4TEL/atrium-translator/lindat"
	"github.com/K4TEL/atrium-translator/reorder"
	"github.com/K4TEL/atrium-translator/server"
	"github.com/K4TEL/atrium-translator/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// progressBar renders a fixed-width colored bar for a completion percent.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100

	color := colorRed
	if percent >= 100 {
		color = colorGreen
	} else if percent >= 50 {
		color = colorYellow
	}

	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset +
		fmt.Sprintf(" %3d%%", percent)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "atrium",
		Short: "Structural document translator for ALTO layouts and record XML",
		Long: `atrium — structural document translator.

Translates documents through the Lindat machine-translation service while
preserving their structure: ALTO OCR layouts round-trip with word positions
intact, record XML is translated in place by configurable path rules, and
PDF/DOCX/HTML/CSV/JSON/TXT inputs become translated plain text.

Commands:
  translate   Translate a document or a directory of documents
  models      List translation model pairs the backend offers
  serve       Run the HTTP translation API
  version     Show version information

Configuration is read from .atrium.yaml in the project root; flags override
file values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory (location of .atrium.yaml)")

	root.AddCommand(
		newTranslateCmd(),
		newModelsCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("atrium version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// Shared wiring
// ---------------------------------------------------------------------------

// detectorCodes are the languages the identifier discriminates between.
// The set mirrors the backend's model coverage.
var detectorCodes = []string{"cs", "en", "de", "fr", "pl", "ru", "uk", "sk"}

func loadConfig(flags translateFlags) (*config.Config, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if flags.source != "" {
		cfg.SourceLang = flags.source
	}
	if flags.target != "" {
		cfg.TargetLang = flags.target
	}
	if flags.backendURL != "" {
		cfg.BackendURL = flags.backendURL
	}
	if flags.concurrency > 0 {
		cfg.Concurrency = flags.concurrency
	}
	if flags.csvLog != "" {
		cfg.CSVLog = flags.csvLog
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newBackend(cfg *config.Config) *lindat.Client {
	backend := lindat.New(cfg.BackendURL)
	backend.MaxRetries = cfg.MaxRetries
	return backend
}

func newResolver(cfg *config.Config) *identify.Resolver {
	detector, err := identify.NewLingua(detectorCodes...)
	if err != nil {
		logWarning("Language detection unavailable: %v", err)
		return nil
	}
	return identify.NewResolver(detector, cfg.ConfidenceThreshold, cfg.DefaultLang)
}

// newReorderModel loads the configured ONNX reading-order model, falling
// back to the geometric ordering when the model cannot be loaded.
func newReorderModel(cfg *config.Config) reorder.Model {
	if cfg.ReorderModel == "" {
		return nil
	}
	model, err := reorder.NewONNX(cfg.ReorderModel, cfg.OnnxruntimeLib)
	if err != nil {
		logWarning("Reading-order model %s unavailable, using geometric ordering: %v", cfg.ReorderModel, err)
		return nil
	}
	return model
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ---------------------------------------------------------------------------
// translate (single document or batch directory)
// ---------------------------------------------------------------------------

type translateFlags struct {
	source      string
	target      string
	output      string
	backendURL  string
	csvLog      string
	concurrency int
}

func newTranslateCmd() *cobra.Command {
	var flags translateFlags

	cmd := &cobra.Command{
		Use:   "translate <input>",
		Short: "Translate a document or a directory of documents",
		Long: `Translate a document through the Lindat service.

A file argument translates that document: ALTO and record XML round-trip
structurally, other formats produce a translated text file next to the
input. A directory argument runs a batch: every supported document is
translated into the output directory, and an atrium.lock file there makes
reruns incremental — unchanged documents are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.source, "source", "", "Source language (default: detect per document)")
	cmd.Flags().StringVar(&flags.target, "target", "", "Target language (default: from config, \"en\")")
	cmd.Flags().StringVar(&flags.output, "output", "", "Output file or directory (default: derived from input)")
	cmd.Flags().StringVar(&flags.backendURL, "backend-url", "", "Translation service root URL")
	cmd.Flags().StringVar(&flags.csvLog, "csv-log", "", "Write a QA log of translated units to this CSV file")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "Parallel documents/units (default: from config)")

	return cmd
}

func runTranslate(input string, flags translateFlags) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("input %s: %w", input, err)
	}

	model := newReorderModel(cfg)
	if closer, ok := model.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	start := time.Now()
	p, err := translate.NewPipeline(translate.Options{
		Config:   cfg,
		Backend:  newBackend(cfg),
		Resolver: newResolver(cfg),
		Reorder:  model,
		OnLog:    logInfo,
		OnError:  logWarning,
		OnProgress: func(document string, done, total int) {
			if total > 0 {
				fmt.Fprintf(os.Stderr, "\r  %s %s", document, progressBar(done*100/total, 20))
				if done == total {
					fmt.Fprintln(os.Stderr)
				}
			}
		},
	})
	if err != nil {
		return err
	}

	if info.IsDir() {
		err = runBatch(ctx, p, input, flags.output, cfg)
	} else {
		err = runSingle(ctx, p, input, flags.output, cfg)
	}
	if err != nil {
		return err
	}

	if cfg.CSVLog != "" {
		if werr := p.Report().WriteCSVFile(cfg.CSVLog); werr != nil {
			logWarning("Writing QA log: %v", werr)
		} else {
			logInfo("QA log written to %s", cfg.CSVLog)
		}
	}

	s := p.Report().Summary()
	logSuccess("%s (%s, %s)", i18n.T("Translation complete"), s.String(), time.Since(start).Round(time.Millisecond))
	return nil
}

func runSingle(ctx context.Context, p *translate.Pipeline, input, output string, cfg *config.Config) error {
	name := filepath.Base(input)
	if output == "" {
		output = filepath.Join(filepath.Dir(input), translate.OutputName(name, cfg.TargetLang))
	}

	if strings.EqualFold(filepath.Ext(input), ".xml") {
		if err := p.ProcessXML(ctx, input, output); err != nil {
			return err
		}
	} else {
		text, err := p.ProcessText(ctx, input)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, []byte(text), 0644); err != nil {
			return err
		}
	}
	logInfo("%s → %s", name, output)
	return nil
}

func runBatch(ctx context.Context, p *translate.Pipeline, inputDir, outputDir string, cfg *config.Config) error {
	if outputDir == "" {
		outputDir = strings.TrimRight(inputDir, string(os.PathSeparator)) + "_" + cfg.TargetLang
	}
	logInfo("Translating %s into %s", inputDir, outputDir)

	res, err := p.ProcessBatch(ctx, inputDir, outputDir)
	if res != nil {
		logInfo(i18n.N("Translated %d document", "Translated %d documents", res.Processed), res.Processed)
		if res.Skipped > 0 {
			logInfo(i18n.N("Skipped %d unchanged document", "Skipped %d unchanged documents", res.Skipped), res.Skipped)
		}
		for _, name := range res.Failed {
			logError("Failed: %s", name)
		}
	}
	return err
}

// ---------------------------------------------------------------------------
// models (list backend model pairs)
// ---------------------------------------------------------------------------

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List translation model pairs the backend offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, err := config.Load(rootDir)
			if err != nil {
				return err
			}
			backend := newBackend(cfg)

			pairs := backend.Models(ctx)
			if len(pairs) == 0 {
				return errors.New("backend reported no models")
			}
			fmt.Println(i18n.T("Available translation models:"))
			for _, pair := range pairs {
				fmt.Printf("  %-8s %s\n", pair, langmeta.PairLabel(pair))
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// serve (HTTP API)
// ---------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP translation API",
		Long: `Run the HTTP translation API.

Endpoints:
  GET  /health         Liveness probe
  GET  /api/models     Model pairs offered by the backend
  POST /api/translate  Multipart document upload; returns the translation`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, err := config.Load(rootDir)
			if err != nil {
				return err
			}

			model := newReorderModel(cfg)
			if closer, ok := model.(interface{ Close() error }); ok {
				defer closer.Close()
			}

			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			srv := &http.Server{
				Addr:    addr,
				Handler: server.New(cfg, newBackend(cfg), newResolver(cfg), model, log),
			}

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			logInfo(i18n.T("Listening on %s"), addr)

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")

	return cmd
}
