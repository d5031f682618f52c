// Package server exposes the translation pipeline over HTTP.
//
// The API mirrors the CLI: a document is uploaded, translated and returned.
// One pipeline per request keeps documents isolated; the backend client and
// its model discovery are shared across requests.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/K4TEL/atrium-translator/config"
	"github.com/K4TEL/atrium-translator/identify"
	"github.com/K4TEL/atrium-translator/lindat"
	"github.com/K4TEL/atrium-translator/reorder"
	"github.com/K4TEL/atrium-translator/translate"
)

// maxUpload bounds document uploads.
const maxUpload = 64 << 20

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	backend  *lindat.Client
	resolver *identify.Resolver
	model    reorder.Model
	log      *slog.Logger
}

// New creates and configures the server. resolver and model may be nil;
// detection then falls back to the configured languages and the geometric
// order model.
func New(cfg *config.Config, backend *lindat.Client, resolver *identify.Resolver, model reorder.Model, log *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		backend:  backend,
		resolver: resolver,
		model:    model,
		log:      log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", s.handleHealth)
	r.Get("/api/models", s.handleModels)
	r.Post("/api/translate", s.handleTranslate)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.backend.Models(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"models": models}); err != nil {
		s.log.Error("encoding models", "error", err)
	}
}

// handleTranslate accepts a multipart upload ("document" field, optional
// "source" and "target" form values) and returns the translated document:
// XML round-trips, other formats come back as plain text.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, header, err := r.FormFile("document")
	if err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("missing document upload: %w", err))
		return
	}
	defer file.Close()

	cfg := *s.cfg
	if v := r.FormValue("source"); v != "" {
		cfg.SourceLang = v
	}
	if v := r.FormValue("target"); v != "" {
		cfg.TargetLang = v
	}

	// The pipeline works on paths; stage the upload in a scratch dir.
	dir, err := os.MkdirTemp("", "atrium-upload-*")
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, filepath.Base(header.Filename))
	f, err := os.Create(inPath)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if _, err := io.Copy(f, file); err != nil {
		f.Close()
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	f.Close()

	p, err := translate.NewPipeline(translate.Options{
		Config:   &cfg,
		Backend:  s.backend,
		Resolver: s.resolver,
		Reorder:  s.model,
		OnLog: func(format string, args ...any) {
			s.log.Info(fmt.Sprintf(format, args...), "document", header.Filename)
		},
		OnError: func(format string, args ...any) {
			s.log.Warn(fmt.Sprintf(format, args...), "document", header.Filename)
		},
	})
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	if strings.EqualFold(filepath.Ext(inPath), ".xml") {
		outPath := filepath.Join(dir, translate.OutputName(filepath.Base(inPath), cfg.TargetLang))
		if err := p.ProcessXML(r.Context(), inPath, outPath); err != nil {
			s.fail(w, http.StatusUnprocessableEntity, err)
			return
		}
		data, err := os.ReadFile(outPath)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.Write(data)
		return
	}

	text, err := p.ProcessText(r.Context(), inPath)
	if err != nil {
		s.fail(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, text)
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.log.Error("request failed", "status", status, "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
