package lindat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL)
	c.HTTPClient = srv.Client()
	return srv, c
}

// ---------------------------------------------------------------------------
// Model discovery
// ---------------------------------------------------------------------------

func TestModels_Discovery(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["cs-en","en-cs","de-cs"]`))
	})
	models := c.Models(context.Background())
	if len(models) != 3 || models[0] != "cs-en" {
		t.Fatalf("models = %v", models)
	}
	if !c.Supports(context.Background(), "en", "cs") {
		t.Error("en-cs should be supported")
	}
	if c.Supports(context.Background(), "en", "fr") {
		t.Error("en-fr should not be supported")
	}
}

func TestModels_FallbackOnFailure(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})
	models := c.Models(context.Background())
	if len(models) != len(fallbackModels) {
		t.Fatalf("expected fallback list, got %v", models)
	}
	if !c.Supports(context.Background(), "cs", "en") {
		t.Error("fallback list should include cs-en")
	}
}

func TestModels_DiscoveryRunsOnce(t *testing.T) {
	var calls int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`["cs-en"]`))
	})
	c.Models(context.Background())
	c.Models(context.Background())
	c.Supports(context.Background(), "cs", "en")
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("discovery called %d times, want 1", n)
	}
}

// ---------------------------------------------------------------------------
// Translate
// ---------------------------------------------------------------------------

func TestTranslate_PlainText(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			w.Write([]byte(`["cs-en"]`))
		case "/models/cs-en/translate":
			if got := r.FormValue("input_text"); got != "Ahoj světe" {
				t.Errorf("input_text = %q", got)
			}
			w.Write([]byte("Hello world\n"))
		default:
			http.NotFound(w, r)
		}
	})
	got, err := c.Translate(context.Background(), "Ahoj světe", "cs", "en")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "Hello world" {
		t.Fatalf("translate = %q", got)
	}
}

func TestTranslate_JSONSentences(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			w.Write([]byte(`["cs-en"]`))
		default:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`["First sentence. ", "Second sentence."]`))
		}
	})
	got, err := c.Translate(context.Background(), "text", "cs", "en")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "First sentence.  Second sentence." {
		t.Fatalf("translate = %q", got)
	}
}

func TestTranslate_IdentityPair(t *testing.T) {
	var calls int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	got, err := c.Translate(context.Background(), "unchanged", "en", "en")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "unchanged" {
		t.Fatalf("translate = %q", got)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("identity pair must not touch the network")
	}
}

func TestTranslate_UnsupportedPair(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.Write([]byte(`["cs-en"]`))
			return
		}
		t.Errorf("unexpected call to %s", r.URL.Path)
	})
	_, err := c.Translate(context.Background(), "text", "xx", "en")
	if !errors.Is(err, ErrUnsupportedPair) {
		t.Fatalf("err = %v, want ErrUnsupportedPair", err)
	}
}

func TestTranslate_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.Write([]byte(`["cs-en"]`))
			return
		}
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad input", http.StatusBadRequest)
	})
	_, err := c.Translate(context.Background(), "text", "cs", "en")
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BackendError", err)
	}
	if be.Status != http.StatusBadRequest || be.Pair != "cs-en" {
		t.Fatalf("unexpected backend error %+v", be)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("client error retried: %d calls", calls)
	}
}

func TestTranslate_RetriesServerError(t *testing.T) {
	var calls int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.Write([]byte(`["cs-en"]`))
			return
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "hiccup", http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	})
	c.MaxRetries = 1
	got, err := c.Translate(context.Background(), "text", "cs", "en")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "recovered" {
		t.Fatalf("translate = %q", got)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestTranslate_ContextCancelled(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.Write([]byte(`["cs-en"]`))
		}
	})
	c.Models(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Translate(ctx, "text", "cs", "en"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
