// Package lindat is a client for the Lindat Translation REST service.
//
// The service exposes machine-translation models per language pair. The
// client discovers the available pairs once, falls back to a known pair
// list when discovery fails, and translates one payload-sized chunk per
// request. Transient failures are retried with bounded exponential backoff;
// a 429 honors the service's Retry-After before the next attempt.
package lindat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultBaseURL is the public Lindat translation endpoint.
const DefaultBaseURL = "https://lindat.mff.cuni.cz/services/translation/api/v2"

// fallbackModels is used when model discovery fails.
var fallbackModels = []string{"fr-en", "cs-en", "de-en", "uk-en", "ru-en", "pl-en"}

// ErrUnsupportedPair marks a language pair the service has no model for.
// The caller skips the affected unit rather than aborting the document.
var ErrUnsupportedPair = errors.New("language pair not supported by backend")

// BackendError is a translation call failure after all retries.
type BackendError struct {
	// Pair is the model name, e.g. "cs-en".
	Pair string
	// Status is the last HTTP status, 0 for transport failures.
	Status int
	// Body is the (truncated) last response body.
	Body string
	// Err is the underlying transport error, if any.
	Err error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %s: %v", e.Pair, e.Err)
	}
	return fmt.Sprintf("backend %s: status %d: %s", e.Pair, e.Status, e.Body)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client talks to one Lindat-compatible service. The zero value is not
// usable; construct with New. A Client is safe for concurrent use.
type Client struct {
	// BaseURL is the service root, without trailing slash.
	BaseURL string
	// HTTPClient defaults to a client with a 60s timeout.
	HTTPClient *http.Client
	// MaxRetries is the number of retries after the first attempt on
	// transient failures. Default: 3.
	MaxRetries int

	modelsOnce sync.Once
	models     []string
	modelSet   map[string]bool
}

// New returns a client for baseURL; empty selects DefaultBaseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		MaxRetries: 3,
	}
}

// Models returns the supported language pairs ("src-tgt"). Discovery runs
// once per client; on failure the hardcoded fallback list is used and no
// error is returned, matching the service's best-effort discovery contract.
func (c *Client) Models(ctx context.Context) []string {
	c.modelsOnce.Do(func() {
		c.models = c.fetchModels(ctx)
		c.modelSet = make(map[string]bool, len(c.models))
		for _, m := range c.models {
			c.modelSet[m] = true
		}
	})
	return c.models
}

func (c *Client) fetchModels(ctx context.Context) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/models", nil)
	if err != nil {
		return fallbackModels
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fallbackModels
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fallbackModels
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fallbackModels
	}
	var pairs []string
	if err := json.Unmarshal(body, &pairs); err != nil || len(pairs) == 0 {
		return fallbackModels
	}
	return pairs
}

// Supports reports whether a src→tgt model exists.
func (c *Client) Supports(ctx context.Context, src, tgt string) bool {
	if src == tgt {
		return true
	}
	c.Models(ctx)
	return c.modelSet[src+"-"+tgt]
}

// ---------------------------------------------------------------------------
// Translation
// ---------------------------------------------------------------------------

// Translate sends one chunk through the src→tgt model. Identical source and
// target short-circuit to the input. The text must already fit the service's
// payload limit; chunking is the caller's concern.
func (c *Client) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	if src == tgt {
		return text, nil
	}
	pair := src + "-" + tgt
	if !c.Supports(ctx, src, tgt) {
		return "", fmt.Errorf("%s: %w", pair, ErrUnsupportedPair)
	}

	endpoint := c.BaseURL + "/models/" + pair + "/translate"
	form := url.Values{"input_text": {text}}.Encode()

	maxRetries := c.MaxRetries
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "text/plain")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = &BackendError{Pair: pair, Err: err}
			if attempt < maxRetries {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", lastErr
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return parseResponse(body), nil

		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &BackendError{Pair: pair, Status: resp.StatusCode, Body: truncate(string(body), 500)}
			if attempt < maxRetries {
				if err := sleepCtx(ctx, retryAfter(resp, attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", lastErr

		case resp.StatusCode >= 500:
			lastErr = &BackendError{Pair: pair, Status: resp.StatusCode, Body: truncate(string(body), 500)}
			if attempt < maxRetries {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", lastErr

		default:
			// Client errors are not retried.
			return "", &BackendError{Pair: pair, Status: resp.StatusCode, Body: truncate(string(body), 500)}
		}
	}
	return "", lastErr
}

// parseResponse extracts the translated text. The service answers plain text
// by default but some deployments return a JSON array of sentences.
func parseResponse(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var sentences []string
		if err := json.Unmarshal([]byte(trimmed), &sentences); err == nil {
			return strings.TrimSpace(strings.Join(sentences, " "))
		}
	}
	return trimmed
}

// retryAfter picks the wait before retrying a 429, honoring the service's
// Retry-After seconds when present.
func retryAfter(resp *http.Response, attempt int) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return backoff(attempt)
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
