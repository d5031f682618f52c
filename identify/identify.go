// Package identify resolves the source language of extracted text.
//
// Detection runs once per logical group (a page, a record), not per unit:
// short OCR fragments are unreliable on their own, so every unit in a group
// shares the group's resolution. A detection below the configured confidence
// threshold is replaced by the configured default language; a detection at
// exactly the threshold is kept.
package identify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
)

// Detection is one language-identification result.
type Detection struct {
	// Code is the lowercase ISO 639-1 code.
	Code string
	// Confidence is in [0, 1].
	Confidence float64
}

// Detector identifies the language of a text sample.
type Detector interface {
	Detect(text string) (Detection, error)
}

// ---------------------------------------------------------------------------
// Lingua-backed detector
// ---------------------------------------------------------------------------

// byCode covers the languages the Lindat service has models for.
var byCode = map[string]lingua.Language{
	"cs": lingua.Czech,
	"en": lingua.English,
	"de": lingua.German,
	"fr": lingua.French,
	"pl": lingua.Polish,
	"ru": lingua.Russian,
	"uk": lingua.Ukrainian,
	"sk": lingua.Slovak,
}

// Lingua detects languages with the embedded lingua models. Build once at
// process start and share across documents; detection is safe concurrently.
type Lingua struct {
	detector lingua.LanguageDetector
}

// NewLingua builds a detector restricted to the given ISO 639-1 codes; with
// no codes it covers every language the backend can translate.
func NewLingua(codes ...string) (*Lingua, error) {
	var langs []lingua.Language
	if len(codes) == 0 {
		for _, l := range byCode {
			langs = append(langs, l)
		}
	} else {
		for _, code := range codes {
			l, ok := byCode[strings.ToLower(code)]
			if !ok {
				return nil, fmt.Errorf("identify: no detection model for language %q", code)
			}
			langs = append(langs, l)
		}
	}
	if len(langs) < 2 {
		return nil, fmt.Errorf("identify: need at least two candidate languages, got %d", len(langs))
	}
	det := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		Build()
	return &Lingua{detector: det}, nil
}

func (l *Lingua) Detect(text string) (Detection, error) {
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return Detection{}, fmt.Errorf("identify: no language detected")
	}
	conf := l.detector.ComputeLanguageConfidence(text, lang)
	return Detection{
		Code:       strings.ToLower(lang.IsoCode639_1().String()),
		Confidence: conf,
	}, nil
}

// ---------------------------------------------------------------------------
// Confidence-gated resolver
// ---------------------------------------------------------------------------

// Resolver applies the confidence gate and caches one resolution per group.
type Resolver struct {
	Detector Detector
	// Threshold gates detections; below it the Default language is used.
	// The comparison is inclusive: confidence == Threshold keeps the
	// detection.
	Threshold float64
	// Default is the language substituted for low-confidence detections
	// and detector failures.
	Default string

	mu     sync.Mutex
	groups map[string]string
}

// NewResolver wires a detector with the gate parameters.
func NewResolver(d Detector, threshold float64, def string) *Resolver {
	return &Resolver{
		Detector:  d,
		Threshold: threshold,
		Default:   def,
		groups:    make(map[string]string),
	}
}

// Resolve returns the language code for one sample without group caching.
func (r *Resolver) Resolve(sample string) string {
	det, err := r.Detector.Detect(sample)
	if err != nil || det.Confidence < r.Threshold {
		return r.Default
	}
	return det.Code
}

// ResolveGroup resolves the language for a logical group, detecting at most
// once per group and reusing the answer for every later unit of the group.
func (r *Resolver) ResolveGroup(group, sample string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code, ok := r.groups[group]; ok {
		return code
	}
	code := r.Resolve(sample)
	r.groups[group] = code
	return code
}

// NormalizeCode canonicalizes a user-supplied language code ("ces", "cs-CZ",
// "CS") to its ISO 639-1 base form.
func NormalizeCode(code string) (string, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("identify: invalid language code %q: %w", code, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}
