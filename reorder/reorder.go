// Package reorder reconstructs the natural reading order of text fragments
// extracted from a two-dimensional layout.
//
// Fragments arrive as bounding boxes in source coordinates. They are
// normalized to a fixed 0–1000 grid, partitioned into fixed-size windows in
// extraction order, and each window is ordered independently by a sequence
// Model. The global order is the concatenation of the per-window orders:
// windows are never re-interleaved, on the assumption that extraction order
// already groups spatially adjacent content together.
package reorder

import (
	"fmt"
	"math"

	"github.com/K4TEL/atrium-translator/doctree"
)

// GridSize is the extent of the normalized coordinate grid. Models receive
// coordinates in [0, GridSize] regardless of the source page's units.
const GridSize = 1000

// DefaultWindowSize bounds the number of boxes per model call.
const DefaultWindowSize = 350

// Model orders one window of grid-normalized boxes. It returns a permutation
// of the window's indices in reading order and must be deterministic for
// identical input.
type Model interface {
	Order(boxes []doctree.Box) ([]int, error)
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

// Normalize scales boxes onto the 0–GridSize grid. The page extent is taken
// from pageW/pageH when positive, otherwise from the boxes themselves.
// Coordinates are rounded to whole grid units so that models see
// scale-invariant integer positions.
func Normalize(boxes []doctree.Box, pageW, pageH float64) []doctree.Box {
	if len(boxes) == 0 {
		return nil
	}
	if pageW <= 0 || pageH <= 0 {
		for _, b := range boxes {
			pageW = math.Max(pageW, b.X+b.W)
			pageH = math.Max(pageH, b.Y+b.H)
		}
	}
	if pageW <= 0 {
		pageW = 1
	}
	if pageH <= 0 {
		pageH = 1
	}

	out := make([]doctree.Box, len(boxes))
	for i, b := range boxes {
		out[i] = doctree.Box{
			X: math.Round(b.X / pageW * GridSize),
			Y: math.Round(b.Y / pageH * GridSize),
			W: math.Round(b.W / pageW * GridSize),
			H: math.Round(b.H / pageH * GridSize),
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Windowed sequencing
// ---------------------------------------------------------------------------

// Sequence computes the reading-order permutation for all boxes. Boxes must
// already be normalized (see Normalize). window <= 0 selects
// DefaultWindowSize. The result has exactly len(boxes) entries, each source
// index appearing once.
func Sequence(boxes []doctree.Box, model Model, window int) ([]int, error) {
	if model == nil {
		return nil, fmt.Errorf("reorder: nil model")
	}
	if window <= 0 {
		window = DefaultWindowSize
	}
	order := make([]int, 0, len(boxes))
	for start := 0; start < len(boxes); start += window {
		end := start + window
		if end > len(boxes) {
			end = len(boxes)
		}
		local, err := model.Order(boxes[start:end])
		if err != nil {
			return nil, fmt.Errorf("reorder: window [%d,%d): %w", start, end, err)
		}
		for _, idx := range repair(local, end-start) {
			order = append(order, start+idx)
		}
	}
	return order, nil
}

// repair forces a model output into a valid permutation of [0,n): indices
// out of range or repeated are dropped, then any missing indices are
// appended in ascending order. A well-behaved model passes through
// unchanged.
func repair(perm []int, n int) []int {
	used := make([]bool, n)
	out := make([]int, 0, n)
	for _, idx := range perm {
		if idx < 0 || idx >= n || used[idx] {
			continue
		}
		used[idx] = true
		out = append(out, idx)
	}
	for i := 0; i < n; i++ {
		if !used[i] {
			out = append(out, i)
		}
	}
	return out
}
