package reorder

import (
	"sort"

	"github.com/K4TEL/atrium-translator/doctree"
)

// ---------------------------------------------------------------------------
// Geometric model
// ---------------------------------------------------------------------------

// Geometric is a deterministic rule-based sequence model: boxes are grouped
// into rows by vertical-center proximity, rows are read top to bottom and
// each row left to right. It needs no model file and serves as the fallback
// when no ONNX model is configured.
type Geometric struct {
	// RowTolerance is the vertical-center distance, as a fraction of the
	// median box height, within which two boxes share a row. Zero selects
	// the default of 0.6.
	RowTolerance float64
}

func (g Geometric) Order(boxes []doctree.Box) ([]int, error) {
	n := len(boxes)
	if n == 0 {
		return nil, nil
	}
	tol := g.RowTolerance
	if tol <= 0 {
		tol = 0.6
	}
	maxDist := tol * medianHeight(boxes)

	// Assign row numbers in ascending vertical-center order; a box opens a
	// new row when it sits below the current row's anchor by more than the
	// tolerance.
	byY := make([]int, n)
	for i := range byY {
		byY[i] = i
	}
	sort.SliceStable(byY, func(a, b int) bool {
		return centerY(boxes[byY[a]]) < centerY(boxes[byY[b]])
	})

	row := make([]int, n)
	cur := 0
	anchor := centerY(boxes[byY[0]])
	for _, idx := range byY {
		yc := centerY(boxes[idx])
		if yc-anchor > maxDist {
			cur++
			anchor = yc
		}
		row[idx] = cur
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if row[ia] != row[ib] {
			return row[ia] < row[ib]
		}
		return boxes[ia].X < boxes[ib].X
	})
	return order, nil
}

func centerY(b doctree.Box) float64 {
	return b.Y + b.H/2
}

func medianHeight(boxes []doctree.Box) float64 {
	hs := make([]float64, 0, len(boxes))
	for _, b := range boxes {
		if b.H > 0 {
			hs = append(hs, b.H)
		}
	}
	if len(hs) == 0 {
		return 1
	}
	sort.Float64s(hs)
	return hs[len(hs)/2]
}
