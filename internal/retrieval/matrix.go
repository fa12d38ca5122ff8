package retrieval

import (
	"fmt"
	"math"
)

// Matrix holds a dense set of row vectors in memory for brute-force cosine
// similarity scans. Rows keep the order they were added in; ties on score
// resolve to the earliest row.
type Matrix struct {
	rows  [][]float32
	norms []float32
	dim   int
}

// NewMatrix builds a Matrix from the given row vectors. All rows must share
// the same non-zero dimension.
func NewMatrix(rows [][]float32) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("matrix requires at least one row")
	}
	dim := len(rows[0])
	if dim == 0 {
		return nil, fmt.Errorf("row 0 has zero dimension")
	}

	m := &Matrix{
		rows:  rows,
		norms: make([]float32, len(rows)),
		dim:   dim,
	}
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("row %d has dimension %d, expected %d", i, len(row), dim)
		}
		m.norms[i] = norm(row)
	}
	return m, nil
}

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.rows) }

// Dim returns the row dimension.
func (m *Matrix) Dim() int { return m.dim }

// Top scans every row and returns the index and cosine similarity of the row
// most similar to the query vector. The first row wins ties.
func (m *Matrix) Top(query []float32) (int, float32, error) {
	if len(query) != m.dim {
		return 0, 0, fmt.Errorf("query has dimension %d, expected %d", len(query), m.dim)
	}

	queryNorm := norm(query)
	best := 0
	var bestScore float32
	for i, row := range m.rows {
		score := cosine(query, row, queryNorm, m.norms[i])
		if i == 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best, bestScore, nil
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes dot(a,b) / (aNorm * bNorm) with precomputed norms.
// A zero norm on either side yields a score of 0.
func cosine(a, b []float32, aNorm, bNorm float32) float32 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (float64(aNorm) * float64(bNorm)))
}
