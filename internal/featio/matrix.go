package featio

import "fmt"

// Matrix is a dense frames x dims float32 matrix stored row-major.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// FromRows copies a slice of equally sized rows into a Matrix.
func FromRows(rows [][]float32) Matrix {
	if len(rows) == 0 {
		return Matrix{}
	}
	m := NewMatrix(len(rows), len(rows[0]))
	for i, row := range rows {
		copy(m.Row(i), row)
	}
	return m
}

// Row returns frame i as a slice aliasing the backing buffer.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

func (m Matrix) At(i, j int) float32 { return m.Data[i*m.Cols+j] }

func (m Matrix) Set(i, j int, v float32) { m.Data[i*m.Cols+j] = v }

// CropRows keeps the first n frames. The result aliases m.
func (m Matrix) CropRows(n int) Matrix {
	if n >= m.Rows {
		return m
	}
	if n < 0 {
		n = 0
	}
	return Matrix{Rows: n, Cols: m.Cols, Data: m.Data[:n*m.Cols]}
}

// Column copies column j into a float64 slice.
func (m Matrix) Column(j int) []float64 {
	out := make([]float64, m.Rows)
	for i := 0; i < m.Rows; i++ {
		out[i] = float64(m.Data[i*m.Cols+j])
	}
	return out
}

// SetColumn overwrites column j.
func (m Matrix) SetColumn(j int, values []float64) {
	for i := 0; i < m.Rows && i < len(values); i++ {
		m.Data[i*m.Cols+j] = float32(values[i])
	}
}

// SelectCols returns a new matrix holding the listed columns in order.
func (m Matrix) SelectCols(idx []int) Matrix {
	out := NewMatrix(m.Rows, len(idx))
	for i := 0; i < m.Rows; i++ {
		src := m.Row(i)
		dst := out.Row(i)
		for k, j := range idx {
			dst[k] = src[j]
		}
	}
	return out
}

// HStack concatenates matrices with equal row counts side by side.
func HStack(parts ...Matrix) (Matrix, error) {
	if len(parts) == 0 {
		return Matrix{}, nil
	}
	rows := parts[0].Rows
	cols := 0
	for i, p := range parts {
		if p.Rows != rows {
			return Matrix{}, fmt.Errorf("hstack: part %d has %d rows, want %d", i, p.Rows, rows)
		}
		cols += p.Cols
	}
	out := NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		dst := out.Row(i)
		offset := 0
		for _, p := range parts {
			copy(dst[offset:offset+p.Cols], p.Row(i))
			offset += p.Cols
		}
	}
	return out, nil
}
