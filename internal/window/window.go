// Package window appends delta features computed by sliding short kernels
// over each static column.
package window

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"featmill/internal/faults"
	"featmill/internal/featio"
)

// Kernel is an odd-length window, e.g. {-0.5, 0, 0.5} for a first-order delta
// or {1, -2, 1} for a second-order one.
type Kernel []float64

// Half is the number of frames the kernel reaches on each side.
func (k Kernel) Half() int { return (len(k) - 1) / 2 }

// ParseKernels validates raw kernels from configuration.
func ParseKernels(raw [][]float64) ([]Kernel, error) {
	out := make([]Kernel, 0, len(raw))
	for i, values := range raw {
		if len(values) == 0 || len(values)%2 == 0 {
			return nil, faults.Wrap(faults.ErrConfiguration, "window", "parse",
				fmt.Sprintf("kernel %d must have odd length, got %d", i, len(values)), nil)
		}
		k := make(Kernel, len(values))
		copy(k, values)
		out = append(out, k)
	}
	return out, nil
}

// Delta applies k to one column. Interior frames hold the negated,
// center-aligned convolution so a rising ramp yields a positive delta;
// the Half() frames at each edge repeat the nearest interior value. Columns
// too short for an interior fall back to clamping indices at the edges.
func Delta(x []float64, k Kernel) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	half := k.Half()
	reversed := make([]float64, len(k))
	for i, v := range k {
		reversed[len(k)-1-i] = v
	}

	if n <= 2*half {
		window := make([]float64, len(k))
		for t := 0; t < n; t++ {
			for i := range window {
				window[i] = x[clamp(t-half+i, 0, n-1)]
			}
			out[t] = -floats.Dot(reversed, window)
		}
		return out
	}

	for t := half; t < n-half; t++ {
		out[t] = -floats.Dot(reversed, x[t-half:t+half+1])
	}
	for t := 0; t < half; t++ {
		out[t] = out[half]
		out[n-1-t] = out[n-1-half]
	}
	return out
}

// Apply returns [static, delta(k1), delta(k2), ...]. With no kernels the
// input matrix is returned as is.
func Apply(m featio.Matrix, kernels []Kernel) (featio.Matrix, error) {
	if len(kernels) == 0 {
		return m, nil
	}
	parts := make([]featio.Matrix, 0, len(kernels)+1)
	parts = append(parts, m)
	for _, k := range kernels {
		dm := featio.NewMatrix(m.Rows, m.Cols)
		for d := 0; d < m.Cols; d++ {
			dm.SetColumn(d, Delta(m.Column(d), k))
		}
		parts = append(parts, dm)
	}
	return featio.HStack(parts...)
}

// OutputCols is the composed width for a static width and kernel count.
func OutputCols(staticCols, kernels int) int {
	return staticCols * (1 + kernels)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
