package window_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featmill/internal/faults"
	"featmill/internal/featio"
	"featmill/internal/window"
)

var firstOrder = window.Kernel{-0.5, 0, 0.5}

func TestDeltaRampIsConstant(t *testing.T) {
	ramp := []float64{0, 1, 2, 3, 4, 5}
	got := window.Delta(ramp, firstOrder)
	require.Len(t, got, len(ramp))
	// 0.5*(x[t+1]-x[t-1]) on a unit ramp.
	for i, v := range got {
		assert.InDelta(t, 1.0, v, 1e-12, "frame %d", i)
	}
}

func TestDeltaHalfSlopeRamp(t *testing.T) {
	ramp := []float64{0, 0.5, 1, 1.5, 2, 2.5}
	for i, v := range window.Delta(ramp, firstOrder) {
		assert.InDelta(t, 0.5, v, 1e-12, "frame %d", i)
	}
}

func TestDeltaBoundariesReplicateInterior(t *testing.T) {
	x := []float64{0, 1, 4, 9, 16, 25}
	got := window.Delta(x, firstOrder)
	assert.InDelta(t, 2.0, got[1], 1e-12)
	assert.InDelta(t, 8.0, got[4], 1e-12)
	assert.Equal(t, got[1], got[0], "leading edge must repeat first interior value")
	assert.Equal(t, got[4], got[5], "trailing edge must repeat last interior value")
	assert.NotZero(t, got[0])
}

func TestDeltaWideKernel(t *testing.T) {
	k := window.Kernel{-0.2, -0.1, 0, 0.1, 0.2}
	x := []float64{0, 1, 2, 3, 4, 5, 6}
	got := window.Delta(x, k)
	// 0.2*2 + 0.1*1 on each side of a unit ramp: 0.4+0.1+0.1+0.4 = 1.0
	for i, v := range got {
		assert.InDelta(t, 1.0, v, 1e-12, "frame %d", i)
	}
}

func TestDeltaSecondOrderSign(t *testing.T) {
	// Negated convolution with {1,-2,1}: a convex parabola yields -2.
	x := []float64{0, 1, 4, 9, 16}
	for i, v := range window.Delta(x, window.Kernel{1, -2, 1}) {
		assert.InDelta(t, -2.0, v, 1e-12, "frame %d", i)
	}
}

func TestDeltaShortColumnClamps(t *testing.T) {
	got := window.Delta([]float64{3, 5}, firstOrder)
	require.Len(t, got, 2)
	assert.InDelta(t, 1.0, got[0], 1e-12)
	assert.InDelta(t, 1.0, got[1], 1e-12)
	assert.Empty(t, window.Delta(nil, firstOrder))
}

func TestApplyConcatenatesInKernelOrder(t *testing.T) {
	m := featio.FromRows([][]float32{{0, 10}, {1, 10}, {2, 10}, {3, 10}})
	out, err := window.Apply(m, []window.Kernel{firstOrder, {1, -2, 1}})
	require.NoError(t, err)
	require.Equal(t, 6, out.Cols)
	require.Equal(t, 4, out.Rows)
	for i := 0; i < out.Rows; i++ {
		row := out.Row(i)
		assert.Equal(t, m.Row(i), row[:2], "static block must be unchanged")
		assert.InDelta(t, 1.0, row[2], 1e-6)
		assert.InDelta(t, 0.0, row[3], 1e-6)
		assert.InDelta(t, 0.0, row[4], 1e-6)
		assert.InDelta(t, 0.0, row[5], 1e-6)
	}
	assert.Equal(t, 6, window.OutputCols(2, 2))
}

func TestApplyWithoutKernelsIsIdentity(t *testing.T) {
	m := featio.FromRows([][]float32{{1, 2}, {3, 4}})
	out, err := window.Apply(m, nil)
	require.NoError(t, err)
	assert.Equal(t, m, out)
}

func TestParseKernelsRejectsEvenLength(t *testing.T) {
	_, err := window.ParseKernels([][]float64{{-0.5, 0, 0.5}, {1, -1}})
	assert.True(t, errors.Is(err, faults.ErrConfiguration), "got %v", err)
	_, err = window.ParseKernels([][]float64{{}})
	assert.True(t, errors.Is(err, faults.ErrConfiguration), "got %v", err)

	ks, err := window.ParseKernels([][]float64{{-0.5, 0, 0.5}})
	require.NoError(t, err)
	assert.Equal(t, 1, ks[0].Half())
}
