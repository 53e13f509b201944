package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitLinearTrend_PerfectLine(t *testing.T) {
	fitted, err := FitLinearTrend([]float64{10, 20, 30, 40})
	require.NoError(t, err)

	want := []float64{10, 20, 30, 40}
	require.Len(t, fitted, len(want))
	for i := range want {
		assert.InDelta(t, want[i], fitted[i], 1e-9)
	}
}

func TestFitLinearTrend_Flat(t *testing.T) {
	fitted, err := FitLinearTrend([]float64{7, 7, 7})
	require.NoError(t, err)
	for _, v := range fitted {
		assert.InDelta(t, 7, v, 1e-9)
	}
}

func TestFitLinearTrend_ResidualsSumToZero(t *testing.T) {
	values := []float64{5, 3, 2, 1}
	fitted, err := FitLinearTrend(values)
	require.NoError(t, err)

	residual := 0.0
	for i := range values {
		residual += values[i] - fitted[i]
	}
	assert.InDelta(t, 0, residual, 1e-9)
	assert.Greater(t, fitted[0], fitted[3], "trend follows the falling series")
}

func TestFitLinearTrend_InsufficientData(t *testing.T) {
	for _, values := range [][]float64{nil, {42}} {
		_, err := FitLinearTrend(values)
		assert.ErrorIs(t, err, ErrInsufficientData)
	}
}

func TestBuildTrend_NamesSeriesOnError(t *testing.T) {
	_, err := BuildTrend("product A", MonthWindow{DefaultMonthWindow[0]}, []float64{3})

	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, "product A", ide.Series)
	assert.Equal(t, 1, ide.N)
	assert.Equal(t, StageTrend, ide.Stage())
	assert.Contains(t, err.Error(), "product A")
}

func TestBuildTrend(t *testing.T) {
	series, err := BuildTrend("all products", DefaultMonthWindow, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	assert.Equal(t, []string{"January", "February", "March", "April"}, series.Months)
	assert.Equal(t, []float64{1, 2, 3, 4}, series.Actual)
	assert.Len(t, series.Fitted, 4)
}
