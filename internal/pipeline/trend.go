package pipeline

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"ecommerce-dashboard/internal/models"
)

// FitLinearTrend fits y = a + b*x by least squares over x = 0..n-1 and returns
// the fitted value at every index.
func FitLinearTrend(values []float64) ([]float64, error) {
	n := len(values)
	if n < 2 {
		return nil, &InsufficientDataError{N: n}
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, values, nil, false)

	fitted := make([]float64, n)
	for i, x := range xs {
		fitted[i] = alpha + beta*x
	}
	return fitted, nil
}

// BuildTrend fits a trend line for one named series.
func BuildTrend(name string, window MonthWindow, values []float64) (models.TrendSeries, error) {
	fitted, err := FitLinearTrend(values)
	if err != nil {
		var ide *InsufficientDataError
		if errors.As(err, &ide) {
			ide.Series = name
		}
		return models.TrendSeries{}, err
	}
	return models.TrendSeries{
		Months: window.Names(),
		Actual: values,
		Fitted: fitted,
	}, nil
}
