// Package forecast projects monthly demand for a product from its sales
// history with a single-feature least-squares trend line.
package forecast

import (
	"errors"
	"fmt"
	"time"

	"inventory-ledger/internal/models"

	"gonum.org/v1/gonum/stat"
)

// DefaultPeriods is the horizon used when the caller does not pick one
const DefaultPeriods = 12

var (
	// ErrNoSalesHistory is returned when the product has never been sold
	ErrNoSalesHistory = errors.New("no sales history")

	// ErrInvalidHorizon is returned for a horizon below one month
	ErrInvalidHorizon = errors.New("forecast horizon must be at least one month")
)

// Point is a quantity attached to a month-end date
type Point struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// Forecast is the fitted trend and its projection
type Forecast struct {
	Product     string  `json:"product"`
	Periods     int     `json:"periods"`
	Intercept   float64 `json:"intercept"`
	Slope       float64 `json:"slope"`
	History     []Point `json:"history"`
	Predictions []Point `json:"predictions"`
}

// At evaluates the fitted line at a month index (0 is the first observed month)
func (f *Forecast) At(index int) float64 {
	return f.Intercept + f.Slope*float64(index)
}

// Predict fits a trend to the product's monthly sales and projects periods
// months past the last observed month. Projected quantities below zero are
// reported as zero; the raw line stays available through At.
func Predict(sales []models.Sale, product string, periods int) (*Forecast, error) {
	if periods < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHorizon, periods)
	}

	history := MonthlyTotals(sales, product)
	if len(history) == 0 {
		return nil, fmt.Errorf("%w for product %q", ErrNoSalesHistory, product)
	}

	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, p := range history {
		xs[i] = float64(i)
		ys[i] = p.Quantity
	}
	intercept, slope := fit(xs, ys)

	f := &Forecast{
		Product:     product,
		Periods:     periods,
		Intercept:   intercept,
		Slope:       slope,
		History:     history,
		Predictions: make([]Point, 0, periods),
	}

	last := len(history) - 1
	lastMonth := history[last].Date
	for i := 1; i <= periods; i++ {
		q := f.At(last + i)
		if q < 0 {
			q = 0
		}
		f.Predictions = append(f.Predictions, Point{
			Date:     monthEnd(lastMonth.Year(), lastMonth.Month()+time.Month(i)),
			Quantity: q,
		})
	}

	return f, nil
}

// MonthlyTotals sums the product's sales per calendar month from the first
// to the last month with a sale. Months without sales are present with 0.
// Bucket i is i months after the first one, so slice position doubles as the
// time index.
func MonthlyTotals(sales []models.Sale, product string) []Point {
	totals := make(map[int]float64)
	first, last := 0, 0
	seen := false

	for _, s := range sales {
		if s.ProductName != product {
			continue
		}
		idx := monthIndex(s.Timestamp)
		totals[idx] += float64(s.Quantity)
		if !seen || idx < first {
			first = idx
		}
		if !seen || idx > last {
			last = idx
		}
		seen = true
	}
	if !seen {
		return nil
	}

	points := make([]Point, 0, last-first+1)
	for idx := first; idx <= last; idx++ {
		year, month := idx/12, time.Month(idx%12+1)
		points = append(points, Point{
			Date:     monthEnd(year, month),
			Quantity: totals[idx],
		})
	}
	return points
}

// fit returns the least-squares intercept and slope. A single month has no
// slope to speak of, so the line is flat at that month's total.
func fit(xs, ys []float64) (intercept, slope float64) {
	if len(xs) < 2 {
		return ys[0], 0
	}
	return stat.LinearRegression(xs, ys, nil, false)
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// monthEnd normalises overflowing months (e.g. month 14) like time.Date does
func monthEnd(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local)
}
