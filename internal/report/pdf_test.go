package report

import (
	"bytes"
	"testing"
	"time"

	"inventory-ledger/internal/forecast"
	"inventory-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryReport(t *testing.T) {
	products := []models.Product{
		{Name: "Widget", Price: decimal.RequireFromString("9.99"), Category: "Tools", Stock: 50},
		{Name: "A product with a rather long name that will not fit its column", Price: decimal.Zero, Category: "Misc", Stock: 0},
	}

	var buf bytes.Buffer
	err := NewPDFRenderer().InventoryReport(&buf, products, time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestInventoryReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPDFRenderer().InventoryReport(&buf, nil, time.Now()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestForecastChart(t *testing.T) {
	sales := []models.Sale{
		{ID: 1, ProductName: "X", Quantity: 10, Timestamp: time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local)},
		{ID: 2, ProductName: "X", Quantity: 20, Timestamp: time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local)},
	}
	f, err := forecast.Predict(sales, "X", 12)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewPDFRenderer().ForecastChart(&buf, f))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestForecastChartWithoutHistory(t *testing.T) {
	var buf bytes.Buffer
	err := NewPDFRenderer().ForecastChart(&buf, &forecast.Forecast{Product: "X"})
	assert.ErrorIs(t, err, forecast.ErrNoSalesHistory)
}

func TestNiceCeil(t *testing.T) {
	assert.Equal(t, 1.0, niceCeil(0))
	assert.Equal(t, 50.0, niceCeil(40))
	assert.Equal(t, 100.0, niceCeil(100))
	assert.Equal(t, 200.0, niceCeil(101))
}
