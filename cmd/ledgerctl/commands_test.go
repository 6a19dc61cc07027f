package main

import (
	"bytes"
	"testing"

	"inventory-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProduct(t *testing.T) {
	p, err := parseProduct([]string{"Widget", "9.99", "Tools", "50"})
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 50, p.Stock)

	_, err = parseProduct([]string{"Widget", "cheap", "Tools", "50"})
	assert.Error(t, err)

	_, err = parseProduct([]string{"Widget", "1", "Tools", "many"})
	assert.Error(t, err)
}

func TestPrintProductsTable(t *testing.T) {
	var buf bytes.Buffer
	err := printProducts(&buf, []models.Product{
		{Name: "Widget", Price: decimal.RequireFromString("2.5"), Category: "Tools", Stock: 50},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "PRODUCT")
	assert.Contains(t, buf.String(), "$2.50")
}
