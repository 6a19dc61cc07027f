package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"inventory-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProducts() []models.Product {
	return []models.Product{
		{Name: "Widget", Price: decimal.RequireFromString("2.5"), Category: "Tools", Stock: 50},
		{Name: "Gadget, Deluxe", Price: decimal.RequireFromString("10"), Category: "Electronics", Stock: 3},
	}
}

func TestCSVStoreMissingFilesCreateHeaders(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	products, err := s.LoadInventory(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)

	txs, err := s.LoadTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)

	sales, err := s.LoadSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)

	data, err := os.ReadFile(s.Path(KindInventory))
	require.NoError(t, err)
	assert.Equal(t, "Product Name,Price,Category,Stock\n", string(data))

	data, err = os.ReadFile(s.Path(KindTransactions))
	require.NoError(t, err)
	assert.Equal(t, "Transaction ID,Action,Product Name,Quantity,User,Timestamp\n", string(data))

	data, err = os.ReadFile(s.Path(KindSales))
	require.NoError(t, err)
	assert.Equal(t, "Sale ID,Product Name,Quantity,Sale Timestamp\n", string(data))
}

func TestCSVStoreRoundTrip(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ts := time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local)

	require.NoError(t, s.SaveInventory(ctx, sampleProducts()))
	require.NoError(t, s.SaveTransactions(ctx, []models.Transaction{
		{ID: 1, Action: models.ActionAdd, ProductName: "Widget", Quantity: 50, User: "harsh", Timestamp: ts},
	}))
	require.NoError(t, s.SaveSales(ctx, []models.Sale{
		{ID: 1, ProductName: "Widget", Quantity: 10, Timestamp: ts},
	}))

	products, err := s.LoadInventory(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Widget", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, "Gadget, Deluxe", products[1].Name)
	assert.Equal(t, 3, products[1].Stock)

	txs, err := s.LoadTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "harsh", txs[0].User)
	assert.True(t, ts.Equal(txs[0].Timestamp))

	sales, err := s.LoadSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 10, sales[0].Quantity)

	data, err := os.ReadFile(s.Path(KindSales))
	require.NoError(t, err)
	assert.Contains(t, string(data), "1,Widget,10,2024-03-05 14:30:00")
}

func TestCSVStoreAcceptsWholeFloats(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir)
	require.NoError(t, err)

	content := "Product Name,Price,Category,Stock\nWidget,2.50,Tools,50.0\n"
	require.NoError(t, os.WriteFile(s.Path(KindInventory), []byte(content), 0o644))

	products, err := s.LoadInventory(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 50, products[0].Stock)
}

func TestCSVStoreQuarantinesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir)
	require.NoError(t, err)

	content := "Product Name,Price,Category,Stock\nWidget,not-a-price,Tools,5\n"
	require.NoError(t, os.WriteFile(s.Path(KindInventory), []byte(content), 0o644))

	products, err := s.LoadInventory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)

	matches, err := filepath.Glob(filepath.Join(dir, "inventory.csv.corrupt-*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	moved, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, content, string(moved))

	data, err := os.ReadFile(s.Path(KindInventory))
	require.NoError(t, err)
	assert.Equal(t, "Product Name,Price,Category,Stock\n", string(data))
}

func TestCSVStoreQuarantinesInvalidProducts(t *testing.T) {
	for name, content := range map[string]string{
		"negative stock": "Product Name,Price,Category,Stock\nWidget,1,Tools,5\nNeg,1,X,-5\n",
		"empty name":     "Product Name,Price,Category,Stock\nWidget,1,Tools,5\n,1,X,3\n",
		"negative price": "Product Name,Price,Category,Stock\nWidget,-1,Tools,5\n",
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			s, err := NewCSVStore(dir)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(s.Path(KindInventory), []byte(content), 0o644))

			products, err := s.LoadInventory(context.Background())
			require.NoError(t, err)
			assert.Empty(t, products)

			matches, err := filepath.Glob(filepath.Join(dir, "inventory.csv.corrupt-*"))
			require.NoError(t, err)
			assert.Len(t, matches, 1)
		})
	}
}

func TestCSVStoreRejectsWrongHeader(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.Path(KindSales), []byte("id,product,qty,when\n"), 0o644))

	sales, err := s.LoadSales(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sales)

	matches, _ := filepath.Glob(filepath.Join(dir, "sales.csv.corrupt-*"))
	assert.Len(t, matches, 1)
}

func TestCSVStoreSaveFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir)
	require.NoError(t, err)

	// the data directory disappearing makes every write fail
	require.NoError(t, os.RemoveAll(dir))

	err = s.SaveInventory(context.Background(), sampleProducts())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindInventory, perr.Kind)
	assert.Equal(t, "save", perr.Op)
}

func TestCSVStoreCancelledContext(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.SaveSales(ctx, nil)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteInventoryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInventoryCSV(&buf, sampleProducts()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Product Name,Price,Category,Stock", lines[0])
	assert.Equal(t, "Widget,2.5,Tools,50", lines[1])
	assert.Equal(t, `"Gadget, Deluxe",10,Electronics,3`, lines[2])
}

func TestSQLStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Integration test - requires database (set TEST_DATABASE_URL)")
	}

	s, err := NewSQLStore("postgres", dsn)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	ts := time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local)

	require.NoError(t, s.SaveInventory(ctx, sampleProducts()))
	require.NoError(t, s.SaveTransactions(ctx, []models.Transaction{
		{ID: 1, Action: models.ActionAdd, ProductName: "Widget", Quantity: 50, User: "harsh", Timestamp: ts},
	}))
	require.NoError(t, s.SaveSales(ctx, []models.Sale{
		{ID: 1, ProductName: "Widget", Quantity: 10, Timestamp: ts},
	}))

	products, err := s.LoadInventory(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Widget", products[0].Name)
	assert.Equal(t, "Gadget, Deluxe", products[1].Name)

	txs, err := s.LoadTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(1), txs[0].ID)

	sales, err := s.LoadSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)

	// saving replaces the whole set
	require.NoError(t, s.SaveSales(ctx, nil))
	sales, err = s.LoadSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	adapter, err := Open("csv", dir, "")
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, adapter)
	require.NoError(t, adapter.Close())

	_, err = Open("sqlite", dir, "")
	assert.Error(t, err)
}
