package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"inventory-ledger/internal/ledger"
	"inventory-ledger/internal/models"
	"inventory-ledger/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Column headers of the CSV record sets
var (
	InventoryHeader    = []string{"Product Name", "Price", "Category", "Stock"}
	TransactionsHeader = []string{"Transaction ID", "Action", "Product Name", "Quantity", "User", "Timestamp"}
	SalesHeader        = []string{"Sale ID", "Product Name", "Quantity", "Sale Timestamp"}
)

var errHeaderMismatch = errors.New("unexpected header")

// CSVStore keeps each record set in its own CSV file under one directory
type CSVStore struct {
	dir    string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewCSVStore creates the data directory if needed
func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &CSVStore{
		dir:    dir,
		logger: util.Named("store.csv"),
	}, nil
}

// Path returns the file backing kind
func (s *CSVStore) Path(kind Kind) string {
	return filepath.Join(s.dir, string(kind)+".csv")
}

// Close is a no-op; files are closed after every read and write
func (s *CSVStore) Close() error {
	return nil
}

// LoadInventory reads inventory.csv
func (s *CSVStore) LoadInventory(ctx context.Context) ([]models.Product, error) {
	return loadCSV(ctx, s, KindInventory, InventoryHeader, parseInventory)
}

// SaveInventory rewrites inventory.csv
func (s *CSVStore) SaveInventory(ctx context.Context, products []models.Product) error {
	return s.save(ctx, KindInventory, InventoryHeader, inventoryRows(products))
}

// LoadTransactions reads transactions.csv
func (s *CSVStore) LoadTransactions(ctx context.Context) ([]models.Transaction, error) {
	return loadCSV(ctx, s, KindTransactions, TransactionsHeader, parseTransactions)
}

// SaveTransactions rewrites transactions.csv
func (s *CSVStore) SaveTransactions(ctx context.Context, txs []models.Transaction) error {
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []string{
			strconv.FormatInt(tx.ID, 10),
			tx.Action,
			tx.ProductName,
			strconv.Itoa(tx.Quantity),
			tx.User,
			models.FormatTimestamp(tx.Timestamp),
		})
	}
	return s.save(ctx, KindTransactions, TransactionsHeader, rows)
}

// LoadSales reads sales.csv
func (s *CSVStore) LoadSales(ctx context.Context) ([]models.Sale, error) {
	return loadCSV(ctx, s, KindSales, SalesHeader, parseSales)
}

// SaveSales rewrites sales.csv
func (s *CSVStore) SaveSales(ctx context.Context, sales []models.Sale) error {
	rows := make([][]string, 0, len(sales))
	for _, sale := range sales {
		rows = append(rows, []string{
			strconv.FormatInt(sale.ID, 10),
			sale.ProductName,
			strconv.Itoa(sale.Quantity),
			models.FormatTimestamp(sale.Timestamp),
		})
	}
	return s.save(ctx, KindSales, SalesHeader, rows)
}

// WriteInventoryCSV encodes products in the inventory.csv format
func WriteInventoryCSV(w io.Writer, products []models.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(InventoryHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(inventoryRows(products)); err != nil {
		return err
	}
	return cw.Error()
}

// loadCSV returns the records of kind. A missing file is created with just
// the header. An unreadable file is moved aside and replaced with an empty
// one, so the caller always gets a usable (possibly empty) record set.
func loadCSV[T any](ctx context.Context, s *CSVStore, kind Kind, header []string, parse func([][]string) ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistenceErr(kind, "load", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(kind)
	var records []T
	rows, err := readCSV(path, header)
	if err == nil {
		records, err = parse(rows)
	}
	switch {
	case err == nil:
		return records, nil
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("Initializing empty record set", zap.String("kind", string(kind)), zap.String("path", path))
	default:
		quarantined := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		s.logger.Warn("Record set unreadable, reinitializing empty",
			zap.String("kind", string(kind)),
			zap.String("moved_to", quarantined),
			zap.Error(err))
		if renameErr := os.Rename(path, quarantined); renameErr != nil {
			s.logger.Error("Failed to move unreadable record set aside", zap.Error(renameErr))
		}
	}

	if err := writeCSV(s.dir, path, header, nil); err != nil {
		s.logger.Error("Failed to create empty record set", zap.String("kind", string(kind)), zap.Error(err))
	}
	return nil, nil
}

func (s *CSVStore) save(ctx context.Context, kind Kind, header []string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return persistenceErr(kind, "save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeCSV(s.dir, s.Path(kind), header, rows); err != nil {
		return persistenceErr(kind, "save", err)
	}
	return nil
}

func readCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	for i, col := range header {
		if records[0][i] != col {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", errHeaderMismatch, i, records[0][i], col)
		}
	}
	return records[1:], nil
}

// writeCSV writes to a temp file and renames it over path, so readers never
// see a half-written file.
func writeCSV(dir, path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func inventoryRows(products []models.Product) [][]string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			p.Name,
			p.Price.String(),
			p.Category,
			strconv.Itoa(p.Stock),
		})
	}
	return rows
}

func parseInventory(rows [][]string) ([]models.Product, error) {
	products := make([]models.Product, 0, len(rows))
	for i, row := range rows {
		price, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: price: %w", i+1, err)
		}
		stock, err := parseInt(row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: stock: %w", i+1, err)
		}
		p := models.Product{
			Name:     row[0],
			Price:    price,
			Category: row[2],
			Stock:    stock,
		}
		if err := ledger.ValidateProduct(p); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		products = append(products, p)
	}
	return products, nil
}

func parseTransactions(rows [][]string) ([]models.Transaction, error) {
	txs := make([]models.Transaction, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: id: %w", i+1, err)
		}
		qty, err := parseInt(row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: quantity: %w", i+1, err)
		}
		ts, err := models.ParseTimestamp(row[5])
		if err != nil {
			return nil, fmt.Errorf("row %d: timestamp: %w", i+1, err)
		}
		txs = append(txs, models.Transaction{
			ID:          id,
			Action:      row[1],
			ProductName: row[2],
			Quantity:    qty,
			User:        row[4],
			Timestamp:   ts,
		})
	}
	return txs, nil
}

func parseSales(rows [][]string) ([]models.Sale, error) {
	sales := make([]models.Sale, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: id: %w", i+1, err)
		}
		qty, err := parseInt(row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: quantity: %w", i+1, err)
		}
		ts, err := models.ParseTimestamp(row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: timestamp: %w", i+1, err)
		}
		sales = append(sales, models.Sale{
			ID:          id,
			ProductName: row[1],
			Quantity:    qty,
			Timestamp:   ts,
		})
	}
	return sales, nil
}

// parseInt also accepts whole floats such as "50.0", which spreadsheet tools
// write for integer columns.
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("not a whole number: %s", s)
	}
	return int(d.IntPart()), nil
}
