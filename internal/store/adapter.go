package store

import (
	"context"
	"errors"
	"fmt"

	"inventory-ledger/internal/models"
)

// Kind names one of the three persisted record sets
type Kind string

const (
	KindInventory    Kind = "inventory"
	KindTransactions Kind = "transactions"
	KindSales        Kind = "sales"
)

// ErrPersistence matches every *PersistenceError
var ErrPersistence = errors.New("persistence error")

// PersistenceError reports a storage read or write failure for one record set
type PersistenceError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPersistence) true for any PersistenceError
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func persistenceErr(kind Kind, op string, err error) error {
	return &PersistenceError{Kind: kind, Op: op, Err: err}
}

// Adapter loads and saves whole record sets. Loading a missing record set
// creates it empty and returns no records; saving replaces the stored set.
type Adapter interface {
	LoadInventory(ctx context.Context) ([]models.Product, error)
	SaveInventory(ctx context.Context, products []models.Product) error

	LoadTransactions(ctx context.Context) ([]models.Transaction, error)
	SaveTransactions(ctx context.Context, txs []models.Transaction) error

	LoadSales(ctx context.Context) ([]models.Sale, error)
	SaveSales(ctx context.Context, sales []models.Sale) error

	Close() error
}

// Open returns the Adapter for driver: "csv" keeps files under dataDir,
// "postgres" and "mysql" connect to databaseURL.
func Open(driver, dataDir, databaseURL string) (Adapter, error) {
	switch driver {
	case "", "csv":
		return NewCSVStore(dataDir)
	case "postgres", "mysql":
		return NewSQLStore(driver, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
