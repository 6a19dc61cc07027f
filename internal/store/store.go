package store

import (
	"context"
	"fmt"
	"time"

	"inventory-ledger/internal/ledger"
	"inventory-ledger/internal/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var schema = map[Kind]string{
	KindInventory: `
		CREATE TABLE IF NOT EXISTS inventory (
			seq      INTEGER NOT NULL,
			name     VARCHAR(255) PRIMARY KEY,
			price    NUMERIC(18,4) NOT NULL,
			category VARCHAR(255) NOT NULL,
			stock    INTEGER NOT NULL
		)`,
	KindTransactions: `
		CREATE TABLE IF NOT EXISTS transactions (
			id           BIGINT PRIMARY KEY,
			action       VARCHAR(16) NOT NULL,
			product_name VARCHAR(255) NOT NULL,
			quantity     INTEGER NOT NULL,
			username     VARCHAR(255) NOT NULL,
			ts           VARCHAR(19) NOT NULL
		)`,
	KindSales: `
		CREATE TABLE IF NOT EXISTS sales (
			id           BIGINT PRIMARY KEY,
			product_name VARCHAR(255) NOT NULL,
			quantity     INTEGER NOT NULL,
			ts           VARCHAR(19) NOT NULL
		)`,
}

type inventoryRow struct {
	Seq      int             `db:"seq"`
	Name     string          `db:"name"`
	Price    decimal.Decimal `db:"price"`
	Category string          `db:"category"`
	Stock    int             `db:"stock"`
}

type transactionRow struct {
	ID          int64  `db:"id"`
	Action      string `db:"action"`
	ProductName string `db:"product_name"`
	Quantity    int    `db:"quantity"`
	Username    string `db:"username"`
	Ts          string `db:"ts"`
}

type saleRow struct {
	ID          int64  `db:"id"`
	ProductName string `db:"product_name"`
	Quantity    int    `db:"quantity"`
	Ts          string `db:"ts"`
}

// SQLStore keeps the record sets in a postgres or mysql database
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore connects with driver "postgres" or "mysql"
func NewSQLStore(driver, databaseURL string) (*SQLStore, error) {
	db, err := sqlx.Connect(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// LoadInventory returns products in their stored order
func (s *SQLStore) LoadInventory(ctx context.Context) ([]models.Product, error) {
	if err := s.ensureTable(ctx, KindInventory); err != nil {
		return nil, err
	}

	var rows []inventoryRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT seq, name, price, category, stock FROM inventory ORDER BY seq"); err != nil {
		return nil, persistenceErr(KindInventory, "load", err)
	}

	products := make([]models.Product, 0, len(rows))
	for _, r := range rows {
		p := models.Product{
			Name:     r.Name,
			Price:    r.Price,
			Category: r.Category,
			Stock:    r.Stock,
		}
		if err := ledger.ValidateProduct(p); err != nil {
			return nil, persistenceErr(KindInventory, "load", fmt.Errorf("row seq %d: %w", r.Seq, err))
		}
		products = append(products, p)
	}
	return products, nil
}

// SaveInventory replaces the inventory table
func (s *SQLStore) SaveInventory(ctx context.Context, products []models.Product) error {
	return s.replace(ctx, KindInventory, "inventory", func(tx *sqlx.Tx) error {
		query := tx.Rebind("INSERT INTO inventory (seq, name, price, category, stock) VALUES (?, ?, ?, ?, ?)")
		for i, p := range products {
			if _, err := tx.ExecContext(ctx, query, i, p.Name, p.Price, p.Category, p.Stock); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadTransactions returns audit entries in id order
func (s *SQLStore) LoadTransactions(ctx context.Context) ([]models.Transaction, error) {
	if err := s.ensureTable(ctx, KindTransactions); err != nil {
		return nil, err
	}

	var rows []transactionRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT id, action, product_name, quantity, username, ts FROM transactions ORDER BY id"); err != nil {
		return nil, persistenceErr(KindTransactions, "load", err)
	}

	txs := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		ts, err := models.ParseTimestamp(r.Ts)
		if err != nil {
			return nil, persistenceErr(KindTransactions, "load", fmt.Errorf("transaction %d: %w", r.ID, err))
		}
		txs = append(txs, models.Transaction{
			ID:          r.ID,
			Action:      r.Action,
			ProductName: r.ProductName,
			Quantity:    r.Quantity,
			User:        r.Username,
			Timestamp:   ts,
		})
	}
	return txs, nil
}

// SaveTransactions replaces the transactions table
func (s *SQLStore) SaveTransactions(ctx context.Context, txs []models.Transaction) error {
	return s.replace(ctx, KindTransactions, "transactions", func(tx *sqlx.Tx) error {
		query := tx.Rebind("INSERT INTO transactions (id, action, product_name, quantity, username, ts) VALUES (?, ?, ?, ?, ?, ?)")
		for _, t := range txs {
			if _, err := tx.ExecContext(ctx, query,
				t.ID, t.Action, t.ProductName, t.Quantity, t.User, models.FormatTimestamp(t.Timestamp)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSales returns sales in id order
func (s *SQLStore) LoadSales(ctx context.Context) ([]models.Sale, error) {
	if err := s.ensureTable(ctx, KindSales); err != nil {
		return nil, err
	}

	var rows []saleRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, product_name, quantity, ts FROM sales ORDER BY id"); err != nil {
		return nil, persistenceErr(KindSales, "load", err)
	}

	sales := make([]models.Sale, 0, len(rows))
	for _, r := range rows {
		ts, err := models.ParseTimestamp(r.Ts)
		if err != nil {
			return nil, persistenceErr(KindSales, "load", fmt.Errorf("sale %d: %w", r.ID, err))
		}
		sales = append(sales, models.Sale{
			ID:          r.ID,
			ProductName: r.ProductName,
			Quantity:    r.Quantity,
			Timestamp:   ts,
		})
	}
	return sales, nil
}

// SaveSales replaces the sales table
func (s *SQLStore) SaveSales(ctx context.Context, sales []models.Sale) error {
	return s.replace(ctx, KindSales, "sales", func(tx *sqlx.Tx) error {
		query := tx.Rebind("INSERT INTO sales (id, product_name, quantity, ts) VALUES (?, ?, ?, ?)")
		for _, sale := range sales {
			if _, err := tx.ExecContext(ctx, query,
				sale.ID, sale.ProductName, sale.Quantity, models.FormatTimestamp(sale.Timestamp)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) ensureTable(ctx context.Context, kind Kind) error {
	if _, err := s.db.ExecContext(ctx, schema[kind]); err != nil {
		return persistenceErr(kind, "create", err)
	}
	return nil
}

// replace empties table and refills it inside one transaction
func (s *SQLStore) replace(ctx context.Context, kind Kind, table string, fill func(tx *sqlx.Tx) error) error {
	if err := s.ensureTable(ctx, kind); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistenceErr(kind, "save", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return persistenceErr(kind, "save", fmt.Errorf("failed to clear %s: %w", table, err))
	}
	if err := fill(tx); err != nil {
		return persistenceErr(kind, "save", fmt.Errorf("failed to write %s: %w", table, err))
	}
	if err := tx.Commit(); err != nil {
		return persistenceErr(kind, "save", err)
	}
	return nil
}
