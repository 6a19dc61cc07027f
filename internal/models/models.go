package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the on-disk format of every ledger timestamp
const TimestampLayout = "2006-01-02 15:04:05"

// Product represents a catalog entry, keyed by Name
type Product struct {
	Name     string          `db:"name" json:"name"`
	Price    decimal.Decimal `db:"price" json:"price"`
	Category string          `db:"category" json:"category"`
	Stock    int             `db:"stock" json:"stock"`
}

// Transaction is one audit log entry for a catalog mutation
type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	Action      string    `db:"action" json:"action"`
	ProductName string    `db:"product_name" json:"product_name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	User        string    `db:"username" json:"user"`
	Timestamp   time.Time `db:"-" json:"timestamp"`
}

// Sale is one completed sale in the sales ledger
type Sale struct {
	ID          int64     `db:"id" json:"id"`
	ProductName string    `db:"product_name" json:"product_name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	Timestamp   time.Time `db:"-" json:"timestamp"`
}

// Audit actions
const (
	ActionAdd    = "Add"
	ActionUpdate = "Update"
	ActionDelete = "Delete"
)

// FormatTimestamp renders t in TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout string in the local zone
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.Local)
}
