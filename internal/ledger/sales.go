package ledger

import (
	"fmt"
	"time"

	"inventory-ledger/internal/models"
)

// SalesLedger is the append-only record of completed sales. Entries keep the
// product name even after the product is deleted.
type SalesLedger struct {
	sales  []models.Sale
	lastID int64
}

// NewSalesLedger wraps previously persisted sales in their stored order
func NewSalesLedger(sales []models.Sale) *SalesLedger {
	l := &SalesLedger{sales: append([]models.Sale(nil), sales...)}
	for _, s := range sales {
		l.lastID = max(l.lastID, s.ID)
	}
	return l
}

// Len returns the number of sales
func (l *SalesLedger) Len() int {
	return len(l.sales)
}

// Next builds the sale that Append would accept next
func (l *SalesLedger) Next(productName string, quantity int, ts time.Time) models.Sale {
	return models.Sale{
		ID:          l.nextID(),
		ProductName: productName,
		Quantity:    quantity,
		Timestamp:   ts,
	}
}

// Append records a sale built by Next
func (l *SalesLedger) Append(s models.Sale) error {
	if s.ID != l.nextID() {
		return fmt.Errorf("%w: got %d, want %d", ErrNonSequentialID, s.ID, l.nextID())
	}
	if s.Quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, s.Quantity)
	}
	l.sales = append(l.sales, s)
	l.lastID = s.ID
	return nil
}

// Entries returns a copy of all sales in recorded order
func (l *SalesLedger) Entries() []models.Sale {
	return append([]models.Sale(nil), l.sales...)
}

// With returns the sales followed by s, leaving the ledger untouched
func (l *SalesLedger) With(s models.Sale) []models.Sale {
	out := make([]models.Sale, 0, len(l.sales)+1)
	out = append(out, l.sales...)
	return append(out, s)
}

// ForProduct returns the sales of one product in recorded order
func (l *SalesLedger) ForProduct(name string) []models.Sale {
	var out []models.Sale
	for _, s := range l.sales {
		if s.ProductName == name {
			out = append(out, s)
		}
	}
	return out
}

func (l *SalesLedger) nextID() int64 {
	return l.lastID + 1
}
