package ledger

import (
	"fmt"
	"time"

	"inventory-ledger/internal/models"
)

// AuditLog is the append-only record of catalog mutations
type AuditLog struct {
	entries []models.Transaction
	lastID  int64
}

// NewAuditLog wraps previously persisted entries in their stored order
func NewAuditLog(entries []models.Transaction) *AuditLog {
	a := &AuditLog{entries: append([]models.Transaction(nil), entries...)}
	for _, tx := range entries {
		a.lastID = max(a.lastID, tx.ID)
	}
	return a
}

// Len returns the number of entries
func (a *AuditLog) Len() int {
	return len(a.entries)
}

// Next builds the entry that Append would accept next, without recording it
func (a *AuditLog) Next(action, productName string, quantity int, principal string, ts time.Time) models.Transaction {
	return models.Transaction{
		ID:          a.nextID(),
		Action:      action,
		ProductName: productName,
		Quantity:    quantity,
		User:        principal,
		Timestamp:   ts,
	}
}

// Append records an entry built by Next
func (a *AuditLog) Append(tx models.Transaction) error {
	if tx.ID != a.nextID() {
		return fmt.Errorf("%w: got %d, want %d", ErrNonSequentialID, tx.ID, a.nextID())
	}
	a.entries = append(a.entries, tx)
	a.lastID = tx.ID
	return nil
}

// Entries returns a copy of all entries in recorded order
func (a *AuditLog) Entries() []models.Transaction {
	return append([]models.Transaction(nil), a.entries...)
}

// With returns the entries followed by tx, leaving the log untouched
func (a *AuditLog) With(tx models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(a.entries)+1)
	out = append(out, a.entries...)
	return append(out, tx)
}

// Ids continue after the highest loaded id, whatever order the entries were
// stored in.
func (a *AuditLog) nextID() int64 {
	return a.lastID + 1
}
