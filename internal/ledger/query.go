package ledger

import (
	"fmt"
	"sort"
	"strings"

	"inventory-ledger/internal/models"
)

// Sort fields
const (
	SortByName     = "name"
	SortByPrice    = "price"
	SortByCategory = "category"
	SortByStock    = "stock"
)

// Sort orders
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// FilterByCategory keeps products whose category contains category,
// ignoring case. An empty filter keeps everything.
func FilterByCategory(products []models.Product, category string) []models.Product {
	needle := strings.ToLower(strings.TrimSpace(category))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if needle == "" || strings.Contains(strings.ToLower(p.Category), needle) {
			out = append(out, p)
		}
	}
	return out
}

// LowStock keeps products with stock at or below threshold
func LowStock(products []models.Product, threshold int) []models.Product {
	out := make([]models.Product, 0)
	for _, p := range products {
		if p.Stock <= threshold {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeSortField accepts either a field name or the inventory table
// header ("Product Name", "Price", "Category", "Stock").
func NormalizeSortField(field string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "name", "product name", "product_name":
		return SortByName, nil
	case "price":
		return SortByPrice, nil
	case "category":
		return SortByCategory, nil
	case "stock":
		return SortByStock, nil
	}
	return "", fmt.Errorf("%w: unknown field %q", ErrInvalidSort, field)
}

// SortProducts returns a stably sorted copy; equal keys keep their input order
// in both directions.
func SortProducts(products []models.Product, field, order string) ([]models.Product, error) {
	field, err := NormalizeSortField(field)
	if err != nil {
		return nil, err
	}

	var desc bool
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", OrderAsc:
	case OrderDesc:
		desc = true
	default:
		return nil, fmt.Errorf("%w: unknown order %q", ErrInvalidSort, order)
	}

	out := append([]models.Product(nil), products...)
	cmp := comparator(field)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return cmp(out[j], out[i]) < 0
		}
		return cmp(out[i], out[j]) < 0
	})
	return out, nil
}

func comparator(field string) func(a, b models.Product) int {
	switch field {
	case SortByPrice:
		return func(a, b models.Product) int { return a.Price.Cmp(b.Price) }
	case SortByCategory:
		return func(a, b models.Product) int { return strings.Compare(a.Category, b.Category) }
	case SortByStock:
		return func(a, b models.Product) int { return a.Stock - b.Stock }
	default:
		return func(a, b models.Product) int { return strings.Compare(a.Name, b.Name) }
	}
}
