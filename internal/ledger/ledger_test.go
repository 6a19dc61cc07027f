package ledger

import (
	"testing"
	"time"

	"inventory-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(name, price, category string, stock int) models.Product {
	return models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: category,
		Stock:    stock,
	}
}

func names(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func TestCatalogAddAndGet(t *testing.T) {
	c := NewCatalog(nil)

	require.NoError(t, c.Add(product("Widget", "9.99", "Tools", 50)))

	got, ok := c.Get("Widget")
	require.True(t, ok)
	assert.Equal(t, 50, got.Stock)
	assert.Equal(t, "Tools", got.Category)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("9.99")))

	err := c.Add(product("Widget", "1", "Other", 1))
	assert.ErrorIs(t, err, ErrDuplicateProduct)
	assert.Equal(t, 1, c.Len())
}

func TestCatalogRejectsInvalidProducts(t *testing.T) {
	c := NewCatalog(nil)

	assert.ErrorIs(t, c.Add(product("", "1", "x", 1)), ErrInvalidProduct)
	assert.ErrorIs(t, c.Add(product("A", "-0.01", "x", 1)), ErrInvalidProduct)
	assert.ErrorIs(t, c.Add(product("A", "1", "x", -1)), ErrInvalidProduct)
	assert.Equal(t, 0, c.Len())
}

func TestCatalogUpdateKeepsPosition(t *testing.T) {
	c := NewCatalog(nil)
	require.NoError(t, c.Add(product("A", "1", "x", 1)))
	require.NoError(t, c.Add(product("B", "2", "y", 2)))

	require.NoError(t, c.Update(product("A", "3", "z", 30)))

	products := c.Products()
	assert.Equal(t, []string{"A", "B"}, names(products))
	assert.Equal(t, 30, products[0].Stock)
	assert.Equal(t, "z", products[0].Category)

	assert.ErrorIs(t, c.Update(product("C", "1", "x", 1)), ErrProductNotFound)
}

func TestCatalogDelete(t *testing.T) {
	c := NewCatalog(nil)
	require.NoError(t, c.Add(product("A", "1", "x", 1)))
	require.NoError(t, c.Add(product("B", "2", "y", 2)))
	require.NoError(t, c.Add(product("C", "3", "z", 3)))

	require.NoError(t, c.Delete("B"))
	assert.Equal(t, []string{"A", "C"}, names(c.Products()))
	assert.ErrorIs(t, c.Delete("B"), ErrProductNotFound)

	// re-added products go to the end
	require.NoError(t, c.Add(product("B", "2", "y", 2)))
	assert.Equal(t, []string{"A", "C", "B"}, names(c.Products()))
}

func TestCatalogDecrement(t *testing.T) {
	c := NewCatalog([]models.Product{product("Widget", "9.99", "Tools", 50)})

	p, err := c.Decrement("Widget", 10)
	require.NoError(t, err)
	assert.Equal(t, 40, p.Stock)

	_, err = c.Decrement("Widget", 1000)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	got, _ := c.Get("Widget")
	assert.Equal(t, 40, got.Stock)

	_, err = c.Decrement("Widget", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = c.Decrement("Gadget", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogCloneIsIndependent(t *testing.T) {
	c := NewCatalog([]models.Product{product("A", "1", "x", 5)})
	clone := c.Clone()

	_, err := clone.Decrement("A", 5)
	require.NoError(t, err)
	require.NoError(t, clone.Add(product("B", "1", "x", 1)))

	got, _ := c.Get("A")
	assert.Equal(t, 5, got.Stock)
	assert.Equal(t, 1, c.Len())
}

func TestCatalogReplayIsDeterministic(t *testing.T) {
	replay := func() []models.Product {
		c := NewCatalog(nil)
		_ = c.Add(product("A", "1", "x", 1))
		_ = c.Add(product("B", "2", "y", 2))
		_ = c.Update(product("A", "5", "x", 7))
		_ = c.Delete("B")
		_ = c.Add(product("C", "3", "z", 3))
		_ = c.Add(product("A", "9", "dup", 9))
		return c.Products()
	}

	assert.Equal(t, replay(), replay())
	assert.Equal(t, []string{"A", "C"}, names(replay()))
}

func TestAuditLogDenseIDs(t *testing.T) {
	log := NewAuditLog(nil)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)

	for i := 1; i <= 3; i++ {
		before := log.Len()
		tx := log.Next(models.ActionAdd, "A", i, "harsh", now)
		require.NoError(t, log.Append(tx))
		assert.Equal(t, before+1, log.Len())
		assert.Equal(t, int64(before+1), log.Entries()[log.Len()-1].ID)
	}

	stale := models.Transaction{ID: 2, Action: models.ActionDelete}
	assert.ErrorIs(t, log.Append(stale), ErrNonSequentialID)
	assert.Equal(t, 3, log.Len())
}

func TestAuditLogWithDoesNotMutate(t *testing.T) {
	log := NewAuditLog(nil)
	tx := log.Next(models.ActionAdd, "A", 1, "harsh", time.Now())

	all := log.With(tx)
	assert.Len(t, all, 1)
	assert.Equal(t, 0, log.Len())
}

func TestSalesLedger(t *testing.T) {
	l := NewSalesLedger(nil)
	now := time.Now()

	require.NoError(t, l.Append(l.Next("A", 2, now)))
	require.NoError(t, l.Append(l.Next("B", 1, now)))
	require.NoError(t, l.Append(l.Next("A", 3, now)))

	assert.Equal(t, 3, l.Len())
	forA := l.ForProduct("A")
	require.Len(t, forA, 2)
	assert.Equal(t, int64(1), forA[0].ID)
	assert.Equal(t, int64(3), forA[1].ID)

	assert.ErrorIs(t, l.Append(l.Next("A", 0, now)), ErrInvalidQuantity)
	assert.ErrorIs(t, l.Append(models.Sale{ID: 9, ProductName: "A", Quantity: 1}), ErrNonSequentialID)
}

func TestLoadedIDsContinueAfterHighest(t *testing.T) {
	now := time.Now()

	log := NewAuditLog([]models.Transaction{{ID: 1}, {ID: 3}, {ID: 2}})
	tx := log.Next(models.ActionAdd, "D", 1, "harsh", now)
	assert.Equal(t, int64(4), tx.ID)
	require.NoError(t, log.Append(tx))
	assert.Equal(t, int64(5), log.Next(models.ActionDelete, "D", 0, "harsh", now).ID)

	ids := map[int64]int{}
	for _, e := range log.Entries() {
		ids[e.ID]++
	}
	for id, n := range ids {
		assert.Equal(t, 1, n, "id %d", id)
	}

	sales := NewSalesLedger([]models.Sale{{ID: 5, Quantity: 1}, {ID: 2, Quantity: 1}})
	assert.Equal(t, int64(6), sales.Next("A", 1, now).ID)
}

func TestFilterByCategory(t *testing.T) {
	products := []models.Product{
		product("Hammer", "10", "Hand Tools", 5),
		product("Drill", "50", "Power Tools", 2),
		product("Apple", "1", "Food", 100),
	}

	assert.Equal(t, []string{"Hammer", "Drill"}, names(FilterByCategory(products, "tools")))
	assert.Equal(t, []string{"Drill"}, names(FilterByCategory(products, "POWER")))
	assert.Len(t, FilterByCategory(products, ""), 3)
	assert.Empty(t, FilterByCategory(products, "toys"))
}

func TestLowStock(t *testing.T) {
	products := []models.Product{
		product("A", "1", "x", 10),
		product("B", "1", "x", 11),
		product("C", "1", "x", 0),
	}

	assert.Equal(t, []string{"A", "C"}, names(LowStock(products, 10)))
	assert.Equal(t, []string{"C"}, names(LowStock(products, 0)))
}

func TestSortProductsStable(t *testing.T) {
	products := []models.Product{
		product("A", "3", "x", 5),
		product("B", "1", "y", 20),
		product("C", "2", "x", 5),
	}

	byStockDesc, err := SortProducts(products, "stock", "desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, names(byStockDesc))

	byStockAsc, err := SortProducts(products, "Stock", "asc")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, names(byStockAsc))

	byPrice, err := SortProducts(products, "price", "asc")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, names(byPrice))

	byCategory, err := SortProducts(products, "category", "desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, names(byCategory))

	byName, err := SortProducts(products, "Product Name", "desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, names(byName))

	// input untouched
	assert.Equal(t, []string{"A", "B", "C"}, names(products))
}

func TestSortProductsRejectsUnknownInput(t *testing.T) {
	_, err := SortProducts(nil, "colour", "asc")
	assert.ErrorIs(t, err, ErrInvalidSort)

	_, err = SortProducts(nil, "name", "sideways")
	assert.ErrorIs(t, err, ErrInvalidSort)
}
