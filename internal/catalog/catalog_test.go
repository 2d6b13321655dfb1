package catalog

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProducts() []Product {
	return []Product{
		{ID: 1, Name: "Cadeira Tiffany", CategoryName: "Cadeiras", SalePrice: decimal.NewNullDecimal(decimal.NewFromInt(100)), RentalPrice: decimal.NewNullDecimal(decimal.NewFromInt(60))},
		{ID: 2, Name: "Mesa Redonda", CategoryName: "Mesas", SalePrice: decimal.NewNullDecimal(decimal.NewFromInt(900))},
		{ID: 3, Name: "CADEIRA plástica", CategoryName: "Cadeiras"},
	}
}

func TestProductLookup(t *testing.T) {
	c := New(sampleProducts())
	p, ok := c.Product(2)
	require.True(t, ok)
	assert.Equal(t, "Mesa Redonda", p.Name)

	_, ok = c.Product(99)
	assert.False(t, ok)
	assert.Equal(t, 3, c.Len())
}

func TestDuplicateIDsKeepFirst(t *testing.T) {
	products := append(sampleProducts(), Product{ID: 1, Name: "Other"})
	c := New(products)
	p, _ := c.Product(1)
	assert.Equal(t, "Cadeira Tiffany", p.Name)
	assert.Equal(t, 3, c.Len())
}

func TestSearchIgnoresCaseAndLimits(t *testing.T) {
	c := New(sampleProducts())

	got := c.Search("cadeira", 0)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	assert.Len(t, c.Search("CADEIRA", 1), 1)
	assert.Empty(t, c.Search("  ", 10))
	assert.Empty(t, c.Search("sofa", 10))
}

func TestNilCatalogIsEmpty(t *testing.T) {
	var c *Catalog
	_, ok := c.Product(1)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
	assert.Nil(t, c.Search("x", 1))
}

func TestProductPriceDecoding(t *testing.T) {
	raw := `[
		{"id":1,"name":"A","categoryName":"C","salePrice":"100.00","rentalPrice":60},
		{"id":2,"name":"B","categoryName":"C","salePrice":null},
		{"id":3,"name":"D","categoryName":"C"}
	]`
	var products []Product
	require.NoError(t, json.Unmarshal([]byte(raw), &products))
	require.Len(t, products, 3)

	assert.True(t, products[0].SalePrice.Valid)
	assert.True(t, products[0].SalePrice.Decimal.Equal(decimal.NewFromInt(100)))
	assert.True(t, products[0].RentalPrice.Decimal.Equal(decimal.NewFromInt(60)))
	assert.False(t, products[1].SalePrice.Valid)
	assert.False(t, products[2].SalePrice.Valid)
	assert.False(t, products[2].RentalPrice.Valid)
}
