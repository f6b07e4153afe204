package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
)

func TestCartAddMergesSameProduct(t *testing.T) {
	c := Cart{}.Add("p1", 2).Add("p1", 3)

	require.Len(t, c, 1)
	assert.Equal(t, Entry{ProductID: "p1", Quantity: 5}, c[0])
}

func TestCartAddKeepsInsertionOrder(t *testing.T) {
	c := Cart{}.Add("p1", 1).Add("p2", 1).Add("p1", 1)

	assert.Equal(t, []string{"p1", "p2"}, c.ProductIDs())
	assert.Equal(t, 2, c.Quantity("p1"))
	assert.Equal(t, 0, c.Quantity("p3"))
}

func TestCartAddDoesNotMutateReceiver(t *testing.T) {
	orig := Cart{{ProductID: "p1", Quantity: 1}}
	_ = orig.Add("p1", 4)

	assert.Equal(t, 1, orig[0].Quantity)
}

func TestCartSet(t *testing.T) {
	c := Cart{{ProductID: "p1", Quantity: 1}, {ProductID: "p2", Quantity: 2}}

	next, err := c.Set("p2", 7)
	require.NoError(t, err)
	assert.Equal(t, Cart{{ProductID: "p1", Quantity: 1}, {ProductID: "p2", Quantity: 7}}, next)
	assert.Equal(t, 2, c[1].Quantity)

	_, err = c.Set("p3", 1)
	assert.True(t, errors.Is(err, ErrItemNotInCart))
}

func TestCartRemoveIsIdempotent(t *testing.T) {
	c := Cart{{ProductID: "p1", Quantity: 1}, {ProductID: "p2", Quantity: 2}}

	assert.Equal(t, Cart{{ProductID: "p2", Quantity: 2}}, c.Remove("p1"))
	assert.Equal(t, c, c.Remove("missing"))
}

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, ValidateQuantity(1))
	assert.Error(t, ValidateQuantity(0))
	assert.Error(t, ValidateQuantity(-3))
}

func TestResolveDanglingReference(t *testing.T) {
	c := Cart{{ProductID: "p1", Quantity: 2}, {ProductID: "gone", Quantity: 1}}
	products := map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Mouse", Price: decimal.RequireFromString("19.99"), Stock: 3},
	}

	lines := Resolve(c, products)

	require.Len(t, lines, 2)
	require.NotNil(t, lines[0].Product)
	assert.Equal(t, "Mouse", lines[0].Product.Name)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Nil(t, lines[1].Product)
	assert.Equal(t, 1, lines[1].Quantity)
}
