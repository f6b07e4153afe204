package domain

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

func validFields() Fields {
	return Fields{
		Name:        "  Desk  ",
		Description: "Oak desk",
		Price:       decimal.RequireFromString("120.456"),
		Category:    "furniture",
		Stock:       4,
	}
}

func TestNewProductNormalizes(t *testing.T) {
	now := time.Now()
	p, err := NewProduct("p1", validFields(), now)
	require.NoError(t, err)

	assert.Equal(t, "Desk", p.Name)
	assert.Equal(t, "120.46", p.Price.StringFixed(2))
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
}

func TestFieldsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Fields)
	}{
		{"no name", func(f *Fields) { f.Name = " " }},
		{"no description", func(f *Fields) { f.Description = "" }},
		{"no category", func(f *Fields) { f.Category = "" }},
		{"negative price", func(f *Fields) { f.Price = decimal.NewFromInt(-1) }},
		{"negative stock", func(f *Fields) { f.Stock = -1 }},
		{"price above column range", func(f *Fields) { f.Price = decimal.RequireFromString("10000000000") }},
		{"stock above column range", func(f *Fields) { f.Stock = MaxStock + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			_, err := NewProduct("p1", f, time.Now())
			assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
		})
	}
}

func TestApplyKeepsIdentity(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	p, err := NewProduct("p1", validFields(), created)
	require.NoError(t, err)

	f := validFields()
	f.Stock = 0
	later := time.Now()
	require.NoError(t, p.Apply(f, later))

	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, later, p.UpdatedAt)
	assert.Equal(t, 0, p.Stock)
}

func TestFilterNormalize(t *testing.T) {
	f := Filter{Page: 0, Limit: 0}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.Limit)
	assert.Equal(t, 0, f.Offset())

	f = Filter{Page: 3, Limit: 500}.Normalize()
	assert.Equal(t, MaxPageSize, f.Limit)
	assert.Equal(t, 200, f.Offset())
}

func TestNewPage(t *testing.T) {
	page := NewPage(nil, Filter{Page: 2, Limit: 5}, 11)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 2, page.Page)
	assert.NotNil(t, page.Products)
}

func TestCheckStock(t *testing.T) {
	p := Product{ID: "p1", Stock: 5}

	assert.NoError(t, p.CheckStock(5))
	assert.ErrorIs(t, p.CheckStock(6), ErrInsufficientStock)
	assert.ErrorIs(t, p.CheckStock(0), ErrInvalidQuantity)
	assert.ErrorIs(t, p.CheckStock(math.MinInt), ErrInvalidQuantity)
}

func TestCheckAdditionalStockDoesNotOverflow(t *testing.T) {
	p := Product{ID: "p1", Stock: 5}

	assert.NoError(t, p.CheckAdditionalStock(2, 3))
	assert.ErrorIs(t, p.CheckAdditionalStock(2, 4), ErrInsufficientStock)
	assert.ErrorIs(t, p.CheckAdditionalStock(1, math.MaxInt), ErrInsufficientStock)
	assert.ErrorIs(t, p.CheckAdditionalStock(7, 1), ErrInsufficientStock)
	assert.ErrorIs(t, p.CheckAdditionalStock(0, -1), ErrInvalidQuantity)
}
