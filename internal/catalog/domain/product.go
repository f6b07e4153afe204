package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

var (
	ErrProductNotFound   = apperr.New(apperr.KindNotFound, "product not found")
	ErrInsufficientStock = apperr.New(apperr.KindInvalid, "not enough product in stock")
	ErrInvalidQuantity   = apperr.New(apperr.KindInvalid, "quantity must be an integer >= 1")
)

// Upper bounds match the narrowest storage columns (NUMERIC(12,2), INTEGER).
const (
	MaxStock = 1<<31 - 1
)

var MaxPrice = decimal.RequireFromString("9999999999.99")

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Fields is the writable part of a product, as submitted by an administrator.
type Fields struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl"`
}

// Normalize trims text fields and rounds the price to cents.
func (f Fields) Normalize() Fields {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.Category = strings.TrimSpace(f.Category)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	f.Price = f.Price.Round(2)
	return f
}

func (f Fields) Validate() error {
	switch {
	case f.Name == "":
		return apperr.Invalid("name is required")
	case f.Description == "":
		return apperr.Invalid("description is required")
	case f.Category == "":
		return apperr.Invalid("category is required")
	case f.Price.IsNegative():
		return apperr.Invalid("price must be >= 0")
	case f.Price.GreaterThan(MaxPrice):
		return apperr.Invalid("price must be <= %s", MaxPrice.StringFixed(2))
	case f.Stock < 0:
		return apperr.Invalid("stock must be >= 0")
	case f.Stock > MaxStock:
		return apperr.Invalid("stock must be <= %d", MaxStock)
	}
	return nil
}

func NewProduct(id string, f Fields, now time.Time) (Product, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return Product{}, err
	}
	return Product{
		ID:          id,
		Name:        f.Name,
		Description: f.Description,
		Price:       f.Price,
		Category:    f.Category,
		Stock:       f.Stock,
		ImageURL:    f.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Apply overwrites the writable fields, keeping id and createdAt.
func (p *Product) Apply(f Fields, now time.Time) error {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return err
	}
	p.Name = f.Name
	p.Description = f.Description
	p.Price = f.Price
	p.Category = f.Category
	p.Stock = f.Stock
	p.ImageURL = f.ImageURL
	p.UpdatedAt = now
	return nil
}

// CheckStock fails with ErrInsufficientStock when qty units are not available.
func (p Product) CheckStock(qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if qty > p.Stock {
		return ErrInsufficientStock
	}
	return nil
}

// CheckAdditionalStock reports whether qty more units fit next to already
// reserved ones without exceeding stock.
func (p Product) CheckAdditionalStock(already, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if already < 0 || qty > p.Stock-already {
		return ErrInsufficientStock
	}
	return nil
}

// Filter selects products for the public listing.
type Filter struct {
	Keyword  string
	Category string
	Page     int
	Limit    int
}

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

func (f Filter) Normalize() Filter {
	f.Keyword = strings.TrimSpace(f.Keyword)
	f.Category = strings.TrimSpace(f.Category)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f
}

func (f Filter) Offset() int { return (f.Page - 1) * f.Limit }

type Page struct {
	Products []Product `json:"products"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
	Total    int       `json:"total"`
}

func NewPage(products []Product, f Filter, total int) Page {
	if products == nil {
		products = []Product{}
	}
	pages := (total + f.Limit - 1) / f.Limit
	return Page{Products: products, Page: f.Page, Pages: pages, Total: total}
}
