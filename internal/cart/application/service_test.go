package application_test

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/cart/application"
	"github.com/dmehra2102/storefront/internal/cart/domain"
	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
	catalogmem "github.com/dmehra2102/storefront/internal/catalog/infrastructure/memory"
	user "github.com/dmehra2102/storefront/internal/user/domain"
	usermem "github.com/dmehra2102/storefront/internal/user/infrastructure/memory"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

type fixture struct {
	svc      *application.Service
	users    *usermem.Repository
	products *catalogmem.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	users := usermem.NewRepository()
	products := catalogmem.NewRepository()

	require.NoError(t, users.Create(ctx, user.User{ID: "u1", Name: "Ann", Email: "ann@example.com", Role: user.RoleCustomer}))
	now := time.Now()
	for _, p := range []catalog.Product{
		{ID: "p1", Name: "Keyboard", Price: decimal.RequireFromString("49.90"), Category: "peripherals", Stock: 5, CreatedAt: now},
		{ID: "p2", Name: "Monitor", Price: decimal.RequireFromString("199.00"), Category: "displays", Stock: 1, CreatedAt: now},
	} {
		require.NoError(t, products.Create(ctx, p))
	}
	return fixture{
		svc:      application.NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), users, products),
		users:    users,
		products: products,
	}
}

func quantities(lines []domain.Line) map[string]int {
	out := map[string]int{}
	for _, l := range lines {
		if l.Product != nil {
			out[l.Product.ID] = l.Quantity
		}
	}
	return out
}

func TestAddItemMergesAndChecksCombinedStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lines, err := f.svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 2}, quantities(lines))

	lines, err = f.svc.AddItem(ctx, "u1", "p1", 3)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)

	_, err = f.svc.AddItem(ctx, "u1", "p1", 1)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	c, err := f.svc.Entries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.Cart{{ProductID: "p1", Quantity: 5}}, c)
}

func TestAddItemOverStockLeavesCartUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u1", "p2", 2)
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)

	lines, err := f.svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAddItemHugeQuantityDoesNotWrap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, "u1", "p1", math.MaxInt)
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)

	c, err := f.svc.Entries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.Cart{{ProductID: "p1", Quantity: 1}}, c)
}

func TestAddItemNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u1", "nope", 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = f.svc.AddItem(ctx, "ghost", "p1", 1)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestAddItemRejectsBadQuantity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddItem(context.Background(), "u1", "p1", 0)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	_, err = f.svc.AddItem(context.Background(), "u1", "p1", -4)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestUpdateItemTouchesOnlyThatEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "u1", "p2", 1)
	require.NoError(t, err)

	lines, err := f.svc.UpdateItem(ctx, "u1", "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 4, "p2": 1}, quantities(lines))
}

func TestUpdateItemErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	_, err = f.svc.UpdateItem(ctx, "u1", "p2", 1)
	assert.ErrorIs(t, err, domain.ErrItemNotInCart)

	_, err = f.svc.UpdateItem(ctx, "u1", "p1", 6)
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)

	_, err = f.svc.UpdateItem(ctx, "u1", "p1", 0)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	_, err = f.svc.UpdateItem(ctx, "ghost", "p1", 1)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestRemoveItemMissingIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)

	lines, err := f.svc.RemoveItem(ctx, "u1", "not-in-cart")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 2}, quantities(lines))

	lines, err = f.svc.RemoveItem(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.NotNil(t, lines)
}

func TestGetResolvesDeletedProductToNull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)
	require.NoError(t, f.products.Delete(ctx, "p1"))

	lines, err := f.svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Nil(t, lines[0].Product)

	lines, err = f.svc.UpdateItem(ctx, "u1", "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	require.NoError(t, f.svc.Clear(ctx, "u1"))
	c, err := f.svc.Entries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, c)
}
