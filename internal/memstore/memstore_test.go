package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OGThorhunter/craved-artisan-production/internal/memstore"
	"github.com/OGThorhunter/craved-artisan-production/internal/production"
)

func seedOrder(status production.OrderStatus, createdAt time.Time) production.Order {
	return production.Order{
		ID:           production.OrderID(production.NewID()),
		OrderNumber:  "ORD-" + production.NewID()[:8],
		CustomerName: "Test Customer",
		Status:       status,
		Priority:     production.PriorityLow,
		Items: []production.OrderItem{
			{
				ID:          production.ItemID(production.NewID()),
				ProductID:   "prod-rye",
				ProductName: "Rye Loaf",
				Quantity:    1,
				Status:      status,
			},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrders_SaveBumpsVersion(t *testing.T) {
	store := memstore.NewOrders()
	ctx := context.Background()

	order := seedOrder(production.StatusPending, time.Now().UTC())
	store.Put(order)

	loaded, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Version)

	loaded.Status = production.StatusConfirmed
	require.NoError(t, store.SaveOrder(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version)

	reloaded, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, production.StatusConfirmed, reloaded.Status)
	assert.Equal(t, int64(2), reloaded.Version)
}

func TestOrders_StaleSaveRejected(t *testing.T) {
	store := memstore.NewOrders()
	ctx := context.Background()

	order := seedOrder(production.StatusPending, time.Now().UTC())
	store.Put(order)

	first, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	second, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)

	first.Status = production.StatusConfirmed
	require.NoError(t, store.SaveOrder(ctx, first))

	// The second copy now carries a stale version.
	second.Status = production.StatusCancelled
	err = store.SaveOrder(ctx, second)
	require.ErrorIs(t, err, production.ErrConcurrentModification)

	var conflict *production.ConcurrentModificationError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, order.ID, conflict.OrderID)

	// The losing write changed nothing.
	reloaded, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, production.StatusConfirmed, reloaded.Status)
}

func TestOrders_SaveUnknownOrder(t *testing.T) {
	store := memstore.NewOrders()
	order := seedOrder(production.StatusPending, time.Now().UTC())

	err := store.SaveOrder(context.Background(), &order)
	assert.ErrorIs(t, err, production.ErrOrderNotFound)

	_, err = store.GetOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, production.ErrOrderNotFound)
}

func TestOrders_GetReturnsCopy(t *testing.T) {
	store := memstore.NewOrders()
	ctx := context.Background()

	order := seedOrder(production.StatusPending, time.Now().UTC())
	store.Put(order)

	loaded, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	loaded.Status = production.StatusCancelled
	loaded.Items[0].Quantity = 99

	reloaded, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, production.StatusPending, reloaded.Status)
	assert.Equal(t, 1, reloaded.Items[0].Quantity)
}

func TestOrders_ListActiveExcludesTerminal(t *testing.T) {
	store := memstore.NewOrders()
	now := time.Now().UTC()

	older := seedOrder(production.StatusInProduction, now.Add(-time.Hour))
	newer := seedOrder(production.StatusConfirmed, now)
	store.Put(older)
	store.Put(newer)
	store.Put(seedOrder(production.StatusDelivered, now))
	store.Put(seedOrder(production.StatusCancelled, now))

	active, err := store.ListActiveOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	// Oldest first.
	assert.Equal(t, older.ID, active[0].ID)
	assert.Equal(t, newer.ID, active[1].ID)
}

func TestPackaging_ReserveAndRelease(t *testing.T) {
	store := memstore.NewPackaging()
	ctx := context.Background()
	store.Put(production.PackageTemplate{ID: "tpl-1", Name: "Box", Stock: 10, LabelTemplateID: "lbl-1"})

	require.NoError(t, store.ReserveStock(ctx, "tpl-1", 6))
	assert.Equal(t, 6, store.Reserved("tpl-1"))

	err := store.ReserveStock(ctx, "tpl-1", 6)
	require.ErrorIs(t, err, production.ErrInsufficientStock)
	var stockErr *production.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 4, stockErr.Available)

	require.NoError(t, store.ReleaseStock(ctx, "tpl-1", 6))
	assert.Equal(t, 0, store.Reserved("tpl-1"))
	require.NoError(t, store.ReserveStock(ctx, "tpl-1", 10))
}

func TestPackaging_UnknownTemplate(t *testing.T) {
	store := memstore.NewPackaging()
	ctx := context.Background()

	_, found, err := store.GetTemplate(ctx, "tpl-missing")
	require.NoError(t, err)
	assert.False(t, found)

	assert.ErrorIs(t, store.ReserveStock(ctx, "tpl-missing", 1), production.ErrTemplateNotFound)
	assert.ErrorIs(t, store.ReleaseStock(ctx, "tpl-missing", 1), production.ErrTemplateNotFound)
}

func TestRecipes_GetRecipe(t *testing.T) {
	store := memstore.NewRecipes()
	ctx := context.Background()

	_, found, err := store.GetRecipe(ctx, "prod-rye")
	require.NoError(t, err)
	assert.False(t, found)

	store.Put(production.Recipe{
		ProductID:   "prod-rye",
		Name:        "Rye Loaf",
		Ingredients: []production.Ingredient{{Name: "Rye Flour", Quantity: 400, Unit: "g"}},
		YieldAmount: 1,
	})

	recipe, found, err := store.GetRecipe(ctx, "prod-rye")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Rye Loaf", recipe.Name)

	// Mutating the returned recipe does not touch the catalog.
	recipe.Ingredients[0].Quantity = 1
	reloaded, _, err := store.GetRecipe(ctx, "prod-rye")
	require.NoError(t, err)
	assert.InDelta(t, 400, reloaded.Ingredients[0].Quantity, 1e-9)
}
