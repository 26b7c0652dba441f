package production_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/OGThorhunter/craved-artisan-production/internal/memstore"
	"github.com/OGThorhunter/craved-artisan-production/internal/production"
)

const productSourdough = production.ProductID("prod-sourdough")

func sourdoughRecipe() production.Recipe {
	return production.Recipe{
		ProductID: productSourdough,
		Name:      "Sourdough Bread",
		Ingredients: []production.Ingredient{
			{Name: "Flour", Quantity: 500, Unit: "g"},
			{Name: "Starter", Quantity: 100, Unit: "g"},
			{Name: "Water", Quantity: 350, Unit: "g"},
			{Name: "Salt", Quantity: 10, Unit: "g"},
		},
		YieldAmount: 1,
	}
}

func makeSourdoughOrder(orderNumber, customer string, status production.OrderStatus, quantity int) production.Order {
	now := time.Now().UTC()
	due := now.Add(24 * time.Hour)
	unitPrice := 8.50
	return production.Order{
		ID:            production.OrderID(production.NewID()),
		OrderNumber:   orderNumber,
		CustomerName:  customer,
		Status:        status,
		Priority:      production.PriorityMedium,
		DueAt:         &due,
		PaymentStatus: "PAID",
		Items: []production.OrderItem{
			{
				ID:          production.ItemID(production.NewID()),
				ProductID:   productSourdough,
				ProductName: "Sourdough Bread",
				Quantity:    quantity,
				UnitPrice:   unitPrice,
				Total:       unitPrice * float64(quantity),
				Status:      status,
			},
		},
		Total:     unitPrice * float64(quantity),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type testEnv struct {
	pipeline  *production.Pipeline
	orders    *memstore.Orders
	recipes   *memstore.Recipes
	packaging *memstore.Packaging
	orderA    production.Order
	orderB    production.Order
}

// newTestEnv seeds the example scenario: Order A (2x Sourdough) and
// Order B (3x Sourdough), both in production, sharing one batch.
func newTestEnv(t *testing.T, customChecks ...string) *testEnv {
	t.Helper()

	orders := memstore.NewOrders()
	recipes := memstore.NewRecipes()
	packaging := memstore.NewPackaging()

	recipes.Put(sourdoughRecipe())

	orderA := makeSourdoughOrder("ORD-1001", "Suzy Johnson", production.StatusInProduction, 2)
	orderB := makeSourdoughOrder("ORD-1002", "Mike Chen", production.StatusInProduction, 3)
	orders.Put(orderA)
	orders.Put(orderB)

	return &testEnv{
		pipeline:  production.NewPipeline(orders, recipes, packaging, customChecks),
		orders:    orders,
		recipes:   recipes,
		packaging: packaging,
		orderA:    orderA,
		orderB:    orderB,
	}
}

// completeAllSteps runs every step of the product's batch from start
// to finish and returns the orders advanced by the final completion.
func (e *testEnv) completeAllSteps(t *testing.T, productID production.ProductID) []production.Order {
	t.Helper()
	ctx := context.Background()

	batches, err := e.pipeline.Batches(ctx)
	require.NoError(t, err)
	var steps []production.ProductionStep
	for _, batch := range batches {
		if batch.ProductID == productID {
			steps = batch.Steps
		}
	}
	require.NotEmpty(t, steps)

	var advanced []production.Order
	for _, step := range steps {
		require.NoError(t, e.pipeline.Machine.StartStep(ctx, productID, step.Number))
		advanced, err = e.pipeline.Machine.CompleteStep(ctx, productID, step.Number)
		require.NoError(t, err)
	}
	return advanced
}

// mustGetOrder reloads an order from the store.
func (e *testEnv) mustGetOrder(t *testing.T, id production.OrderID) *production.Order {
	t.Helper()
	order, err := e.orders.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return order
}

// passAllChecks marks every fixed and custom check true for every item
// of the order.
func (e *testEnv) passAllChecks(t *testing.T, order *production.Order) {
	t.Helper()
	for _, item := range order.Items {
		for _, check := range e.pipeline.QA.Checks() {
			require.NoError(t, e.pipeline.QA.SetCheck(item.ID, check, true))
		}
	}
}

// mockOrderStore is a function-field mock of production.OrderStore.
type mockOrderStore struct {
	listFunc func(ctx context.Context) ([]production.Order, error)
	getFunc  func(ctx context.Context, id production.OrderID) (*production.Order, error)
	saveFunc func(ctx context.Context, order *production.Order) error
}

func (m *mockOrderStore) ListActiveOrders(ctx context.Context) ([]production.Order, error) {
	return m.listFunc(ctx)
}

func (m *mockOrderStore) GetOrder(ctx context.Context, id production.OrderID) (*production.Order, error) {
	return m.getFunc(ctx, id)
}

func (m *mockOrderStore) SaveOrder(ctx context.Context, order *production.Order) error {
	return m.saveFunc(ctx, order)
}
