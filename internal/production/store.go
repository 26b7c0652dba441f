package production

import "context"

// OrderStore is the narrow view of order persistence the pipeline
// needs. Orders are created by checkout, outside this core; here they
// are only read and status-stamped.
type OrderStore interface {
	// ListActiveOrders returns every order not in a terminal status.
	ListActiveOrders(ctx context.Context) ([]Order, error)
	GetOrder(ctx context.Context, id OrderID) (*Order, error)
	// SaveOrder persists the order. Implementations must reject a save
	// whose Version no longer matches the stored one with a
	// ConcurrentModificationError.
	SaveOrder(ctx context.Context, order *Order) error
}

// RecipeCatalog supplies per-product recipes. Recipes are read-only
// here; a product without one is not an error.
type RecipeCatalog interface {
	GetRecipe(ctx context.Context, productID ProductID) (*Recipe, bool, error)
}

// PackagingInventory owns packaging stock. ReserveStock must be atomic
// with respect to concurrent calls on the same template: checking
// availability and committing the hold is one operation, so two
// reservations can never together exceed on-hand stock.
type PackagingInventory interface {
	GetTemplate(ctx context.Context, id TemplateID) (*PackageTemplate, bool, error)
	ReserveStock(ctx context.Context, id TemplateID, qty int) error
	ReleaseStock(ctx context.Context, id TemplateID, qty int) error
}
