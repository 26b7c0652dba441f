package production

import (
	"context"
	"fmt"
	"sort"
)

// Aggregator groups live order items into per-product production
// batches and scales recipe ingredients to each batch's quantity.
type Aggregator struct {
	orders  OrderStore
	recipes RecipeCatalog
}

func NewAggregator(orders OrderStore, recipes RecipeCatalog) *Aggregator {
	return &Aggregator{orders: orders, recipes: recipes}
}

// Batches fetches the live order set and its recipes, then computes
// the current batch set. All I/O happens here; the computation itself
// is ComputeBatches.
func (a *Aggregator) Batches(ctx context.Context) ([]ProductionBatch, error) {
	orders, err := a.orders.ListActiveOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing active orders: %v", ErrUpstreamUnavailable, err)
	}

	recipes := make(map[ProductID]Recipe)
	for _, o := range orders {
		for _, item := range o.Items {
			if _, ok := recipes[item.ProductID]; ok {
				continue
			}
			recipe, found, err := a.recipes.GetRecipe(ctx, item.ProductID)
			if err != nil {
				return nil, fmt.Errorf("%w: fetching recipe for product %s: %v", ErrUpstreamUnavailable, item.ProductID, err)
			}
			if found {
				recipes[item.ProductID] = *recipe
			}
		}
	}

	return ComputeBatches(orders, recipes)
}

// ComputeBatches derives one ProductionBatch per distinct product
// appearing in a non-terminal order. It is a pure function of its
// inputs: no I/O, no side effects, and the same inputs always produce
// the same batch set, sorted by product ID.
//
// Ingredient scaling accumulates quantity * (item qty / recipe yield)
// per contributing item, real-valued. A product with no recipe on file
// gets an empty ingredient map; a recipe whose yield is zero or
// negative is rejected outright rather than guessed at.
func ComputeBatches(orders []Order, recipes map[ProductID]Recipe) ([]ProductionBatch, error) {
	byProduct := make(map[ProductID]*ProductionBatch)

	for _, o := range orders {
		if o.Status.Terminal() {
			continue
		}
		for _, item := range o.Items {
			batch, ok := byProduct[item.ProductID]
			if !ok {
				batch = &ProductionBatch{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Ingredients: make(map[string]IngredientRequirement),
				}
				byProduct[item.ProductID] = batch
			}
			batch.TotalQuantity += item.Quantity
			batch.Orders = append(batch.Orders, BatchOrder{
				OrderNumber:  o.OrderNumber,
				CustomerName: o.CustomerName,
				Quantity:     item.Quantity,
			})

			recipe, ok := recipes[item.ProductID]
			if !ok {
				continue // ingredient aggregation is best-effort
			}
			if recipe.YieldAmount <= 0 {
				return nil, fmt.Errorf("%w: product %s", ErrInvalidRecipeYield, item.ProductID)
			}
			scale := float64(item.Quantity) / recipe.YieldAmount
			for _, ing := range recipe.Ingredients {
				req := batch.Ingredients[ing.Name]
				req.Quantity += ing.Quantity * scale
				req.Unit = ing.Unit
				batch.Ingredients[ing.Name] = req
			}
		}
	}

	batches := make([]ProductionBatch, 0, len(byProduct))
	for _, batch := range byProduct {
		batches = append(batches, *batch)
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].ProductID < batches[j].ProductID
	})
	return batches, nil
}
