// Package memstore provides in-memory implementations of the
// pipeline's external stores, used by the service entrypoint and
// tests. Persistence technology is out of the pipeline's scope; these
// adapters exist so the core has collaborators with honest concurrency
// semantics: versioned order saves and atomic stock reservations.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/OGThorhunter/craved-artisan-production/internal/production"
)

// Orders is an in-memory production.OrderStore. Saves are optimistic:
// a write whose version no longer matches the stored order is rejected
// with a ConcurrentModificationError.
type Orders struct {
	mu     sync.RWMutex
	orders map[production.OrderID]*production.Order
}

func NewOrders() *Orders {
	return &Orders{orders: make(map[production.OrderID]*production.Order)}
}

// Put seeds or replaces an order unconditionally, assigning version 1
// when the order carries none. Order creation belongs to checkout;
// this is the seam it plugs into.
func (s *Orders) Put(order production.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := order.Clone()
	if cp.Version == 0 {
		cp.Version = 1
	}
	s.orders[cp.ID] = cp
}

func (s *Orders) ListActiveOrders(ctx context.Context) ([]production.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []production.Order
	for _, order := range s.orders {
		if order.Status.Terminal() {
			continue
		}
		active = append(active, *order.Clone())
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.Before(active[j].CreatedAt)
		}
		return active[i].OrderNumber < active[j].OrderNumber
	})
	return active, nil
}

func (s *Orders) GetOrder(ctx context.Context, id production.OrderID) (*production.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, production.ErrOrderNotFound
	}
	return order.Clone(), nil
}

func (s *Orders) SaveOrder(ctx context.Context, order *production.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.orders[order.ID]
	if !ok {
		return production.ErrOrderNotFound
	}
	if existing.Version != order.Version {
		return &production.ConcurrentModificationError{
			OrderID:         order.ID,
			ExpectedVersion: order.Version,
			ActualVersion:   existing.Version,
		}
	}
	cp := order.Clone()
	cp.Version++
	s.orders[order.ID] = cp
	order.Version = cp.Version
	return nil
}

// Recipes is an in-memory production.RecipeCatalog.
type Recipes struct {
	mu      sync.RWMutex
	recipes map[production.ProductID]production.Recipe
}

func NewRecipes() *Recipes {
	return &Recipes{recipes: make(map[production.ProductID]production.Recipe)}
}

func (s *Recipes) Put(recipe production.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[recipe.ProductID] = recipe
}

func (s *Recipes) GetRecipe(ctx context.Context, productID production.ProductID) (*production.Recipe, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recipe, ok := s.recipes[productID]
	if !ok {
		return nil, false, nil
	}
	cp := recipe
	cp.Ingredients = make([]production.Ingredient, len(recipe.Ingredients))
	copy(cp.Ingredients, recipe.Ingredients)
	return &cp, true, nil
}

type packageRecord struct {
	template production.PackageTemplate
	reserved int
}

// Packaging is an in-memory production.PackagingInventory. Checking
// availability and committing a hold happen under one lock, so two
// concurrent reservations can never together exceed on-hand stock.
type Packaging struct {
	mu        sync.Mutex
	templates map[production.TemplateID]*packageRecord
}

func NewPackaging() *Packaging {
	return &Packaging{templates: make(map[production.TemplateID]*packageRecord)}
}

func (s *Packaging) Put(template production.PackageTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[template.ID] = &packageRecord{template: template}
}

func (s *Packaging) GetTemplate(ctx context.Context, id production.TemplateID) (*production.PackageTemplate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.templates[id]
	if !ok {
		return nil, false, nil
	}
	cp := record.template
	return &cp, true, nil
}

func (s *Packaging) ReserveStock(ctx context.Context, id production.TemplateID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.templates[id]
	if !ok {
		return production.ErrTemplateNotFound
	}
	available := record.template.Stock - record.reserved
	if qty > available {
		return &production.InsufficientStockError{
			TemplateID: id,
			Requested:  qty,
			Available:  available,
		}
	}
	record.reserved += qty
	return nil
}

func (s *Packaging) ReleaseStock(ctx context.Context, id production.TemplateID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.templates[id]
	if !ok {
		return production.ErrTemplateNotFound
	}
	record.reserved -= qty
	if record.reserved < 0 {
		record.reserved = 0
	}
	return nil
}

// Reserved reports the current soft hold on a template. Intended for
// tests and dashboards; production code goes through the allocator.
func (s *Packaging) Reserved(id production.TemplateID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.templates[id]
	if !ok {
		return 0
	}
	return record.reserved
}
