package production

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Allocator owns package-to-product assignments and the soft holds
// they place against packaging stock. A product holds at most one
// assignment at a time; stock is only ever touched through the
// inventory's atomic reserve/release operations.
type Allocator struct {
	inventory   PackagingInventory
	mu          sync.Mutex
	assignments map[ProductID]PackageAssignment
}

func NewAllocator(inventory PackagingInventory) *Allocator {
	return &Allocator{
		inventory:   inventory,
		assignments: make(map[ProductID]PackageAssignment),
	}
}

// Assign reserves quantity units of the template's stock for the
// product. The template must exist and carry a label template.
// Re-assigning a different template releases the previous hold first;
// if the new reservation then fails, the previous hold is restored so
// a failed re-assignment never leaks capacity.
func (a *Allocator) Assign(ctx context.Context, productID ProductID, templateID TemplateID, quantity int) (*PackageAssignment, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("reservation quantity must be positive, got %d", quantity)
	}

	template, found, err := a.inventory.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching package template %s: %v", ErrUpstreamUnavailable, templateID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}
	if template.LabelTemplateID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoLabelTemplate, templateID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	previous, hadPrevious := a.assignments[productID]
	if hadPrevious {
		if err := a.inventory.ReleaseStock(ctx, previous.TemplateID, previous.Reserved); err != nil {
			return nil, fmt.Errorf("%w: releasing previous hold on template %s: %v", ErrUpstreamUnavailable, previous.TemplateID, err)
		}
		delete(a.assignments, productID)
	}

	if err := a.inventory.ReserveStock(ctx, templateID, quantity); err != nil {
		if hadPrevious {
			if restoreErr := a.inventory.ReserveStock(ctx, previous.TemplateID, previous.Reserved); restoreErr != nil {
				log.Error().
					Err(restoreErr).
					Str("product_id", string(productID)).
					Str("template_id", string(previous.TemplateID)).
					Msg("failed to restore previous packaging hold")
			} else {
				a.assignments[productID] = previous
			}
		}
		return nil, err
	}

	assignment := PackageAssignment{
		ProductID:  productID,
		TemplateID: templateID,
		Reserved:   quantity,
		AssignedAt: time.Now().UTC(),
	}
	a.assignments[productID] = assignment
	log.Info().
		Str("product_id", string(productID)).
		Str("template_id", string(templateID)).
		Int("reserved", quantity).
		Msg("packaging assigned")
	return &assignment, nil
}

// Unassign removes the product's assignment and releases its hold.
// Unassigning a product with no assignment is a no-op.
func (a *Allocator) Unassign(ctx context.Context, productID ProductID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	assignment, ok := a.assignments[productID]
	if !ok {
		return nil
	}
	if err := a.inventory.ReleaseStock(ctx, assignment.TemplateID, assignment.Reserved); err != nil {
		return fmt.Errorf("%w: releasing hold on template %s: %v", ErrUpstreamUnavailable, assignment.TemplateID, err)
	}
	delete(a.assignments, productID)
	return nil
}

// AssignmentFor returns the product's current assignment, if any.
func (a *Allocator) AssignmentFor(productID ProductID) (PackageAssignment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	assignment, ok := a.assignments[productID]
	return assignment, ok
}
