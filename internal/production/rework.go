package production

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ReworkController reverses an order from READY or IN_PRODUCTION back
// into production. Rework restarts the whole run for every batch the
// order contributes to; defects found at packaging or QA cannot be
// pinned to a single step, so the entire workflow is redone.
type ReworkController struct {
	orders  OrderStore
	tracker *runTracker
	locks   *lockKeeper
}

func NewReworkController(orders OrderStore, tracker *runTracker, locks *lockKeeper) *ReworkController {
	return &ReworkController{orders: orders, tracker: tracker, locks: locks}
}

// SendBack returns the order to IN_PRODUCTION, records the mandatory
// rework notes, and resets every step of the order's batches to
// PENDING, clearing their completion flags. The packaging holds are
// left in place: the same physical allocation is reused once rework
// completes.
func (r *ReworkController) SendBack(ctx context.Context, orderID OrderID, notes string) (*Order, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, ErrMissingReworkNotes
	}

	lock := r.locks.lock(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := r.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, wrapStoreErr(err, "fetching order for rework")
	}
	if order.Status != StatusReady && order.Status != StatusInProduction {
		return nil, &InvalidReworkSourceError{From: order.Status}
	}

	now := time.Now().UTC()
	order.Status = StatusInProduction
	order.ReworkNotes = &notes
	for i := range order.Items {
		order.Items[i].Status = StatusInProduction
	}
	order.Timeline = append(order.Timeline, TimelineEntry{Type: "rework", Note: notes, CreatedAt: now})
	order.UpdatedAt = now

	if err := r.orders.SaveOrder(ctx, order); err != nil {
		return nil, wrapStoreErr(err, "saving order for rework")
	}
	for _, productID := range order.ProductIDs() {
		r.tracker.reset(productID)
	}
	log.Info().
		Str("order_id", string(orderID)).
		Str("notes", notes).
		Msg("order sent back to production")
	return order, nil
}
