package production

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// transitions lists every legal forward edge of the order pipeline.
// The rework edge (READY/IN_PRODUCTION back to IN_PRODUCTION) is owned
// by the ReworkController and deliberately absent here.
var transitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:        {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:      {StatusInProduction: true, StatusCancelled: true},
	StatusInProduction:   {StatusReady: true, StatusCancelled: true},
	StatusReady:          {StatusOutForDelivery: true, StatusDelivered: true, StatusPickedUp: true, StatusCancelled: true},
	StatusOutForDelivery: {StatusDelivered: true, StatusPickedUp: true, StatusCancelled: true},
	StatusDelivered:      {},
	StatusPickedUp:       {},
	StatusCancelled:      {},
}

// StateMachine owns every status mutation of orders and batch runs.
// All writes to a single order are serialized through a per-order
// mutex; the store's version check catches anything that slips past.
type StateMachine struct {
	orders    OrderStore
	qa        *QAGate
	allocator *Allocator
	tracker   *runTracker
	locks     *lockKeeper
}

func NewStateMachine(orders OrderStore, qa *QAGate, allocator *Allocator, tracker *runTracker, locks *lockKeeper) *StateMachine {
	return &StateMachine{orders: orders, qa: qa, allocator: allocator, tracker: tracker, locks: locks}
}

// Transition moves an order to the target status, enforcing the legal
// edges and the batch-completion and QA guards. Requesting the status
// the order is already in is a no-op.
func (m *StateMachine) Transition(ctx context.Context, orderID OrderID, target OrderStatus) (*Order, error) {
	lock := m.locks.lock(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := m.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == target {
		return order, nil
	}
	if !transitions[order.Status][target] {
		log.Warn().
			Str("order_id", string(orderID)).
			Str("current_status", order.Status.String()).
			Str("target_status", target.String()).
			Msg("rejected status transition")
		return nil, &InvalidTransitionError{From: order.Status, To: target}
	}

	if order.Status == StatusInProduction && target == StatusReady {
		if pid, unfinished := m.unfinishedProduct(order); unfinished {
			return nil, &InvalidTransitionError{
				From:   order.Status,
				To:     target,
				Reason: fmt.Sprintf("batch for product %s has unfinished steps", pid),
			}
		}
	}
	if order.Status == StatusReady && target != StatusCancelled {
		if result := m.qa.Evaluate(order); !result.AllPassed {
			return nil, &InvalidTransitionError{
				From:   order.Status,
				To:     target,
				Reason: fmt.Sprintf("%d item(s) have not passed all quality checks", len(result.FailingItems)),
			}
		}
	}

	applyStatus(order, target)
	if err := m.orders.SaveOrder(ctx, order); err != nil {
		return nil, wrapStoreErr(err, "saving order")
	}
	if target.Terminal() {
		m.retireRuns(ctx, order)
	}
	log.Info().
		Str("order_id", string(orderID)).
		Str("status", target.String()).
		Msg("order status updated")
	return order, nil
}

// retireRuns drops run state for each of the order's products that no
// live order references anymore. Step and completion state belong to
// one physical run; they must not carry over into the batch the next
// order starts.
func (m *StateMachine) retireRuns(ctx context.Context, order *Order) {
	active, err := m.orders.ListActiveOrders(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("order_id", string(order.ID)).
			Msg("failed to list active orders while retiring batch runs")
		return
	}
	inUse := make(map[ProductID]bool)
	for _, o := range active {
		for _, pid := range o.ProductIDs() {
			inUse[pid] = true
		}
	}
	for _, pid := range order.ProductIDs() {
		if !inUse[pid] {
			m.tracker.drop(pid)
		}
	}
}

// StartStep moves a batch step from PENDING to IN_PROGRESS. Starting a
// step that is already in progress is a no-op.
func (m *StateMachine) StartStep(ctx context.Context, productID ProductID, stepNumber int) error {
	t := m.tracker
	t.mu.Lock()
	defer t.mu.Unlock()

	run := t.runLocked(productID)
	step := stepByNumber(run.steps, stepNumber)
	if step == nil {
		return fmt.Errorf("%w: product %s step %d", ErrStepNotFound, productID, stepNumber)
	}
	switch step.Status {
	case StepInProgress:
		return nil
	case StepPending:
		step.Status = StepInProgress
		log.Info().
			Str("product_id", string(productID)).
			Int("step", stepNumber).
			Msg("production step started")
		return nil
	default:
		return &InvalidStepTransitionError{ProductID: productID, Step: stepNumber, From: step.Status, To: StepInProgress}
	}
}

// CompleteStep moves a batch step from IN_PROGRESS to COMPLETE.
// Completing a step straight from PENDING is rejected; completing an
// already complete step is a no-op. When the final step of the run
// completes, every contributing order currently IN_PRODUCTION advances
// to READY as one all-or-nothing operation; the advanced orders are
// returned.
func (m *StateMachine) CompleteStep(ctx context.Context, productID ProductID, stepNumber int) ([]Order, error) {
	becameComplete, err := m.completeStep(productID, stepNumber)
	if err != nil {
		return nil, err
	}
	if !becameComplete {
		return nil, nil
	}
	log.Info().
		Str("product_id", string(productID)).
		Msg("batch run complete, advancing contributing orders")
	return m.cascadeReady(ctx, productID)
}

func (m *StateMachine) completeStep(productID ProductID, stepNumber int) (bool, error) {
	t := m.tracker
	t.mu.Lock()
	defer t.mu.Unlock()

	run := t.runLocked(productID)
	step := stepByNumber(run.steps, stepNumber)
	if step == nil {
		return false, fmt.Errorf("%w: product %s step %d", ErrStepNotFound, productID, stepNumber)
	}
	switch step.Status {
	case StepComplete:
		return false, nil
	case StepPending:
		return false, &InvalidStepTransitionError{ProductID: productID, Step: stepNumber, From: StepPending, To: StepComplete}
	}
	step.Status = StepComplete

	for i := range run.steps {
		if run.steps[i].Status != StepComplete {
			return false, nil
		}
	}
	if run.completed {
		return false, nil
	}
	run.completed = true
	return true, nil
}

// cascadeReady advances every order that contributes to the product's
// batch and is currently IN_PRODUCTION to READY. All order locks are
// taken in sorted order, the whole set is validated first, and saves
// are rolled back if any of them fails, so the batch advances together
// or not at all.
func (m *StateMachine) cascadeReady(ctx context.Context, productID ProductID) ([]Order, error) {
	active, err := m.orders.ListActiveOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing active orders: %v", ErrUpstreamUnavailable, err)
	}

	var ids []OrderID
	for _, o := range active {
		if o.Status != StatusInProduction {
			continue
		}
		for _, pid := range o.ProductIDs() {
			if pid == productID {
				ids = append(ids, o.ID)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		lock := m.locks.lock(id)
		lock.Lock()
		defer lock.Unlock()
	}

	// A rework may have reset the run between completing the step and
	// getting here; in that case nothing advances.
	if !m.tracker.isCompleted(productID) {
		return nil, nil
	}

	var originals []*Order
	var updated []*Order
	for _, id := range ids {
		order, err := m.getOrder(ctx, id)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				continue
			}
			return nil, err
		}
		if order.Status != StatusInProduction {
			continue
		}
		originals = append(originals, order.Clone())
		applyStatus(order, StatusReady)
		updated = append(updated, order)
	}

	var saved []*Order
	for i, order := range updated {
		if err := m.orders.SaveOrder(ctx, order); err != nil {
			m.rollbackCascade(ctx, originals[:i], saved)
			return nil, wrapStoreErr(err, "saving order during batch completion")
		}
		saved = append(saved, order)
	}

	result := make([]Order, 0, len(saved))
	for _, order := range saved {
		result = append(result, *order)
	}
	return result, nil
}

func (m *StateMachine) rollbackCascade(ctx context.Context, originals []*Order, saved []*Order) {
	for i, original := range originals {
		restore := original.Clone()
		restore.Version = saved[i].Version
		if err := m.orders.SaveOrder(ctx, restore); err != nil {
			log.Error().
				Err(err).
				Str("order_id", string(original.ID)).
				Msg("failed to roll back order during batch completion")
		}
	}
}

// RecordMade sets the number of physically completed units for one
// order item. Values below zero or above the ordered quantity are
// rejected.
func (m *StateMachine) RecordMade(ctx context.Context, orderID OrderID, itemID ItemID, quantity int) (*Order, error) {
	lock := m.locks.lock(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := m.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := order.Item(itemID)
	if item == nil {
		return nil, fmt.Errorf("%w: %s in order %s", ErrItemNotFound, itemID, orderID)
	}
	if quantity < 0 || quantity > item.Quantity {
		return nil, fmt.Errorf("made quantity must be between 0 and %d, got %d", item.Quantity, quantity)
	}
	item.MadeQty = quantity
	order.UpdatedAt = time.Now().UTC()
	if err := m.orders.SaveOrder(ctx, order); err != nil {
		return nil, wrapStoreErr(err, "saving order")
	}
	return order, nil
}

// MarkItemPackaged moves one item into its QA-eligible status. The
// item's product must hold a valid package assignment first: packaging
// completeness is a prerequisite for entering the QA gate.
func (m *StateMachine) MarkItemPackaged(ctx context.Context, orderID OrderID, itemID ItemID) (*Order, error) {
	lock := m.locks.lock(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := m.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusInProduction && order.Status != StatusReady {
		return nil, &InvalidTransitionError{
			From:   order.Status,
			To:     order.Status,
			Reason: "items can only be packaged while the order is in production or ready",
		}
	}
	item := order.Item(itemID)
	if item == nil {
		return nil, fmt.Errorf("%w: %s in order %s", ErrItemNotFound, itemID, orderID)
	}
	if _, ok := m.allocator.AssignmentFor(item.ProductID); !ok {
		return nil, fmt.Errorf("%w: product %s", ErrNoPackageAssignment, item.ProductID)
	}
	item.Status = StatusReady
	order.UpdatedAt = time.Now().UTC()
	if err := m.orders.SaveOrder(ctx, order); err != nil {
		return nil, wrapStoreErr(err, "saving order")
	}
	log.Info().
		Str("order_id", string(orderID)).
		Str("item_id", string(itemID)).
		Msg("order item packaged")
	return order, nil
}

func (m *StateMachine) unfinishedProduct(order *Order) (ProductID, bool) {
	for _, pid := range order.ProductIDs() {
		if !m.tracker.isCompleted(pid) {
			return pid, true
		}
	}
	return "", false
}

func (m *StateMachine) getOrder(ctx context.Context, id OrderID) (*Order, error) {
	order, err := m.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, fmt.Sprintf("fetching order %s", id))
	}
	return order, nil
}

// applyStatus stamps the new status on the order and mirrors it onto
// the items where it makes sense. READY is not mirrored: items become
// READY one at a time as they are packaged.
func applyStatus(order *Order, target OrderStatus) {
	now := time.Now().UTC()
	note := fmt.Sprintf("%s to %s", order.Status, target)
	order.Status = target
	switch target {
	case StatusConfirmed, StatusInProduction, StatusCancelled, StatusOutForDelivery, StatusDelivered, StatusPickedUp:
		for i := range order.Items {
			order.Items[i].Status = target
		}
	}
	order.Timeline = append(order.Timeline, TimelineEntry{Type: "status_change", Note: note, CreatedAt: now})
	order.UpdatedAt = now
}

func stepByNumber(steps []ProductionStep, number int) *ProductionStep {
	for i := range steps {
		if steps[i].Number == number {
			return &steps[i]
		}
	}
	return nil
}

// wrapStoreErr passes through the pipeline's own error classes and
// wraps everything else as a transient upstream failure, which is the
// only class callers should retry.
func wrapStoreErr(err error, op string) error {
	if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrConcurrentModification) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}
