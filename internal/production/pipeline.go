package production

import (
	"context"
	"fmt"
)

// Pipeline wires the production components over shared per-order locks
// and batch run state. It is the facade the transport layer talks to;
// the individual components stay usable on their own.
type Pipeline struct {
	Aggregator *Aggregator
	Machine    *StateMachine
	Allocator  *Allocator
	QA         *QAGate
	Rework     *ReworkController
	Steps      *StepLibrary

	orders  OrderStore
	tracker *runTracker
}

func NewPipeline(orders OrderStore, recipes RecipeCatalog, inventory PackagingInventory, customQAChecks []string) *Pipeline {
	locks := newLockKeeper()
	steps := NewStepLibrary()
	tracker := newRunTracker(steps)
	qa := NewQAGate(customQAChecks)
	allocator := NewAllocator(inventory)

	return &Pipeline{
		Aggregator: NewAggregator(orders, recipes),
		Machine:    NewStateMachine(orders, qa, allocator, tracker, locks),
		Allocator:  allocator,
		QA:         qa,
		Rework:     NewReworkController(orders, tracker, locks),
		Steps:      steps,
		orders:     orders,
		tracker:    tracker,
	}
}

// Batches returns the current batch set with each batch's live step
// state and completion flag attached.
func (p *Pipeline) Batches(ctx context.Context) ([]ProductionBatch, error) {
	batches, err := p.Aggregator.Batches(ctx)
	if err != nil {
		return nil, err
	}
	for i := range batches {
		steps, completed := p.tracker.snapshot(batches[i].ProductID)
		batches[i].Steps = steps
		batches[i].Completed = completed
	}
	return batches, nil
}

// AssignPackaging reserves packaging for the product's current batch,
// reading the batch's total quantity at assignment time.
func (p *Pipeline) AssignPackaging(ctx context.Context, productID ProductID, templateID TemplateID) (*PackageAssignment, error) {
	batches, err := p.Aggregator.Batches(ctx)
	if err != nil {
		return nil, err
	}
	for _, batch := range batches {
		if batch.ProductID == productID {
			return p.Allocator.Assign(ctx, productID, templateID, batch.TotalQuantity)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, productID)
}

// RecordQACheck marks one quality check on one order item. The item's
// product must hold a package assignment: without packaging the item
// has not entered the QA gate yet.
func (p *Pipeline) RecordQACheck(ctx context.Context, orderID OrderID, itemID ItemID, check string, passed bool) error {
	order, err := p.orders.GetOrder(ctx, orderID)
	if err != nil {
		return wrapStoreErr(err, "fetching order for QA check")
	}
	item := order.Item(itemID)
	if item == nil {
		return fmt.Errorf("%w: %s in order %s", ErrItemNotFound, itemID, orderID)
	}
	if _, ok := p.Allocator.AssignmentFor(item.ProductID); !ok {
		return fmt.Errorf("%w: product %s", ErrNoPackageAssignment, item.ProductID)
	}
	return p.QA.SetCheck(itemID, check, passed)
}

// EvaluateQA runs the QA gate against the order's current checklists.
func (p *Pipeline) EvaluateQA(ctx context.Context, orderID OrderID) (*QAResult, error) {
	order, err := p.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, wrapStoreErr(err, "fetching order for QA evaluation")
	}
	result := p.QA.Evaluate(order)
	return &result, nil
}
