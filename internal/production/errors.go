package production

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match with errors.Is; the typed errors
// below carry the attempted and current state so a rejection can be
// explained, not just reported.
var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrItemNotFound           = errors.New("order item not found")
	ErrTemplateNotFound       = errors.New("package template not found")
	ErrBatchNotFound          = errors.New("no live batch for product")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrInvalidReworkSource    = errors.New("invalid rework source status")
	ErrMissingReworkNotes     = errors.New("rework notes are required")
	ErrInsufficientStock      = errors.New("insufficient packaging stock")
	ErrConcurrentModification = errors.New("modified concurrently")
	ErrUpstreamUnavailable    = errors.New("upstream dependency unavailable")
	ErrInvalidRecipeYield     = errors.New("recipe yield must be positive")
	ErrInvalidStepDefinition  = errors.New("invalid step definition")
	ErrNoLabelTemplate        = errors.New("package template has no label template assigned")
	ErrNoPackageAssignment    = errors.New("product has no package assignment")
	ErrUnknownCheck           = errors.New("unknown quality check")
	ErrStepNotFound           = errors.New("production step not found")
)

// InvalidTransitionError reports a rejected order status change.
type InvalidTransitionError struct {
	From   OrderStatus
	To     OrderStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid status transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// InvalidStepTransitionError reports a rejected step status change
// within a batch run.
type InvalidStepTransitionError struct {
	ProductID ProductID
	Step      int
	From      StepStatus
	To        StepStatus
}

func (e *InvalidStepTransitionError) Error() string {
	return fmt.Sprintf("invalid step transition for product %s step %d: %s to %s",
		e.ProductID, e.Step, e.From, e.To)
}

func (e *InvalidStepTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// InvalidReworkSourceError reports a rework attempt from a status the
// rework edge does not cover.
type InvalidReworkSourceError struct {
	From OrderStatus
}

func (e *InvalidReworkSourceError) Error() string {
	return fmt.Sprintf("cannot send order back to production from %s", e.From)
}

func (e *InvalidReworkSourceError) Is(target error) bool {
	return target == ErrInvalidReworkSource
}

// InsufficientStockError reports a failed stock reservation, including
// the shortfall so the caller can say how much is missing.
type InsufficientStockError struct {
	TemplateID TemplateID
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for package template %s: requested %d, available %d (short %d)",
		e.TemplateID, e.Requested, e.Available, e.Shortfall())
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ConcurrentModificationError reports a lost optimistic-concurrency
// race: another actor saved the order first.
type ConcurrentModificationError struct {
	OrderID         OrderID
	ExpectedVersion int64
	ActualVersion   int64
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("order %s was modified concurrently (expected version %d, found %d)",
		e.OrderID, e.ExpectedVersion, e.ActualVersion)
}

func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}
