package production

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultSteps is the built-in workflow applied to products without a
// custom override.
func DefaultSteps() []ProductionStep {
	return []ProductionStep{
		{Number: 1, Name: "Mise en place", Description: "Gather and measure all ingredients", DurationMinutes: 15, Status: StepPending},
		{Number: 2, Name: "Mix", Description: "Combine and develop the dough or base", DurationMinutes: 20, Status: StepPending},
		{Number: 3, Name: "Proof", Description: "Rest until fully risen", DurationMinutes: 120, Status: StepPending},
		{Number: 4, Name: "Shape", Description: "Divide and shape individual units", DurationMinutes: 20, Status: StepPending},
		{Number: 5, Name: "Bake", Description: "Bake to finished color and internal temperature", DurationMinutes: 45, Status: StepPending},
		{Number: 6, Name: "Cool and finish", Description: "Cool, then slice or decorate as required", DurationMinutes: 30, Status: StepPending},
	}
}

// StepLibrary holds the default workflow and per-product overrides.
// Overrides are validated against the same schema as the defaults, so
// a malformed step definition can never enter a workflow.
type StepLibrary struct {
	mu        sync.RWMutex
	defaults  []ProductionStep
	overrides map[ProductID][]ProductionStep
}

func NewStepLibrary() *StepLibrary {
	return &StepLibrary{
		defaults:  DefaultSteps(),
		overrides: make(map[ProductID][]ProductionStep),
	}
}

// SetOverride installs a custom workflow for one product, replacing
// any previous override. Statuses on the provided steps are ignored;
// a run always starts from PENDING. A run that already has work in it
// keeps its current workflow until it is reset.
func (l *StepLibrary) SetOverride(productID ProductID, steps []ProductionStep) error {
	if err := validateSteps(steps); err != nil {
		return err
	}
	override := make([]ProductionStep, len(steps))
	copy(override, steps)
	for i := range override {
		override[i].Status = StepPending
		override[i].Notes = ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[productID] = override
	return nil
}

// RemoveOverride reverts a product to the default workflow.
func (l *StepLibrary) RemoveOverride(productID ProductID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.overrides, productID)
}

// StepsFor returns a fresh copy of the product's workflow with every
// step PENDING, ready to seed a new batch run.
func (l *StepLibrary) StepsFor(productID ProductID) []ProductionStep {
	l.mu.RLock()
	defer l.mu.RUnlock()
	source := l.defaults
	if override, ok := l.overrides[productID]; ok {
		source = override
	}
	steps := make([]ProductionStep, len(source))
	copy(steps, source)
	for i := range steps {
		steps[i].Status = StepPending
		steps[i].Notes = ""
	}
	return steps
}

func validateSteps(steps []ProductionStep) error {
	if len(steps) == 0 {
		return fmt.Errorf("%w: workflow must contain at least one step", ErrInvalidStepDefinition)
	}
	for i, step := range steps {
		if step.Number != i+1 {
			return fmt.Errorf("%w: step numbers must be contiguous starting at 1, got %d at position %d",
				ErrInvalidStepDefinition, step.Number, i+1)
		}
		if strings.TrimSpace(step.Name) == "" {
			return fmt.Errorf("%w: step %d has an empty name", ErrInvalidStepDefinition, step.Number)
		}
		if step.DurationMinutes < 0 {
			return fmt.Errorf("%w: step %d has a negative duration", ErrInvalidStepDefinition, step.Number)
		}
	}
	return nil
}
