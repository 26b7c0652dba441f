package production

import (
	"fmt"
	"sync"
)

// Fixed checks applied to every order item's checklist.
const (
	CheckReceiptMatch   = "receipt_match"
	CheckPackaging      = "packaging"
	CheckLabel          = "label"
	CheckProductQuality = "quality"
)

func fixedChecks() []string {
	return []string{CheckReceiptMatch, CheckPackaging, CheckLabel, CheckProductQuality}
}

// QAGate holds per-item checklists and evaluates whether an order may
// leave the pipeline. The checklist is fail-closed: a check nobody has
// marked counts as failed, never as "not applicable".
type QAGate struct {
	mu sync.RWMutex
	// custom checks are vendor-defined labels applied uniformly to
	// every item, after the fixed checks.
	custom  []string
	results map[ItemID]QAChecklist
}

func NewQAGate(customChecks []string) *QAGate {
	custom := make([]string, len(customChecks))
	copy(custom, customChecks)
	return &QAGate{
		custom:  custom,
		results: make(map[ItemID]QAChecklist),
	}
}

// Checks returns the full ordered checklist: fixed checks first, then
// the vendor's custom checks.
func (g *QAGate) Checks() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append(fixedChecks(), g.custom...)
}

// SetCheck marks one check for one item. The check name must be one of
// the fixed or custom checks.
func (g *QAGate) SetCheck(itemID ItemID, check string, passed bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	known := false
	for _, name := range append(fixedChecks(), g.custom...) {
		if name == check {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownCheck, check)
	}

	checklist, ok := g.results[itemID]
	if !ok {
		checklist = QAChecklist{Checks: make(map[string]bool)}
		g.results[itemID] = checklist
	}
	checklist.Checks[check] = passed
	return nil
}

// Checklist returns a copy of the item's current checklist.
func (g *QAGate) Checklist(itemID ItemID) QAChecklist {
	g.mu.RLock()
	defer g.mu.RUnlock()
	copied := QAChecklist{Checks: make(map[string]bool)}
	for name, passed := range g.results[itemID].Checks {
		copied.Checks[name] = passed
	}
	return copied
}

// Evaluate reports whether every item of the order has every fixed and
// custom check explicitly marked passed. It is read-only: the state
// machine calls it as a guard and failing it never changes order
// state on its own.
func (g *QAGate) Evaluate(order *Order) QAResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := QAResult{AllPassed: true}
	checks := append(fixedChecks(), g.custom...)
	for _, item := range order.Items {
		checklist := g.results[item.ID]
		for _, check := range checks {
			if !checklist.Checks[check] {
				result.AllPassed = false
				result.FailingItems = append(result.FailingItems, item.ID)
				break
			}
		}
	}
	return result
}
