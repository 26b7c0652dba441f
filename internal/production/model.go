package production

import (
	"time"

	"github.com/gofrs/uuid"
)

// Typed identifiers. Entities are addressed by these instead of raw
// strings so a ProductID can never be handed to something expecting an
// OrderID.
type (
	OrderID    string
	ItemID     string
	ProductID  string
	TemplateID string
)

// NewID returns a fresh identifier suitable for any of the ID types.
func NewID() string {
	return uuid.Must(uuid.NewV4()).String()
}

type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusInProduction   OrderStatus = "IN_PRODUCTION"
	StatusReady          OrderStatus = "READY"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusPickedUp       OrderStatus = "PICKED_UP"
	StatusCancelled      OrderStatus = "CANCELLED"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Terminal reports whether an order in this status has left the
// pipeline for good. Terminal orders never contribute to batches.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusPickedUp || s == StatusCancelled
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityRush   Priority = "RUSH"
)

type Order struct {
	ID            OrderID         `json:"id"`
	OrderNumber   string          `json:"order_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	Status        OrderStatus     `json:"status"`
	Priority      Priority        `json:"priority"`
	DueAt         *time.Time      `json:"due_at,omitempty"`
	PaymentStatus string          `json:"payment_status,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	ReworkNotes   *string         `json:"rework_notes,omitempty"`
	Items         []OrderItem     `json:"items"`
	Total         float64         `json:"total"`
	Timeline      []TimelineEntry `json:"timeline,omitempty"`
	// Version is bumped by the order store on every save and used for
	// optimistic concurrency checks.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductIDs returns the distinct products this order contributes to,
// in item order.
func (o *Order) ProductIDs() []ProductID {
	seen := make(map[ProductID]bool, len(o.Items))
	var ids []ProductID
	for _, item := range o.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	cp := *o
	if o.ReworkNotes != nil {
		notes := *o.ReworkNotes
		cp.ReworkNotes = &notes
	}
	if o.DueAt != nil {
		due := *o.DueAt
		cp.DueAt = &due
	}
	cp.Items = make([]OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	cp.Timeline = make([]TimelineEntry, len(o.Timeline))
	copy(cp.Timeline, o.Timeline)
	return &cp
}

// Item returns a pointer into the order's item slice, or nil.
func (o *Order) Item(id ItemID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i]
		}
	}
	return nil
}

type OrderItem struct {
	ID          ItemID      `json:"id"`
	ProductID   ProductID   `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	UnitPrice   float64     `json:"unit_price"`
	Total       float64     `json:"total"`
	Status      OrderStatus `json:"status"`
	// MadeQty counts units physically completed, 0 <= MadeQty <= Quantity.
	MadeQty int `json:"made_qty"`
}

// TimelineEntry is an append-only audit record on an order.
type TimelineEntry struct {
	Type      string    `json:"type"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Recipe is read-only from the pipeline's perspective; the recipe
// catalog owns it.
type Recipe struct {
	ProductID   ProductID    `json:"product_id"`
	Name        string       `json:"name"`
	Ingredients []Ingredient `json:"ingredients"`
	// YieldAmount is the number of units one execution of the recipe
	// produces.
	YieldAmount float64 `json:"yield_amount"`
}

type StepStatus string

const (
	StepPending    StepStatus = "PENDING"
	StepInProgress StepStatus = "IN_PROGRESS"
	StepComplete   StepStatus = "COMPLETE"
)

// ProductionStep is one stage of a product's workflow. Definitions
// describe the product's workflow; Status tracks the current run.
type ProductionStep struct {
	Number          int        `json:"number"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          StepStatus `json:"status"`
	Notes           string     `json:"notes,omitempty"`
}

// BatchOrder is one order's contribution to a production batch.
type BatchOrder struct {
	OrderNumber  string `json:"order_number"`
	CustomerName string `json:"customer_name"`
	Quantity     int    `json:"quantity"`
}

type IngredientRequirement struct {
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// ProductionBatch aggregates all live order items for one product into
// a single physical production run. Batches are derived, never stored:
// recomputing them from the same order set yields the same result.
type ProductionBatch struct {
	ProductID     ProductID                        `json:"product_id"`
	ProductName   string                           `json:"product_name"`
	TotalQuantity int                              `json:"total_quantity"`
	Orders        []BatchOrder                     `json:"orders"`
	Ingredients   map[string]IngredientRequirement `json:"ingredients"`
	Steps         []ProductionStep                 `json:"steps,omitempty"`
	Completed     bool                             `json:"completed"`
}

type PackageTemplate struct {
	ID   TemplateID `json:"id"`
	Name string     `json:"name"`
	// Stock is the on-hand quantity; soft holds reduce what is
	// available without touching it.
	Stock           int    `json:"stock"`
	LabelTemplateID string `json:"label_template_id,omitempty"`
}

// PackageAssignment binds a product to exactly one packaging template
// and records the soft hold placed against its stock.
type PackageAssignment struct {
	ProductID  ProductID  `json:"product_id"`
	TemplateID TemplateID `json:"template_id"`
	Reserved   int        `json:"reserved"`
	AssignedAt time.Time  `json:"assigned_at"`
}

// QAChecklist holds the per-item check marks. A check absent from the
// map has not been marked and counts as failed.
type QAChecklist struct {
	Checks map[string]bool `json:"checks"`
}

type QAResult struct {
	AllPassed    bool     `json:"all_passed"`
	FailingItems []ItemID `json:"failing_items,omitempty"`
}
