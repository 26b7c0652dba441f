package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/OGThorhunter/craved-artisan-production/internal/production"
)

// ProductionHandler exposes the production pipeline to a dashboard or
// API layer over JSON.
type ProductionHandler struct {
	pipeline *production.Pipeline
}

func NewProductionHandler(pipeline *production.Pipeline) *ProductionHandler {
	return &ProductionHandler{pipeline: pipeline}
}

// ListBatches returns the current batch set with live step state.
func (h *ProductionHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.pipeline.Batches(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

// TransitionOrder moves an order to a target status.
func (h *ProductionHandler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	orderID := production.OrderID(chi.URLParam(r, "orderID"))
	var req struct {
		Target production.OrderStatus `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Target == "" {
		http.Error(w, "target is required", http.StatusBadRequest)
		return
	}

	order, err := h.pipeline.Machine.Transition(r.Context(), orderID, req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ReworkOrder sends an order back into production with mandatory notes.
func (h *ProductionHandler) ReworkOrder(w http.ResponseWriter, r *http.Request) {
	orderID := production.OrderID(chi.URLParam(r, "orderID"))
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.pipeline.Rework.SendBack(r.Context(), orderID, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// EvaluateQA reports the order's QA gate result.
func (h *ProductionHandler) EvaluateQA(w http.ResponseWriter, r *http.Request) {
	orderID := production.OrderID(chi.URLParam(r, "orderID"))
	result, err := h.pipeline.EvaluateQA(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RecordQACheck marks one quality check on one order item.
func (h *ProductionHandler) RecordQACheck(w http.ResponseWriter, r *http.Request) {
	orderID := production.OrderID(chi.URLParam(r, "orderID"))
	var req struct {
		ItemID production.ItemID `json:"item_id"`
		Check  string            `json:"check"`
		Passed bool              `json:"passed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ItemID == "" || req.Check == "" {
		http.Error(w, "item_id and check are required", http.StatusBadRequest)
		return
	}

	if err := h.pipeline.RecordQACheck(r.Context(), orderID, req.ItemID, req.Check, req.Passed); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordMade sets the physically completed quantity for an item.
func (h *ProductionHandler) RecordMade(w http.ResponseWriter, r *http.Request) {
	orderID := production.OrderID(chi.URLParam(r, "orderID"))
	itemID := production.ItemID(chi.URLParam(r, "itemID"))
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.pipeline.Machine.RecordMade(r.Context(), orderID, itemID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// MarkItemPackaged moves one item into its QA-eligible status.
func (h *ProductionHandler) MarkItemPackaged(w http.ResponseWriter, r *http.Request) {
	orderID := production.OrderID(chi.URLParam(r, "orderID"))
	itemID := production.ItemID(chi.URLParam(r, "itemID"))

	order, err := h.pipeline.Machine.MarkItemPackaged(r.Context(), orderID, itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// StartStep begins one step of a product's batch run.
func (h *ProductionHandler) StartStep(w http.ResponseWriter, r *http.Request) {
	productID, stepNumber, ok := stepParams(w, r)
	if !ok {
		return
	}
	if err := h.pipeline.Machine.StartStep(r.Context(), productID, stepNumber); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteStep finishes one step of a product's batch run and returns
// any orders that advanced to READY as a result.
func (h *ProductionHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	productID, stepNumber, ok := stepParams(w, r)
	if !ok {
		return
	}
	advanced, err := h.pipeline.Machine.CompleteStep(r.Context(), productID, stepNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"advanced_orders": advanced})
}

// AssignPackaging reserves packaging stock for a product's batch.
func (h *ProductionHandler) AssignPackaging(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID  production.ProductID  `json:"product_id"`
		TemplateID production.TemplateID `json:"template_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" || req.TemplateID == "" {
		http.Error(w, "product_id and template_id are required", http.StatusBadRequest)
		return
	}

	assignment, err := h.pipeline.AssignPackaging(r.Context(), req.ProductID, req.TemplateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

func stepParams(w http.ResponseWriter, r *http.Request) (production.ProductID, int, bool) {
	productID := production.ProductID(chi.URLParam(r, "productID"))
	stepNumber, err := strconv.Atoi(chi.URLParam(r, "stepNumber"))
	if err != nil || stepNumber < 1 {
		http.Error(w, "invalid step number", http.StatusBadRequest)
		return "", 0, false
	}
	return productID, stepNumber, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Info().Msgf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, production.ErrOrderNotFound),
		errors.Is(err, production.ErrItemNotFound),
		errors.Is(err, production.ErrTemplateNotFound),
		errors.Is(err, production.ErrStepNotFound),
		errors.Is(err, production.ErrBatchNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, production.ErrInvalidTransition),
		errors.Is(err, production.ErrInvalidReworkSource),
		errors.Is(err, production.ErrMissingReworkNotes),
		errors.Is(err, production.ErrNoLabelTemplate),
		errors.Is(err, production.ErrNoPackageAssignment),
		errors.Is(err, production.ErrUnknownCheck),
		errors.Is(err, production.ErrInvalidStepDefinition),
		errors.Is(err, production.ErrInvalidRecipeYield):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, production.ErrInsufficientStock),
		errors.Is(err, production.ErrConcurrentModification):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, production.ErrUpstreamUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Info().Msgf("Unhandled pipeline error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
