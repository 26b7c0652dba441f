package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/OGThorhunter/craved-artisan-production/internal/handler"
	"github.com/OGThorhunter/craved-artisan-production/internal/production"
)

func NewRouter(pipeline *production.Pipeline) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	h := handler.NewProductionHandler(pipeline)

	r.Get("/batches", h.ListBatches)
	r.Post("/batches/{productID}/steps/{stepNumber}/start", h.StartStep)
	r.Post("/batches/{productID}/steps/{stepNumber}/complete", h.CompleteStep)

	r.Post("/orders/{orderID}/transition", h.TransitionOrder)
	r.Post("/orders/{orderID}/rework", h.ReworkOrder)
	r.Get("/orders/{orderID}/qa", h.EvaluateQA)
	r.Post("/orders/{orderID}/qa/checks", h.RecordQACheck)
	r.Post("/orders/{orderID}/items/{itemID}/made", h.RecordMade)
	r.Post("/orders/{orderID}/items/{itemID}/packaged", h.MarkItemPackaged)

	r.Post("/packaging/assignments", h.AssignPackaging)

	return r
}
