package httpapi

import (
	"net/http"

	"github.com/riskibarqy/odds-ledger/internal/usecase"
)

func (h *Handler) GetAccuracy(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetAccuracy")
	defer span.End()

	query := r.URL.Query()
	reports, err := h.accuracyService.Score(ctx, usecase.AccuracyQuery{
		Platform:    query.Get("platform"),
		OutcomeType: query.Get("outcome_type"),
		Window:      query.Get("window"),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, reports)
}
