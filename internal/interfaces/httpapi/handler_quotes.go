package httpapi

import (
	"net/http"

	"github.com/riskibarqy/odds-ledger/internal/usecase"
)

func (h *Handler) IngestQuote(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestQuote")
	defer span.End()

	var req quoteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.ingestionService.Ingest(ctx, quoteFromRequest(req))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if result.Inserted > 0 {
		status = http.StatusCreated
	}
	writeSuccess(ctx, w, status, result)
}

// IngestQuoteBatch answers 200 even when single quotes were skipped; the
// per-item status carries the cause.
func (h *Handler) IngestQuoteBatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestQuoteBatch")
	defer span.End()

	var req quoteBatchRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	quotes := make([]usecase.Quote, 0, len(req.Quotes))
	for _, q := range req.Quotes {
		quotes = append(quotes, quoteFromRequest(q))
	}

	result, err := h.ingestionService.IngestBatch(ctx, quotes)
	if err != nil {
		h.logger.WarnContext(ctx, "ingest quote batch failed", "quotes", len(quotes), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}
