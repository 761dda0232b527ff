package httpapi

import (
	"net/http"
	"time"
)

type teamSyncResult struct {
	Teams    int    `json:"teams"`
	SyncedAt string `json:"synced_at"`
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReprocessNormalization re-runs devig over pending observations.
func (h *Handler) ReprocessNormalization(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReprocessNormalization")
	defer span.End()

	var req reprocessRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.normalizationService.ReprocessPending(ctx, req.Limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "reprocess pending snapshots failed", "limit", req.Limit, "error", err)
		writeError(ctx, w, err)
		return
	}

	traceID, _ := traceMetaFromContext(ctx)
	h.logger.InfoContext(ctx, "reprocess pending snapshots finished",
		"groups", result.Groups,
		"resolved", result.Resolved,
		"still_pending", result.StillPending,
		"failed", result.Failed,
		"job_trace_id", traceID,
	)
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) SyncTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SyncTeams")
	defer span.End()

	count, err := h.teamService.SyncReference(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "sync reference teams failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teamSyncResult{
		Teams:    count,
		SyncedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
