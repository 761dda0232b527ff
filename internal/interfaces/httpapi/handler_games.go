package httpapi

import (
	"net/http"

	"github.com/riskibarqy/odds-ledger/internal/usecase"
)

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGames")
	defer span.End()

	from, err := parseQueryTime(r, "from")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	to, err := parseQueryTime(r, "to")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	limit, err := parseQueryInt(r, "limit")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	query := r.URL.Query()
	games, err := h.gameService.List(ctx, usecase.GameListInput{
		Sport:  query.Get("sport"),
		Status: query.Get("status"),
		From:   from,
		To:     to,
		Limit:  limit,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]gameDTO, 0, len(games))
	for _, g := range games {
		items = append(items, gameToDTO(g))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGame")
	defer span.End()

	gameID, err := parsePathID(r, "gameID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.gameService.Get(ctx, gameID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, gameToDTO(item))
}

func (h *Handler) GetGameOdds(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGameOdds")
	defer span.End()

	gameID, err := parsePathID(r, "gameID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	timeline, err := h.gameService.Timeline(ctx, gameID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	out := gameOddsDTO{
		Game:      gameToDTO(timeline.Game),
		Snapshots: make([]snapshotDTO, 0, len(timeline.Entries)),
	}
	for _, e := range timeline.Entries {
		out.Snapshots = append(out.Snapshots, snapshotToDTO(e))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) RecordGameResult(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordGameResult")
	defer span.End()

	gameID, err := parsePathID(r, "gameID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req recordResultRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, err := h.resultService.RecordResult(ctx, usecase.RecordResultInput{
		GameID:        gameID,
		Status:        req.Status,
		ActualOutcome: req.ActualOutcome,
		HomeScore:     req.HomeScore,
		AwayScore:     req.AwayScore,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "record game result failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, gameToDTO(updated))
}
