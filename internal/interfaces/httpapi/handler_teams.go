package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTeams")
	defer span.End()

	teams, err := h.teamService.List(ctx, r.URL.Query().Get("sport"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]teamDTO, 0, len(teams))
	for _, t := range teams {
		items = append(items, teamToDTO(t))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTeam")
	defer span.End()

	item, err := h.teamService.Get(ctx, strings.TrimSpace(r.PathValue("teamID")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, teamToDTO(item))
}

func (h *Handler) MatchTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.MatchTeam")
	defer span.End()

	query := r.URL.Query()
	result, err := h.teamService.Match(ctx, query.Get("sport"), query.Get("q"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teamMatchResultDTO{
		Query:   result.Query,
		Sport:   result.Sport,
		Matchup: result.Matchup,
		Team:    teamMatchToDTO(result.Team),
		Home:    teamMatchToDTO(result.Home),
		Away:    teamMatchToDTO(result.Away),
	})
}
