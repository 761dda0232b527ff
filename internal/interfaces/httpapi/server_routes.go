package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/accuracy", handler.GetAccuracy)
	mux.HandleFunc("GET /v1/games", handler.ListGames)
	mux.HandleFunc("GET /v1/games/{gameID}", handler.GetGame)
	mux.HandleFunc("GET /v1/games/{gameID}/odds", handler.GetGameOdds)
	mux.HandleFunc("GET /v1/teams", handler.ListTeams)
	mux.HandleFunc("GET /v1/teams/match", handler.MatchTeam)
	mux.HandleFunc("GET /v1/teams/{teamID}", handler.GetTeam)
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, internalToken string) {
	mux.Handle("POST /v1/internal/quotes", RequireInternalToken(internalToken, http.HandlerFunc(handler.IngestQuote)))
	mux.Handle("POST /v1/internal/quotes/batch", RequireInternalToken(internalToken, http.HandlerFunc(handler.IngestQuoteBatch)))
	mux.Handle("POST /v1/internal/games/{gameID}/result", RequireInternalToken(internalToken, http.HandlerFunc(handler.RecordGameResult)))
	mux.Handle("POST /v1/internal/normalization/reprocess", RequireInternalToken(internalToken, http.HandlerFunc(handler.ReprocessNormalization)))
	mux.Handle("POST /v1/internal/jobs/sync-teams", RequireInternalToken(internalToken, http.HandlerFunc(handler.SyncTeams)))
}
