package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/market"
	"github.com/riskibarqy/odds-ledger/internal/domain/team"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
	"github.com/riskibarqy/odds-ledger/internal/usecase"
)

const maxRequestBodyBytes = 8 << 20

type Handler struct {
	ingestionService     *usecase.IngestionService
	resultService        *usecase.ResultService
	normalizationService *usecase.NormalizationService
	accuracyService      *usecase.AccuracyService
	gameService          *usecase.GameService
	teamService          *usecase.TeamService
	logger               *logging.Logger
	validator            *validator.Validate
}

func NewHandler(
	ingestionService *usecase.IngestionService,
	resultService *usecase.ResultService,
	normalizationService *usecase.NormalizationService,
	accuracyService *usecase.AccuracyService,
	gameService *usecase.GameService,
	teamService *usecase.TeamService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		ingestionService:     ingestionService,
		resultService:        resultService,
		normalizationService: normalizationService,
		accuracyService:      accuracyService,
		gameService:          gameService,
		teamService:          teamService,
		logger:               logger,
		validator:            validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSON reads a strict JSON body. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	decoder := sonic.ConfigDefault.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func parsePathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", usecase.ErrInvalidInput, name)
	}
	return id, nil
}

func parseQueryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, key)
	}
	return v, nil
}

func parseQueryTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	v, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", usecase.ErrInvalidInput, key)
	}
	return v.UTC(), nil
}

type quoteOutcomeRequest struct {
	OutcomeType  string   `json:"outcome_type" validate:"omitempty,max=32"`
	Label        string   `json:"label" validate:"required_without=OutcomeType,max=200"`
	DecimalOdds  *float64 `json:"decimal_odds" validate:"required_without_all=AmericanOdds Price"`
	AmericanOdds *float64 `json:"american_odds"`
	Price        *float64 `json:"price"`
}

type quoteRequest struct {
	Platform       string                `json:"platform" validate:"required,max=64"`
	PlatformType   string                `json:"platform_type" validate:"omitempty,oneof=prediction_market sportsbook"`
	Region         string                `json:"region" validate:"omitempty,max=16"`
	NativeMarketID string                `json:"native_market_id" validate:"required,max=256"`
	MarketName     string                `json:"market_name" validate:"omitempty,max=256"`
	Identifier     string                `json:"identifier" validate:"omitempty,max=256"`
	Sport          string                `json:"sport" validate:"required,max=16"`
	RawHome        string                `json:"raw_home" validate:"required_without=Title,max=200"`
	RawAway        string                `json:"raw_away" validate:"required_without=Title,max=200"`
	Title          string                `json:"title" validate:"omitempty,max=400"`
	StartTime      time.Time             `json:"start_time" validate:"required"`
	MarketType     string                `json:"market_type" validate:"omitempty,oneof=moneyline match_winner"`
	ObservedAt     time.Time             `json:"observed_at" validate:"required"`
	Season         string                `json:"season" validate:"omitempty,max=16"`
	Outcomes       []quoteOutcomeRequest `json:"outcomes" validate:"required,min=1,max=3,dive"`
}

type quoteBatchRequest struct {
	Quotes []quoteRequest `json:"quotes" validate:"required,min=1,dive"`
}

type recordResultRequest struct {
	Status        string `json:"status" validate:"omitempty,oneof=completed cancelled"`
	ActualOutcome string `json:"actual_outcome" validate:"omitempty,max=16"`
	HomeScore     *int   `json:"home_score" validate:"omitempty,min=0"`
	AwayScore     *int   `json:"away_score" validate:"omitempty,min=0"`
}

type reprocessRequest struct {
	Limit int `json:"limit" validate:"omitempty,min=1,max=10000"`
}

func quoteFromRequest(req quoteRequest) usecase.Quote {
	outcomes := make([]usecase.QuoteOutcome, 0, len(req.Outcomes))
	for _, o := range req.Outcomes {
		outcomes = append(outcomes, usecase.QuoteOutcome{
			Type:         o.OutcomeType,
			Label:        o.Label,
			DecimalOdds:  o.DecimalOdds,
			AmericanOdds: o.AmericanOdds,
			Price:        o.Price,
		})
	}

	return usecase.Quote{
		Platform:       req.Platform,
		PlatformType:   req.PlatformType,
		Region:         req.Region,
		NativeMarketID: req.NativeMarketID,
		MarketName:     req.MarketName,
		Identifier:     req.Identifier,
		Sport:          req.Sport,
		RawHome:        req.RawHome,
		RawAway:        req.RawAway,
		Title:          req.Title,
		StartTime:      req.StartTime,
		MarketType:     req.MarketType,
		ObservedAt:     req.ObservedAt,
		Season:         req.Season,
		Outcomes:       outcomes,
	}
}

type gameDTO struct {
	ID             int64   `json:"id"`
	Sport          string  `json:"sport"`
	League         string  `json:"league,omitempty"`
	HomeTeamID     string  `json:"home_team_id"`
	AwayTeamID     string  `json:"away_team_id"`
	HomeTeam       string  `json:"home_team"`
	AwayTeam       string  `json:"away_team"`
	LocalDate      string  `json:"local_date"`
	StartTime      string  `json:"start_time"`
	LocalStartTime string  `json:"local_start_time"`
	Timezone       string  `json:"timezone"`
	Season         string  `json:"season"`
	Status         string  `json:"status"`
	ActualOutcome  *string `json:"actual_outcome"`
	HomeScore      *int    `json:"home_score"`
	AwayScore      *int    `json:"away_score"`
}

type snapshotDTO struct {
	ID               int64    `json:"id"`
	Platform         string   `json:"platform"`
	PlatformType     string   `json:"platform_type"`
	MarketID         int64    `json:"market_id"`
	MarketName       string   `json:"market_name,omitempty"`
	NativeMarketID   string   `json:"native_market_id"`
	OutcomeType      string   `json:"outcome_type"`
	ObservedAt       string   `json:"observed_at"`
	RawOdds          float64  `json:"raw_odds"`
	RawProbability   float64  `json:"raw_probability"`
	DevigProbability *float64 `json:"devig_probability"`
	DevigOdds        *float64 `json:"devig_odds"`
	DevigStatus      string   `json:"devig_status"`
	IsClosingLine    bool     `json:"is_closing_line"`
}

type gameOddsDTO struct {
	Game      gameDTO       `json:"game"`
	Snapshots []snapshotDTO `json:"snapshots"`
}

type teamDTO struct {
	ID           string   `json:"id"`
	Sport        string   `json:"sport"`
	League       string   `json:"league"`
	Name         string   `json:"name"`
	Abbreviation string   `json:"abbreviation"`
	City         string   `json:"city"`
	Nickname     string   `json:"nickname"`
	Timezone     string   `json:"timezone"`
	Keywords     []string `json:"keywords"`
}

type teamMatchDTO struct {
	Team    teamDTO `json:"team"`
	Keyword string  `json:"keyword"`
	Score   int     `json:"score"`
}

type teamMatchResultDTO struct {
	Query   string        `json:"query"`
	Sport   string        `json:"sport"`
	Matchup bool          `json:"matchup"`
	Team    *teamMatchDTO `json:"team,omitempty"`
	Home    *teamMatchDTO `json:"home,omitempty"`
	Away    *teamMatchDTO `json:"away,omitempty"`
}

func gameToDTO(g game.Game) gameDTO {
	out := gameDTO{
		ID:             g.ID,
		Sport:          g.Sport,
		League:         g.League,
		HomeTeamID:     g.HomeTeamID,
		AwayTeamID:     g.AwayTeamID,
		HomeTeam:       g.HomeTeamName,
		AwayTeam:       g.AwayTeamName,
		LocalDate:      g.LocalDate,
		StartTime:      g.StartTime.UTC().Format(time.RFC3339),
		LocalStartTime: g.LocalStartTime.Format(time.RFC3339),
		Timezone:       g.Timezone,
		Season:         g.Season,
		Status:         string(g.Status),
		HomeScore:      g.HomeScore,
		AwayScore:      g.AwayScore,
	}
	if g.ActualOutcome != nil {
		outcome := string(*g.ActualOutcome)
		out.ActualOutcome = &outcome
	}
	return out
}

func snapshotToDTO(e market.TimelineEntry) snapshotDTO {
	return snapshotDTO{
		ID:               e.ID,
		Platform:         e.PlatformName,
		PlatformType:     e.PlatformType,
		MarketID:         e.MarketID,
		MarketName:       e.MarketName,
		NativeMarketID:   e.NativeID,
		OutcomeType:      string(e.OutcomeType),
		ObservedAt:       e.ObservedAt.UTC().Format(time.RFC3339),
		RawOdds:          e.RawOdds,
		RawProbability:   e.RawProbability,
		DevigProbability: e.DevigProbability,
		DevigOdds:        e.DevigOdds,
		DevigStatus:      string(e.DevigStatus),
		IsClosingLine:    e.IsClosingLine,
	}
}

func teamToDTO(t team.Team) teamDTO {
	keywords := t.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return teamDTO{
		ID:           t.ID,
		Sport:        t.Sport,
		League:       t.League,
		Name:         t.Name,
		Abbreviation: t.Abbreviation,
		City:         t.City,
		Nickname:     t.Nickname,
		Timezone:     t.Timezone,
		Keywords:     keywords,
	}
}

func teamMatchToDTO(m *team.Match) *teamMatchDTO {
	if m == nil {
		return nil
	}
	return &teamMatchDTO{
		Team:    teamToDTO(m.Team),
		Keyword: m.Keyword,
		Score:   m.Score,
	}
}
