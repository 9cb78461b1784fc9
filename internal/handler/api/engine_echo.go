package api

import (
	"errors"
	"net/http"
	"time"

	models "ForecastPull/internal/domain/models"
	domrepo "ForecastPull/internal/domain/repository"
	"ForecastPull/internal/service/ratelimit"
	"ForecastPull/internal/usecase"
	xhttp "ForecastPull/pkg/http"
	xlogger "ForecastPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// EngineEchoHandler exposes the scoring engine over HTTP.
type EngineEchoHandler struct {
	logger     *xlogger.Logger
	submission *usecase.SubmissionService
	consensus  *usecase.ConsensusService
	reputation *usecase.ReputationService
	calib      *usecase.CalibrationService
	boards     *usecase.LeaderboardService
	archive    domrepo.ScoreArchive
	limiter    *ratelimit.Limiter

	// per-forecaster submission throttle
	submitCapacity float64
	submitRefill   float64
}

func NewEngineEchoHandler(
	logger *xlogger.Logger,
	submission *usecase.SubmissionService,
	consensus *usecase.ConsensusService,
	reputation *usecase.ReputationService,
	calib *usecase.CalibrationService,
	boards *usecase.LeaderboardService,
	archive domrepo.ScoreArchive,
	limiter *ratelimit.Limiter,
) *EngineEchoHandler {
	return &EngineEchoHandler{
		logger:         logger,
		submission:     submission,
		consensus:      consensus,
		reputation:     reputation,
		calib:          calib,
		boards:         boards,
		archive:        archive,
		limiter:        limiter,
		submitCapacity: 10,
		submitRefill:   2,
	}
}

func (h *EngineEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.POST("/forecasters", h.RegisterForecaster)
	g.GET("/forecasters/:forecaster_id", h.GetForecaster)
	g.DELETE("/forecasters/:forecaster_id", h.DeactivateForecaster)
	g.POST("/forecasts", h.SubmitForecast)
	g.GET("/consensus/:event_id", h.Consensus)
	g.GET("/reputation/:forecaster_id", h.Reputation)
	g.GET("/reputation/:forecaster_id/market-comparison", h.MarketComparison)
	g.GET("/calibration/:forecaster_id", h.Calibration)
	g.GET("/forecasters/:forecaster_id/history", h.ScoreHistory)
	g.GET("/leaderboard", h.Leaderboard)
	g.GET("/stats", h.Stats)
}

// Health reports liveness. Store reachability is implied: a process that
// answers here can serve reads, so no dependency fan-out happens per probe.
func (h *EngineEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *EngineEchoHandler) RegisterForecaster(c echo.Context) error {
	req := &models.RegisterForecasterRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	fc, err := h.submission.RegisterForecaster(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("register forecaster", xlogger.Error(err))
		return h.domainError(c, err)
	}
	return xhttp.CreatedResponse(c, fc)
}

func (h *EngineEchoHandler) GetForecaster(c echo.Context) error {
	id := c.Param("forecaster_id")
	fc, err := h.submission.GetForecaster(c.Request().Context(), id)
	if err != nil {
		return h.domainError(c, err)
	}
	return xhttp.SuccessResponse(c, fc)
}

func (h *EngineEchoHandler) DeactivateForecaster(c echo.Context) error {
	id := c.Param("forecaster_id")
	if err := h.submission.DeactivateForecaster(c.Request().Context(), id); err != nil {
		return h.domainError(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *EngineEchoHandler) SubmitForecast(c echo.Context) error {
	req := &models.SubmitForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if h.limiter != nil && !h.limiter.Allow(req.ForecasterID, h.submitCapacity, h.submitRefill) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_RATE_LIMITED", "forecaster_id", "too many submissions", http.StatusTooManyRequests))
	}

	fc, err := h.submission.SubmitForecast(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("submit forecast",
			xlogger.String("forecaster_id", req.ForecasterID),
			xlogger.String("event_id", req.EventID),
			xlogger.Error(err))
		return h.domainError(c, err)
	}
	return xhttp.CreatedResponse(c, fc)
}

func (h *EngineEchoHandler) Consensus(c echo.Context) error {
	eventID := c.Param("event_id")
	res, err := h.consensus.Compute(c.Request().Context(), eventID)
	if err != nil {
		return h.domainError(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *EngineEchoHandler) Reputation(c echo.Context) error {
	id := c.Param("forecaster_id")
	snap, err := h.reputation.Get(c.Request().Context(), id)
	if err != nil {
		return h.domainError(c, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *EngineEchoHandler) MarketComparison(c echo.Context) error {
	id := c.Param("forecaster_id")
	cmp, err := h.reputation.MarketComparison(c.Request().Context(), id)
	if err != nil {
		return h.domainError(c, err)
	}
	return xhttp.SuccessResponse(c, cmp)
}

func (h *EngineEchoHandler) Calibration(c echo.Context) error {
	id := c.Param("forecaster_id")

	// ?since= narrows the report to forecasts submitted after the cutoff.
	if s := c.QueryParam("since"); s != "" {
		since, ok := xhttp.ParseTime(s)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("since must be RFC3339 or unix seconds"))
		}
		aggErr, err := h.calib.WindowedError(c.Request().Context(), id, since)
		if err != nil {
			return h.domainError(c, err)
		}
		return xhttp.SuccessResponse(c, echo.Map{
			"forecaster_id":   id,
			"since":           since,
			"aggregate_error": aggErr,
		})
	}

	rep, err := h.calib.Report(c.Request().Context(), id)
	if err != nil {
		return h.domainError(c, err)
	}
	return xhttp.SuccessResponse(c, rep)
}

// ScoreHistory reads the append-only score archive. Returns an empty list
// when archiving is disabled.
func (h *EngineEchoHandler) ScoreHistory(c echo.Context) error {
	id := c.Param("forecaster_id")
	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), time.Time{})
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)
	if limit < 1 || limit > 1000 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("limit must be within [1, 1000]"))
	}

	scores, err := h.archive.QueryScores(c.Request().Context(), id, from, to, limit)
	if err != nil {
		h.logger.Error("score history query error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if scores == nil {
		scores = []*models.Forecast{}
	}
	return xhttp.SuccessResponse(c, scores)
}

func (h *EngineEchoHandler) Leaderboard(c echo.Context) error {
	req := &models.LeaderboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	window := domrepo.NormalizeWindow(req.Window)

	board, err := h.boards.Get(c.Request().Context(), req.Metric, window, req.Limit)
	if err != nil {
		h.logger.Error("leaderboard usecase error", xlogger.Error(err))
		return h.domainError(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	return xhttp.SuccessResponse(c, board)
}

func (h *EngineEchoHandler) Stats(c echo.Context) error {
	stats, err := h.submission.Stats(c.Request().Context())
	if err != nil {
		return h.domainError(c, err)
	}
	return xhttp.SuccessResponse(c, stats)
}

// domainError maps domain sentinels onto HTTP statuses.
func (h *EngineEchoHandler) domainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrForecasterNotFound),
		errors.Is(err, models.ErrForecastNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()).WithError(err))

	case errors.Is(err, models.ErrNoConsensus):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_NO_CONSENSUS", "event_id", err.Error(), http.StatusNotFound).WithError(err))

	case errors.Is(err, models.ErrEventNotOpen):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_EVENT_NOT_OPEN", "event_id", err.Error(), http.StatusConflict).WithError(err))

	case errors.Is(err, models.ErrForecasterInactive):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_FORECASTER_INACTIVE", "forecaster_id", err.Error(), http.StatusConflict).WithError(err))
	}

	var inv *models.InvariantError
	if errors.As(err, &inv) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	}

	h.logger.Error("unhandled domain error", xlogger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}
