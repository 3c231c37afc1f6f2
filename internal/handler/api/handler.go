package api

import (
	"context"
	"time"

	"AgentTrader/internal/domain/models"
	"AgentTrader/internal/usecase"
	xhttp "AgentTrader/pkg/http"
	xlogger "AgentTrader/pkg/logger"
	"AgentTrader/pkg/util"

	"github.com/labstack/echo/v4"
)

type MacroComputer interface {
	Compute(ctx context.Context) (models.MacroSnapshot, error)
}

type SignalQuerier interface {
	Query(tf models.Timeframe, limit int) []models.Signal
	Len() int
}

type OutcomeGrader interface {
	Outcomes() []models.Outcome
}

type WeightReader interface {
	Load() (models.WeightVector, uint64)
}

type CandleQuerier interface {
	GetCandles(tf models.Timeframe, limit int) (*usecase.GetCandlesResult, error)
}

// Deps bundles the read side the HTTP API is served from.
type Deps struct {
	Symbol   string
	Macro    MacroComputer
	Signals  SignalQuerier
	Outcomes OutcomeGrader
	Weights  WeightReader
	Candles  CandleQuerier
	Log      *xlogger.Logger
}

// Handler serves the JSON query endpoints under /api.
type Handler struct {
	d       Deps
	started time.Time
}

func NewHandler(d Deps) *Handler {
	if d.Log == nil {
		d.Log = xlogger.Nop()
	}
	return &Handler{d: d, started: time.Now()}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/macro", h.Macro)
	g.GET("/signals", h.Signals)
	g.GET("/outcomes", h.Outcomes)
	g.GET("/weights", h.Weights)
	g.GET("/candles", h.Candles)
	g.GET("/health", h.Health)
}

var _ xhttp.Handler = (*Handler)(nil)

// Macro recomputes the snapshot on every call.
func (h *Handler) Macro(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	snap, err := h.d.Macro.Compute(c.Request().Context())
	if err != nil {
		h.d.Log.Error("macro compute failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.MacroUnavailableError(err))
	}
	return xhttp.SuccessResponse(c, snap)
}

type signalsResponse struct {
	Symbol  string          `json:"symbol"`
	Count   int             `json:"count"`
	Signals []models.Signal `json:"signals"`
}

func (h *Handler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	out := h.d.Signals.Query(models.Timeframe(req.TF), req.Limit)
	if req.Since != "" {
		since, ok := util.ParseTime(req.Since)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("since %q is not a time", req.Since))
		}
		kept := out[:0]
		for _, s := range out {
			if s.Time >= since.Unix() {
				kept = append(kept, s)
			}
		}
		out = kept
	}
	if out == nil {
		out = []models.Signal{}
	}
	return xhttp.SuccessResponse(c, signalsResponse{Symbol: h.d.Symbol, Count: len(out), Signals: out})
}

type outcomesResponse struct {
	Count    int              `json:"count"`
	HitRate  float64          `json:"hit_rate"`
	Outcomes []models.Outcome `json:"outcomes"`
}

// Outcomes grades the current window. Pending signals are not listed.
func (h *Handler) Outcomes(c echo.Context) error {
	req := &models.OutcomesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	all := h.d.Outcomes.Outcomes()
	out := make([]models.Outcome, 0, len(all))
	hits := 0
	for _, o := range all {
		if req.TF != "" && o.Signal.Timeframe != models.Timeframe(req.TF) {
			continue
		}
		if o.RealizedReturn > 0 {
			hits++
		}
		out = append(out, o)
	}
	res := outcomesResponse{Count: len(out), Outcomes: out}
	if len(out) > 0 {
		res.HitRate = float64(hits) / float64(len(out))
	}
	return xhttp.SuccessResponse(c, res)
}

type weightsResponse struct {
	Version uint64              `json:"version"`
	Weights models.WeightVector `json:"weights"`
}

func (h *Handler) Weights(c echo.Context) error {
	w, v := h.d.Weights.Load()
	return xhttp.SuccessResponse(c, weightsResponse{Version: v, Weights: w})
}

func (h *Handler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.d.Candles.GetCandles(models.Timeframe(req.TF), req.Limit)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, res)
}

type healthResponse struct {
	Status  string `json:"status"`
	Symbol  string `json:"symbol"`
	Signals int    `json:"signals"`
	Uptime  int64  `json:"uptime_seconds"`
}

func (h *Handler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, healthResponse{
		Status:  "ok",
		Symbol:  h.d.Symbol,
		Signals: h.d.Signals.Len(),
		Uptime:  int64(time.Since(h.started).Seconds()),
	})
}
