package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/rahul-epicap/valuation-agent/internal/errors"
	"github.com/rahul-epicap/valuation-agent/internal/services"
	"github.com/rahul-epicap/valuation-agent/internal/store"
	"github.com/rahul-epicap/valuation-agent/internal/valuation"
)

// DCF parameter defaults applied when the caller omits them.
const (
	defaultDiscountRate   = 0.10
	defaultTerminalGrowth = 0.0
	defaultFadePeriod     = 5
)

// EstimateRequest is the wire form of a composite valuation request. Growth
// rates are decimals (0.08 = 8%).
type EstimateRequest struct {
	Ticker             string    `json:"ticker"`
	RevenueGrowth      *float64  `json:"revenue_growth" validate:"required"`
	EPSGrowth          *float64  `json:"eps_growth" validate:"required"`
	EPSGrowthEstimates []float64 `json:"eps_growth_estimates"`
	ForwardEPS         *float64  `json:"forward_eps"`
	CurrentPE          *float64  `json:"current_pe"`
	CurrentEVRevenue   *float64  `json:"current_ev_revenue"`
	CurrentEVGP        *float64  `json:"current_ev_gp"`
	DCFDiscountRate    *float64  `json:"dcf_discount_rate" validate:"omitempty,gte=0.01,lte=0.30"`
	DCFTerminalGrowth  *float64  `json:"dcf_terminal_growth" validate:"omitempty,gte=-0.02,lte=0.10"`
	DCFFadePeriod      *int      `json:"dcf_fade_period" validate:"omitempty,gte=1,lte=15"`
	SnapshotID         *int64    `json:"snapshot_id"`
}

// ValuationHandler serves the composite valuation estimate endpoint.
type ValuationHandler struct {
	service      *services.ValuationService
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewValuationHandler creates a new valuation handler
func NewValuationHandler(service *services.ValuationService, logger *slog.Logger) *ValuationHandler {
	return &ValuationHandler{
		service:      service,
		validator:    validator.New(),
		logger:       logger,
		errorHandler: apierrors.NewErrorHandler(logger, false),
	}
}

// RegisterRoutes registers the valuation routes
func (h *ValuationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/valuation", func(r chi.Router) {
		r.Post("/estimate", h.Estimate)
	})
}

// Estimate computes regression-implied multiples, the DCF projection, and
// peer context for the caller's growth assumptions in a single call.
func (h *ValuationHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EstimateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(verrs[0].Field(), verrs[0].Tag()))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	domainReq := valuation.EstimateRequest{
		Ticker:             req.Ticker,
		RevenueGrowth:      *req.RevenueGrowth,
		EPSGrowth:          *req.EPSGrowth,
		EPSGrowthEstimates: req.EPSGrowthEstimates,
		ForwardEPS:         req.ForwardEPS,
		CurrentPE:          req.CurrentPE,
		CurrentEVRevenue:   req.CurrentEVRevenue,
		CurrentEVGP:        req.CurrentEVGP,
		DiscountRate:       defaultDiscountRate,
		TerminalGrowth:     defaultTerminalGrowth,
		FadePeriod:         defaultFadePeriod,
	}
	if req.DCFDiscountRate != nil {
		domainReq.DiscountRate = *req.DCFDiscountRate
	}
	if req.DCFTerminalGrowth != nil {
		domainReq.TerminalGrowth = *req.DCFTerminalGrowth
	}
	if req.DCFFadePeriod != nil {
		domainReq.FadePeriod = *req.DCFFadePeriod
	}

	resp, err := h.service.Estimate(ctx, req.SnapshotID, domainReq)
	if err != nil {
		h.handleEstimateError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}

func (h *ValuationHandler) handleEstimateError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, store.ErrNotFound):
		h.errorHandler.HandleError(w, r, apierrors.ErrSnapshotNotFound)
	case errors.Is(err, valuation.ErrTickerNotFound):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusNotFound, "TICKER_NOT_FOUND", "Ticker not found in snapshot", err.Error()))
	default:
		h.logger.ErrorContext(ctx, "valuation estimate failed",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ComputationFailedError(err))
	}
}
