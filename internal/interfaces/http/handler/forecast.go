package handler

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Forecaster computes reorder forecasts for the bound tenant
type Forecaster interface {
	Compute(ctx context.Context, itemID uuid.UUID, asOf time.Time) (*forecast.Result, error)
	ComputeAll(ctx context.Context, asOf time.Time) ([]forecast.Result, error)
}

// ForecastHandler serves stockout forecasts
type ForecastHandler struct {
	BaseHandler
	forecaster Forecaster
	now        func() time.Time
}

// NewForecastHandler creates a new ForecastHandler
func NewForecastHandler(forecaster Forecaster) *ForecastHandler {
	return &ForecastHandler{forecaster: forecaster, now: time.Now}
}

// forecastQuery is the optional reference time of a forecast
type forecastQuery struct {
	AsOf string `form:"as_of"`
}

// GetItemForecast godoc
// @ID           getItemForecast
// @Summary      Forecast one item
// @Tags         forecasts
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Param        as_of query string false "Reference time, RFC3339 or YYYY-MM-DD; defaults to now"
// @Success      200 {object} APIResponse[forecast.Result]
// @Failure      404 {object} ErrorResponse
// @Router       /items/{id}/forecast [get]
func (h *ForecastHandler) GetItemForecast(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}

	result, err := h.forecaster.Compute(c.Request.Context(), id, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListForecasts godoc
// @ID           listForecasts
// @Summary      Forecast every item
// @Description  Sorted Critical, Low, Safe, then by days until stockout.
// @Tags         forecasts
// @Produce      json
// @Param        as_of query string false "Reference time, RFC3339 or YYYY-MM-DD; defaults to now"
// @Success      200 {object} APIResponse[[]forecast.Result]
// @Router       /forecasts [get]
func (h *ForecastHandler) ListForecasts(c *gin.Context) {
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}

	results, err := h.forecaster.ComputeAll(c.Request.Context(), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if results == nil {
		results = []forecast.Result{}
	}
	h.Success(c, results)
}

func (h *ForecastHandler) asOf(c *gin.Context) (time.Time, bool) {
	var q forecastQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return time.Time{}, false
	}
	if q.AsOf == "" {
		return h.now().UTC(), true
	}
	t, err := parseDateTime(q.AsOf)
	if err != nil {
		h.BadRequest(c, "as_of must be RFC3339 or YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

// parseDateTime accepts RFC3339 or a bare date (midnight UTC)
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
