package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockForecaster struct {
	mock.Mock
}

func (m *mockForecaster) Compute(ctx context.Context, itemID uuid.UUID, asOf time.Time) (*forecast.Result, error) {
	args := m.Called(ctx, itemID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*forecast.Result), args.Error(1)
}

func (m *mockForecaster) ComputeAll(ctx context.Context, asOf time.Time) ([]forecast.Result, error) {
	args := m.Called(ctx, asOf)
	results, _ := args.Get(0).([]forecast.Result)
	return results, args.Error(1)
}

func forecastRouter(h *ForecastHandler) *gin.Engine {
	r := gin.New()
	r.GET("/items/:id/forecast", h.GetItemForecast)
	r.GET("/forecasts", h.ListForecasts)
	return r
}

func TestForecastHandler_GetItemForecast_DefaultsToNow(t *testing.T) {
	f := new(mockForecaster)
	h := NewForecastHandler(f)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }
	id := uuid.New()

	days := 4.0
	f.On("Compute", mock.Anything, id, now).Return(&forecast.Result{
		ItemID:            id,
		CurrentQuantity:   20,
		DailyUsage:        5,
		DaysUntilStockout: &days,
		ReorderQuantity:   130,
		Status:            forecast.StatusCritical,
		AsOf:              now,
	}, nil)

	w := do(forecastRouter(h), http.MethodGet, "/items/"+id.String()+"/forecast", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, float64(4), data["days_until_stockout"])
	assert.Equal(t, float64(130), data["reorder_quantity"])
	assert.Equal(t, string(forecast.StatusCritical), data["status"])
	f.AssertExpectations(t)
}

func TestForecastHandler_AsOfFormats(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		query string
		want  time.Time
	}{
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-03-01T08:30:00Z", time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			f := new(mockForecaster)
			h := NewForecastHandler(f)
			f.On("Compute", mock.Anything, id, mock.MatchedBy(func(asOf time.Time) bool {
				return asOf.Equal(tt.want)
			})).Return(&forecast.Result{ItemID: id}, nil)

			w := do(forecastRouter(h), http.MethodGet, "/items/"+id.String()+"/forecast?as_of="+tt.query, "")

			assert.Equal(t, http.StatusOK, w.Code)
			f.AssertExpectations(t)
		})
	}
}

func TestForecastHandler_BadAsOf(t *testing.T) {
	f := new(mockForecaster)
	h := NewForecastHandler(f)

	w := do(forecastRouter(h), http.MethodGet, "/forecasts?as_of=yesterday", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.AssertNotCalled(t, "ComputeAll", mock.Anything, mock.Anything)
}

func TestForecastHandler_GetItemForecast_NotFound(t *testing.T) {
	f := new(mockForecaster)
	h := NewForecastHandler(f)
	id := uuid.New()
	f.On("Compute", mock.Anything, id, mock.Anything).Return(nil, shared.ErrNotFound)

	w := do(forecastRouter(h), http.MethodGet, "/items/"+id.String()+"/forecast", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestForecastHandler_ListForecasts(t *testing.T) {
	f := new(mockForecaster)
	h := NewForecastHandler(f)
	f.On("ComputeAll", mock.Anything, mock.Anything).Return([]forecast.Result{
		{ItemID: uuid.New(), Status: forecast.StatusCritical},
		{ItemID: uuid.New(), Status: forecast.StatusSafe},
	}, nil)

	w := do(forecastRouter(h), http.MethodGet, "/forecasts", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.([]any)
	require.Len(t, data, 2)
	assert.Equal(t, string(forecast.StatusCritical), data[0].(map[string]any)["status"])
}

func TestForecastHandler_ListForecasts_EmptyIsArray(t *testing.T) {
	f := new(mockForecaster)
	h := NewForecastHandler(f)
	f.On("ComputeAll", mock.Anything, mock.Anything).Return(nil, nil)

	w := do(forecastRouter(h), http.MethodGet, "/forecasts", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}
