// Package forecast turns an item's movement history into reorder signals.
//
// Everything here is pure: Calculate reads only its arguments, so the same
// inputs always give the same Result.
package forecast

import (
	"math"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
)

// Status classifies stockout risk
type Status string

const (
	StatusSafe     Status = "Safe"
	StatusLow      Status = "Low"
	StatusCritical Status = "Critical"
)

// rank orders statuses from most to least urgent
func (s Status) rank() int {
	switch s {
	case StatusCritical:
		return 0
	case StatusLow:
		return 1
	default:
		return 2
	}
}

// Params are the tunable constants of the model
type Params struct {
	WindowDays    int // usage is averaged over this many days
	TargetDays    int // days of cover a reorder should buy
	LeadTimeDays  int // days between ordering and receiving
	LowMarginDays int // extra days above lead time that still count as Low
}

// DefaultParams returns the standard model constants
func DefaultParams() Params {
	return Params{
		WindowDays:    30,
		TargetDays:    30,
		LeadTimeDays:  7,
		LowMarginDays: 5,
	}
}

// WindowStart returns the exclusive lower bound of the usage window ending at asOf
func (p Params) WindowStart(asOf time.Time) time.Time {
	return asOf.AddDate(0, 0, -p.WindowDays)
}

// Result is the forecast for one item
type Result struct {
	ItemID            uuid.UUID  `json:"item_id"`
	ItemName          string     `json:"item_name,omitempty"`
	CurrentQuantity   int64      `json:"current_quantity"`
	DailyUsage        float64    `json:"daily_usage"`
	DaysUntilStockout *float64   `json:"days_until_stockout"`
	StockoutDate      *time.Time `json:"stockout_date"`
	ReorderQuantity   int64      `json:"reorder_quantity"`
	Status            Status     `json:"status"`
	AsOf              time.Time  `json:"as_of"`
}

// Calculate forecasts stock for an item holding currentQuantity units.
// Only OUT movements inside (asOf - WindowDays, asOf] count as usage; IN and
// ADJUST movements and anything outside the window are ignored.
func Calculate(currentQuantity int64, movements []inventory.StockMovement, asOf time.Time, params Params) Result {
	result := Result{
		CurrentQuantity: currentQuantity,
		Status:          StatusSafe,
		AsOf:            asOf,
	}
	if params.WindowDays <= 0 {
		return result
	}

	windowStart := params.WindowStart(asOf)
	var consumed int64
	for i := range movements {
		m := &movements[i]
		if !m.IsOutbound() {
			continue
		}
		if !m.CreatedAt.After(windowStart) || m.CreatedAt.After(asOf) {
			continue
		}
		consumed += m.Magnitude()
	}

	result.DailyUsage = float64(consumed) / float64(params.WindowDays)
	if result.DailyUsage <= 0 {
		return result
	}

	days := float64(currentQuantity) / result.DailyUsage
	result.DaysUntilStockout = &days
	// past roughly 292 years the projection no longer fits a time.Duration
	if ns := days * float64(24*time.Hour); ns < float64(math.MaxInt64) {
		stockout := asOf.Add(time.Duration(ns))
		result.StockoutDate = &stockout
	}

	target := result.DailyUsage * float64(params.TargetDays+params.LeadTimeDays)
	if reorder := math.Ceil(target - float64(currentQuantity)); reorder > 0 {
		result.ReorderQuantity = int64(reorder)
	}

	switch {
	case days < float64(params.LeadTimeDays):
		result.Status = StatusCritical
	case days < float64(params.LeadTimeDays+params.LowMarginDays):
		result.Status = StatusLow
	}

	return result
}

// Less orders results by urgency: status first, then fewer days until stockout.
// A nil DaysUntilStockout sorts last within its status.
func Less(a, b Result) bool {
	if a.Status.rank() != b.Status.rank() {
		return a.Status.rank() < b.Status.rank()
	}
	switch {
	case a.DaysUntilStockout == nil:
		return false
	case b.DaysUntilStockout == nil:
		return true
	}
	return *a.DaysUntilStockout < *b.DaysUntilStockout
}
