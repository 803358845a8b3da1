package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/audit"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// quantitySnapshot is the audit view of a stock movement
type quantitySnapshot struct {
	Quantity     int64  `json:"quantity"`
	MovementID   string `json:"movement_id,omitempty"`
	MovementType string `json:"movement_type,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// StockAuditHandler writes an UPDATE audit entry for the item of every
// committed movement, with the quantity before and after.
type StockAuditHandler struct {
	auditor AuditLogger
	logger  *zap.Logger
}

// NewStockAuditHandler creates a new StockAuditHandler
func NewStockAuditHandler(auditor AuditLogger, logger *zap.Logger) *StockAuditHandler {
	return &StockAuditHandler{
		auditor: auditor,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *StockAuditHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockMoved}
}

// Handle processes a StockMovedEvent
func (h *StockAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	moved, ok := event.(*inventory.StockMovedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockMoved, event.EventType())
	}

	h.auditor.Log(ctx, audit.Entry{
		TenantID:   moved.TenantID(),
		UserID:     moved.UserID,
		Action:     audit.ActionUpdate,
		EntityType: inventory.EntityTypeItem,
		EntityID:   moved.AggregateID(),
		OldValue:   quantitySnapshot{Quantity: moved.PreviousQuantity},
		NewValue: quantitySnapshot{
			Quantity:     moved.NewQuantity,
			MovementID:   moved.MovementID.String(),
			MovementType: moved.MovementType.String(),
			Reason:       moved.Reason,
		},
	})
	return nil
}

// LowStockAlertHandler reports items whose stock fell to or below their threshold.
// Delivery to people is out of scope; alerts are written to the log.
type LowStockAlertHandler struct {
	logger *zap.Logger
}

// NewLowStockAlertHandler creates a new LowStockAlertHandler
func NewLowStockAlertHandler(logger *zap.Logger) *LowStockAlertHandler {
	return &LowStockAlertHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockAlertHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockBelowThreshold}
}

// Handle processes a StockBelowThresholdEvent
func (h *LowStockAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	low, ok := event.(*inventory.StockBelowThresholdEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockBelowThreshold, event.EventType())
	}

	alertType := "low_stock"
	if low.Quantity == 0 {
		alertType = "out_of_stock"
	}

	logger.WithLogger(ctx, h.logger).Warn("stock below threshold",
		zap.String("alert_type", alertType),
		zap.String("item_id", low.AggregateID().String()),
		zap.String("item_name", low.ItemName),
		zap.Int64("current_quantity", low.Quantity),
		zap.Int64("low_stock_threshold", low.Threshold),
	)
	return nil
}

var (
	_ shared.EventHandler = (*StockAuditHandler)(nil)
	_ shared.EventHandler = (*LowStockAlertHandler)(nil)
)
