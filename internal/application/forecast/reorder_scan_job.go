package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/domain/identity"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReorderScanJobName identifies the job in logs and schedules
const ReorderScanJobName = "reorder_scan"

// Forecaster computes forecasts for the bound tenant
type Forecaster interface {
	ComputeAll(ctx context.Context, asOf time.Time) ([]forecast.Result, error)
}

// ScanSummary counts what one scan did
type ScanSummary struct {
	Tenants     int
	Items       int
	Suggestions int
	Failed      int
}

// ReorderScanJob forecasts every active tenant and publishes a
// ReorderSuggested event for each item that is not Safe.
type ReorderScanJob struct {
	tenantRepo identity.TenantRepository
	forecaster Forecaster
	publisher  shared.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewReorderScanJob creates a new ReorderScanJob
func NewReorderScanJob(tenantRepo identity.TenantRepository, forecaster Forecaster, publisher shared.EventPublisher, logger *zap.Logger) *ReorderScanJob {
	return &ReorderScanJob{
		tenantRepo: tenantRepo,
		forecaster: forecaster,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// Name returns the job name
func (j *ReorderScanJob) Name() string {
	return ReorderScanJobName
}

// Run performs one scan
func (j *ReorderScanJob) Run(ctx context.Context) error {
	_, err := j.Scan(ctx)
	return err
}

// Scan visits every active tenant in turn. A failing tenant is logged and
// skipped; the returned error joins all per-tenant failures.
func (j *ReorderScanJob) Scan(ctx context.Context) (ScanSummary, error) {
	var summary ScanSummary

	tenants, err := j.tenantRepo.FindActive(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list active tenants: %w", err)
	}

	asOf := j.now().UTC()
	var errs []error
	for i := range tenants {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		t := &tenants[i]
		summary.Tenants++
		err := tenancy.RunAs(ctx, t.ID, func(ctx context.Context) error {
			return j.scanTenant(ctx, t.ID, asOf, &summary)
		})
		if err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("tenant %s: %w", t.Code, err))
			j.logger.Error("Reorder scan failed for tenant",
				zap.String("tenant_id", t.ID.String()),
				zap.String("tenant_code", t.Code),
				zap.Error(err),
			)
		}
	}

	j.logger.Info("Reorder scan finished",
		zap.Int("tenants", summary.Tenants),
		zap.Int("items", summary.Items),
		zap.Int("suggestions", summary.Suggestions),
		zap.Int("failed", summary.Failed),
	)
	return summary, errors.Join(errs...)
}

func (j *ReorderScanJob) scanTenant(ctx context.Context, tenantID uuid.UUID, asOf time.Time, summary *ScanSummary) error {
	results, err := j.forecaster.ComputeAll(ctx, asOf)
	if err != nil {
		return err
	}
	summary.Items += len(results)

	var events []shared.DomainEvent
	for _, r := range results {
		if r.NeedsReorder() {
			events = append(events, forecast.NewReorderSuggestedEvent(tenantID, r))
		}
	}
	if len(events) == 0 {
		return nil
	}
	if err := j.publisher.Publish(ctx, events...); err != nil {
		return fmt.Errorf("failed to publish reorder suggestions: %w", err)
	}
	summary.Suggestions += len(events)
	return nil
}
