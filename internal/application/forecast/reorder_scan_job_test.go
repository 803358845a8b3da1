package forecast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/domain/identity"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/erp/stockledger/internal/infrastructure/scheduler"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// tenantForecaster returns canned results per bound tenant and records which
// tenants it was called for.
type tenantForecaster struct {
	mu      sync.Mutex
	results map[uuid.UUID][]forecast.Result
	errs    map[uuid.UUID]error
	seen    []uuid.UUID
}

func (f *tenantForecaster) ComputeAll(ctx context.Context, asOf time.Time) ([]forecast.Result, error) {
	tenantID, err := tenancy.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, tenantID)
	if err := f.errs[tenantID]; err != nil {
		return nil, err
	}
	return f.results[tenantID], nil
}

func mustTenant(t *testing.T, code string) identity.Tenant {
	t.Helper()
	tenant, err := identity.NewTenant(code, code+" Inc")
	require.NoError(t, err)
	return *tenant
}

func TestReorderScanJob_PublishesPerNonSafeItem(t *testing.T) {
	acme, globex := mustTenant(t, "acme"), mustTenant(t, "globex")
	days := 3.0
	forecaster := &tenantForecaster{results: map[uuid.UUID][]forecast.Result{
		acme.ID: {
			{ItemID: uuid.New(), ItemName: "Bolt", Status: forecast.StatusCritical, ReorderQuantity: 40, DaysUntilStockout: &days},
			{ItemID: uuid.New(), ItemName: "Nut", Status: forecast.StatusSafe},
		},
		globex.ID: {
			{ItemID: uuid.New(), ItemName: "Gear", Status: forecast.StatusLow, ReorderQuantity: 12},
		},
	}}
	tenants := new(MockTenantRepository)
	tenants.On("FindActive", mock.Anything).Return([]identity.Tenant{acme, globex}, nil)
	publisher := &recordingPublisher{}

	job := NewReorderScanJob(tenants, forecaster, publisher, zap.NewNop())
	summary, err := job.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ScanSummary{Tenants: 2, Items: 3, Suggestions: 2}, summary)
	assert.ElementsMatch(t, []uuid.UUID{acme.ID, globex.ID}, forecaster.seen)

	events := publisher.Events()
	require.Len(t, events, 2)
	byName := map[string]*forecast.ReorderSuggestedEvent{}
	for _, e := range events {
		assert.Equal(t, forecast.EventTypeReorderSuggested, e.EventType())
		rs := e.(*forecast.ReorderSuggestedEvent)
		byName[rs.ItemName] = rs
	}
	require.Contains(t, byName, "Bolt")
	require.Contains(t, byName, "Gear")
	assert.Equal(t, acme.ID, byName["Bolt"].TenantID())
	assert.Equal(t, int64(40), byName["Bolt"].ReorderQuantity)
	assert.Equal(t, globex.ID, byName["Gear"].TenantID())
	assert.Equal(t, forecast.StatusLow, byName["Gear"].Status)
}

func TestReorderScanJob_SwitchesTenantOverExistingBinding(t *testing.T) {
	acme := mustTenant(t, "acme")
	forecaster := &tenantForecaster{}
	tenants := new(MockTenantRepository)
	tenants.On("FindActive", mock.Anything).Return([]identity.Tenant{acme}, nil)

	ctx := tenancy.WithTenant(context.Background(), uuid.New())
	job := NewReorderScanJob(tenants, forecaster, &recordingPublisher{}, zap.NewNop())
	_, err := job.Scan(ctx)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{acme.ID}, forecaster.seen)
}

func TestReorderScanJob_ContinuesPastFailingTenant(t *testing.T) {
	acme, globex := mustTenant(t, "acme"), mustTenant(t, "globex")
	forecaster := &tenantForecaster{
		errs: map[uuid.UUID]error{acme.ID: errors.New("db down")},
		results: map[uuid.UUID][]forecast.Result{
			globex.ID: {{ItemID: uuid.New(), Status: forecast.StatusCritical}},
		},
	}
	tenants := new(MockTenantRepository)
	tenants.On("FindActive", mock.Anything).Return([]identity.Tenant{acme, globex}, nil)
	publisher := &recordingPublisher{}

	summary, err := NewReorderScanJob(tenants, forecaster, publisher, zap.NewNop()).Scan(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme")
	assert.Contains(t, err.Error(), "db down")
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Suggestions)
	assert.Len(t, publisher.Events(), 1)
}

func TestReorderScanJob_PublishFailureCountsAsTenantFailure(t *testing.T) {
	acme := mustTenant(t, "acme")
	forecaster := &tenantForecaster{results: map[uuid.UUID][]forecast.Result{
		acme.ID: {{ItemID: uuid.New(), Status: forecast.StatusLow}},
	}}
	tenants := new(MockTenantRepository)
	tenants.On("FindActive", mock.Anything).Return([]identity.Tenant{acme}, nil)

	summary, err := NewReorderScanJob(tenants, forecaster, &recordingPublisher{err: errors.New("bus closed")}, zap.NewNop()).Scan(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Suggestions)
}

func TestReorderScanJob_TenantListFailure(t *testing.T) {
	tenants := new(MockTenantRepository)
	tenants.On("FindActive", mock.Anything).Return(nil, errors.New("no connection"))

	err := NewReorderScanJob(tenants, &tenantForecaster{}, &recordingPublisher{}, zap.NewNop()).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list active tenants")
}

func TestReorderScanJob_RunsUnderScheduler(t *testing.T) {
	acme := mustTenant(t, "acme")
	forecaster := &tenantForecaster{results: map[uuid.UUID][]forecast.Result{
		acme.ID: {{ItemID: uuid.New(), Status: forecast.StatusCritical}},
	}}
	tenants := new(MockTenantRepository)
	tenants.On("FindActive", mock.Anything).Return([]identity.Tenant{acme}, nil)
	publisher := &recordingPublisher{}

	job := NewReorderScanJob(tenants, forecaster, publisher, zap.NewNop())
	s, err := scheduler.NewScheduler(scheduler.DefaultConfig(), job, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.RunNow(context.Background()))

	assert.Equal(t, scheduler.JobStatusSuccess, s.LastRun().Status)
	assert.Len(t, publisher.Events(), 1)
}
