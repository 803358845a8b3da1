package main

import (
	"context"
	"time"

	auditapp "github.com/erp/stockledger/internal/application/audit"
	forecastapp "github.com/erp/stockledger/internal/application/forecast"
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	tenantapp "github.com/erp/stockledger/internal/application/tenant"
	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/event"
	"github.com/erp/stockledger/internal/infrastructure/lock"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/persistence/tenant"
	"github.com/erp/stockledger/internal/infrastructure/scheduler"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// app holds the wired services and everything that needs stopping
type app struct {
	registry  *tenantapp.Registry
	tenants   *tenantapp.Service
	items     *inventoryapp.ItemService
	ledger    *inventoryapp.StockLedger
	forecasts *forecastapp.Service

	// nil when the reorder scan is disabled
	reorderScan *scheduler.Scheduler

	stoppers []stopper
}

type stopper struct {
	name string
	fn   func(ctx context.Context) error
}

func buildApp(ctx context.Context, cfg *config.Config, db *persistence.Database, mp *telemetry.MeterProvider, log *zap.Logger) (*app, error) {
	a := &app{}

	tdb, err := db.TenantDB(tenant.Config{
		TenantColumn: "tenant_id",
		Required:     cfg.Tenant.Required,
	})
	if err != nil {
		return nil, err
	}

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(tdb)
	itemRepo := persistence.NewGormItemRepository(tdb)
	movementRepo := persistence.NewGormMovementRepository(tdb)
	auditRepo := persistence.NewGormAuditRepository(tdb)

	locker, closeLocker, err := lock.New(cfg.Ledger, cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	a.onStop("item locker", func(context.Context) error { return closeLocker() })

	// Audit trail, started before anything can log to it
	trail := auditapp.NewTrail(auditRepo, auditapp.TrailConfig{
		BufferSize: cfg.Audit.BufferSize,
		Workers:    cfg.Audit.Workers,
	}, log)
	if err := trail.Start(ctx); err != nil {
		return nil, err
	}
	a.onStop("audit trail", trail.Stop)

	// Post-commit handlers
	bus := event.NewInMemoryEventBus(log,
		event.WithWorkers(cfg.Event.Workers),
		event.WithQueueSize(cfg.Event.QueueSize),
		event.WithEnqueueTimeout(cfg.Event.EnqueueTimeout),
	)
	bus.Subscribe(inventoryapp.NewStockAuditHandler(trail, log))
	bus.Subscribe(inventoryapp.NewLowStockAlertHandler(log))
	if err := bus.Start(ctx); err != nil {
		return nil, err
	}
	// the bus drains before the trail it feeds
	a.stoppers = append([]stopper{{name: "event bus", fn: bus.Stop}}, a.stoppers...)

	txScope := persistence.NewGormTransactionScope(tdb, cfg.Ledger.LockTimeout)

	a.ledger = inventoryapp.NewStockLedger(txScope, locker)
	a.ledger.SetEventPublisher(bus)
	a.ledger.SetLogger(log)
	if mp.IsEnabled() {
		metrics, err := telemetry.NewLedgerMetrics(mp.Meter("stockledger/ledger"))
		if err != nil {
			return nil, err
		}
		a.ledger.SetMetrics(metrics)
	}

	a.items = inventoryapp.NewItemService(itemRepo, movementRepo, txScope, locker)
	a.items.SetAuditLogger(trail)
	a.items.SetEventPublisher(bus)
	a.items.SetLogger(log)

	a.forecasts = forecastapp.NewService(itemRepo, movementRepo, forecast.Params{
		WindowDays:    cfg.Forecast.WindowDays,
		TargetDays:    cfg.Forecast.TargetDays,
		LeadTimeDays:  cfg.Forecast.LeadTimeDays,
		LowMarginDays: cfg.Forecast.LowMarginDays,
	})

	a.registry = tenantapp.NewRegistry(tenantRepo, tenantapp.RegistryConfig{
		BaseDomain:  cfg.Tenant.BaseDomain,
		DefaultCode: cfg.Tenant.DefaultCode,
		CacheTTL:    cfg.Tenant.CacheTTL,
	}, log)
	a.onStop("tenant registry", func(context.Context) error { return a.registry.Close() })

	a.tenants = tenantapp.NewService(tenantRepo, itemRepo, log)
	a.tenants.SetCacheInvalidator(a.registry)
	a.tenants.SetAuditLogger(trail)
	a.tenants.SetEventPublisher(bus)

	if cfg.Scheduler.ReorderScanEnabled {
		job := forecastapp.NewReorderScanJob(tenantRepo, a.forecasts, bus, log)
		sched, err := scheduler.NewScheduler(scheduler.Config{
			Interval:   cfg.Scheduler.ReorderScanInterval,
			JobTimeout: cfg.Scheduler.JobTimeout,
		}, job, log)
		if err != nil {
			return nil, err
		}
		if err := sched.Start(ctx); err != nil {
			return nil, err
		}
		// the scan publishes to the bus, so it stops first
		a.stoppers = append([]stopper{{name: "reorder scan", fn: sched.Stop}}, a.stoppers...)
		a.reorderScan = sched
	}

	return a, nil
}

// onStop queues fn to run at shutdown, after the stoppers already queued
func (a *app) onStop(name string, fn func(ctx context.Context) error) {
	a.stoppers = append(a.stoppers, stopper{name: name, fn: fn})
}

// stop runs the stoppers in order, logging failures
func (a *app) stop(log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, s := range a.stoppers {
		if err := s.fn(ctx); err != nil {
			log.Warn("Error stopping "+s.name, zap.Error(err))
		}
	}
}
