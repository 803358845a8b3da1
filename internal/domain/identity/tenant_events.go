package identity

import (
	"github.com/erp/stockledger/internal/domain/shared"
)

const (
	EventTypeTenantCreated       = "TenantCreated"
	EventTypeTenantStatusChanged = "TenantStatusChanged"
)

// TenantCreatedEvent announces a newly registered tenant. A tenant's
// events carry its own ID as both aggregate and tenant.
type TenantCreatedEvent struct {
	shared.EventEnvelope
	Code string `json:"code"`
	Name string `json:"name"`
}

func newTenantCreatedEvent(t *Tenant) *TenantCreatedEvent {
	return &TenantCreatedEvent{
		EventEnvelope: shared.NewEnvelope(EventTypeTenantCreated, t.ID, t.ID),
		Code:          t.Code,
		Name:          t.Name,
	}
}

// TenantStatusChangedEvent is raised by activate, deactivate and suspend.
// Consumers use it to drop cached resolutions of the tenant.
type TenantStatusChangedEvent struct {
	shared.EventEnvelope
	Code string       `json:"code"`
	From TenantStatus `json:"from"`
	To   TenantStatus `json:"to"`
}

func newTenantStatusChangedEvent(t *Tenant, from, to TenantStatus) *TenantStatusChangedEvent {
	return &TenantStatusChangedEvent{
		EventEnvelope: shared.NewEnvelope(EventTypeTenantStatusChanged, t.ID, t.ID),
		Code:          t.Code,
		From:          from,
		To:            to,
	}
}
