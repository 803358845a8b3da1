package identity

import (
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended" // Suspended due to payment/violation issues
	TenantStatusInactive  TenantStatus = "inactive"
)

// IsValid reports whether s is a known status
func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusInactive:
		return true
	}
	return false
}

// TenantSettings holds per-tenant preferences
type TenantSettings struct {
	Currency string          `json:"currency"`
	Features map[string]bool `json:"features"`
}

// DefaultTenantSettings returns the settings for a new tenant
func DefaultTenantSettings() TenantSettings {
	return TenantSettings{
		Currency: "USD",
		Features: map[string]bool{},
	}
}

// FeatureEnabled reports whether the named feature flag is on
func (s TenantSettings) FeatureEnabled(name string) bool {
	return s.Features[name]
}

// Tenant represents an isolated organization.
// It is the aggregate root for tenant-related operations.
type Tenant struct {
	shared.BaseAggregateRoot
	Code     string // lowercase slug, also used as subdomain
	Name     string
	Domain   string // optional custom domain
	Status   TenantStatus
	Settings TenantSettings
}

// NewTenant creates a new active tenant
func NewTenant(code, name string) (*Tenant, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if err := validateTenantCode(code); err != nil {
		return nil, err
	}
	if err := validateTenantName(name); err != nil {
		return nil, err
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Status:            TenantStatusActive,
		Settings:          DefaultTenantSettings(),
	}

	tenant.AddDomainEvent(newTenantCreatedEvent(tenant))

	return tenant, nil
}

// Rename updates the display name
func (t *Tenant) Rename(name string) error {
	if err := validateTenantName(name); err != nil {
		return err
	}
	t.Name = name
	t.touch()
	return nil
}

// SetDomain sets the tenant's custom domain. An empty domain clears it.
func (t *Tenant) SetDomain(domain string) error {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if len(domain) > 200 {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Domain cannot exceed 200 characters")
	}
	t.Domain = domain
	t.touch()
	return nil
}

// UpdateSettings replaces the tenant settings
func (t *Tenant) UpdateSettings(settings TenantSettings) error {
	settings.Currency = strings.ToUpper(strings.TrimSpace(settings.Currency))
	if len(settings.Currency) != 3 {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Currency must be a 3-letter ISO code")
	}
	if settings.Features == nil {
		settings.Features = map[string]bool{}
	}
	t.Settings = settings
	t.touch()
	return nil
}

// ChangeStatus moves the tenant to status
func (t *Tenant) ChangeStatus(status TenantStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Invalid tenant status")
	}
	if t.Status == status {
		return shared.NewDomainError(shared.CodeInvalidState, "Tenant is already "+string(status))
	}

	oldStatus := t.Status
	t.Status = status
	t.touch()

	t.AddDomainEvent(newTenantStatusChangedEvent(t, oldStatus, status))

	return nil
}

// Activate activates the tenant
func (t *Tenant) Activate() error {
	return t.ChangeStatus(TenantStatusActive)
}

// Suspend suspends the tenant
func (t *Tenant) Suspend() error {
	return t.ChangeStatus(TenantStatusSuspended)
}

// Deactivate deactivates the tenant
func (t *Tenant) Deactivate() error {
	return t.ChangeStatus(TenantStatusInactive)
}

// IsActive returns true if the tenant may serve requests
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

func (t *Tenant) touch() {
	t.UpdatedAt = time.Now().UTC()
	t.IncrementVersion()
}

func validateTenantCode(code string) error {
	if code == "" {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Tenant code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Tenant code cannot exceed 50 characters")
	}
	for i, r := range code {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || (r == '-' && i > 0 && i < len(code)-1)
		if !valid {
			return shared.NewDomainError(shared.CodeInvalidArgument, "Tenant code can only contain lowercase letters, numbers, and inner hyphens")
		}
	}
	return nil
}

func validateTenantName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Tenant name cannot exceed 200 characters")
	}
	return nil
}
