package tenant

import (
	"time"

	"github.com/erp/stockledger/internal/domain/identity"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantResponse represents a tenant in API responses
type TenantResponse struct {
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Domain    string          `json:"domain,omitempty"`
	Status    string          `json:"status"`
	Settings  SettingsPayload `json:"settings"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SettingsPayload is the wire form of tenant settings
type SettingsPayload struct {
	Currency string          `json:"currency"`
	Features map[string]bool `json:"features"`
}

// CreateTenantRequest contains input for creating a tenant
type CreateTenantRequest struct {
	Code     string           `json:"code" binding:"required,min=1,max=50"`
	Name     string           `json:"name" binding:"required,min=1,max=200"`
	Domain   string           `json:"domain" binding:"omitempty,max=200"`
	Settings *SettingsPayload `json:"settings"`
}

// UpdateSettingsRequest contains the mutable tenant fields. Nil fields are left unchanged.
type UpdateSettingsRequest struct {
	Name     *string         `json:"name" binding:"omitempty,min=1,max=200"`
	Domain   *string         `json:"domain" binding:"omitempty,max=200"`
	Currency *string         `json:"currency" binding:"omitempty,len=3"`
	Features map[string]bool `json:"features"`
}

// UpdateStatusRequest changes a tenant's status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active suspended inactive"`
}

// TenantListFilter narrows tenant listings
type TenantListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (f TenantListFilter) toDomain() shared.Filter {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		filter.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	filter.Search = f.Search
	return filter
}

// ToTenantResponse converts a domain Tenant to TenantResponse
func ToTenantResponse(t *identity.Tenant) TenantResponse {
	features := make(map[string]bool, len(t.Settings.Features))
	for k, v := range t.Settings.Features {
		features[k] = v
	}
	return TenantResponse{
		ID:     t.ID,
		Code:   t.Code,
		Name:   t.Name,
		Domain: t.Domain,
		Status: string(t.Status),
		Settings: SettingsPayload{
			Currency: t.Settings.Currency,
			Features: features,
		},
		Version:   t.Version,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// ToTenantResponses converts a slice of tenants
func ToTenantResponses(tenants []identity.Tenant) []TenantResponse {
	responses := make([]TenantResponse, len(tenants))
	for i := range tenants {
		responses[i] = ToTenantResponse(&tenants[i])
	}
	return responses
}
