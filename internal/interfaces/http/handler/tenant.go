package handler

import (
	"context"

	apptenant "github.com/erp/stockledger/internal/application/tenant"
	"github.com/erp/stockledger/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TenantAdmin is the tenant administration surface the handler needs
type TenantAdmin interface {
	Create(ctx context.Context, req apptenant.CreateTenantRequest) (*apptenant.TenantResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*apptenant.TenantResponse, error)
	List(ctx context.Context, filter apptenant.TenantListFilter) ([]apptenant.TenantResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status identity.TenantStatus) (*apptenant.TenantResponse, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, req apptenant.UpdateSettingsRequest) (*apptenant.TenantResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TenantHandler handles tenant administration. These routes are not tenant
// scoped and sit outside the tenant middleware.
type TenantHandler struct {
	BaseHandler
	tenants TenantAdmin
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenants TenantAdmin) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Create godoc
// @ID           createTenant
// @Summary      Register a tenant
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body apptenant.CreateTenantRequest true "Tenant"
// @Success      201 {object} APIResponse[apptenant.TenantResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Code or domain taken"
// @Router       /admin/tenants [post]
func (h *TenantHandler) Create(c *gin.Context) {
	var req apptenant.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	tenant, err := h.tenants.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, tenant)
}

// Get godoc
// @ID           getTenant
// @Summary      Get a tenant
// @Tags         admin
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} APIResponse[apptenant.TenantResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /admin/tenants/{id} [get]
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	tenant, err := h.tenants.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// List godoc
// @ID           listTenants
// @Summary      List tenants
// @Tags         admin
// @Produce      json
// @Param        search query string false "Code or name search"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]apptenant.TenantResponse]
// @Router       /admin/tenants [get]
func (h *TenantHandler) List(c *gin.Context) {
	var filter apptenant.TenantListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}

	tenants, err := h.tenants.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenants)
}

// UpdateSettings godoc
// @ID           updateTenantSettings
// @Summary      Update tenant name, domain or settings
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Param        request body apptenant.UpdateSettingsRequest true "Changes"
// @Success      200 {object} APIResponse[apptenant.TenantResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /admin/tenants/{id} [patch]
func (h *TenantHandler) UpdateSettings(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req apptenant.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	tenant, err := h.tenants.UpdateSettings(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// UpdateStatus godoc
// @ID           updateTenantStatus
// @Summary      Activate, suspend or deactivate a tenant
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Param        request body apptenant.UpdateStatusRequest true "Status"
// @Success      200 {object} APIResponse[apptenant.TenantResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /admin/tenants/{id}/status [patch]
func (h *TenantHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req apptenant.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	tenant, err := h.tenants.UpdateStatus(c.Request.Context(), id, identity.TenantStatus(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// Delete godoc
// @ID           deleteTenant
// @Summary      Delete a tenant with no items
// @Tags         admin
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Tenant still owns items"
// @Router       /admin/tenants/{id} [delete]
func (h *TenantHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.tenants.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
