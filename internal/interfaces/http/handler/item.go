package handler

import (
	"context"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ItemService is the item CRUD surface the handler needs
type ItemService interface {
	Create(ctx context.Context, req inventoryapp.CreateItemRequest) (*inventoryapp.ItemResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*inventoryapp.ItemResponse, error)
	List(ctx context.Context, filter inventoryapp.ItemListFilter) ([]inventoryapp.ItemResponse, int64, error)
	Update(ctx context.Context, id uuid.UUID, req inventoryapp.UpdateItemRequest) (*inventoryapp.ItemResponse, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	ListMovements(ctx context.Context, itemID uuid.UUID, filter inventoryapp.MovementListFilter) ([]inventoryapp.MovementResponse, int64, error)
}

// StockLedger is the quantity-changing surface the handler needs
type StockLedger interface {
	AddStock(ctx context.Context, itemID uuid.UUID, req inventoryapp.AddStockRequest) (*inventory.StockMovement, *inventory.InventoryItem, error)
	RemoveStock(ctx context.Context, itemID uuid.UUID, req inventoryapp.RemoveStockRequest) (*inventory.StockMovement, *inventory.InventoryItem, error)
	AdjustStock(ctx context.Context, itemID uuid.UUID, req inventoryapp.AdjustStockRequest) (*inventory.StockMovement, *inventory.InventoryItem, error)
	QuickSet(ctx context.Context, itemID uuid.UUID, newQuantity int64, userID uuid.UUID) (*inventory.InventoryItem, error)
}

// ItemHandler serves /items. Every route runs with the tenant bound by the
// tenant middleware; the acting user comes from X-User-ID.
type ItemHandler struct {
	BaseHandler
	items  ItemService
	ledger StockLedger
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(items ItemService, ledger StockLedger) *ItemHandler {
	return &ItemHandler{items: items, ledger: ledger}
}

// Create godoc
// @ID           createItem
// @Summary      Create an item
// @Description  Creates an item. A positive initial_quantity is recorded as an IN movement.
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID or code"
// @Param        request body inventoryapp.CreateItemRequest true "Item"
// @Success      201 {object} APIResponse[inventoryapp.ItemResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req inventoryapp.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	item, err := h.items.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// Get godoc
// @ID           getItem
// @Summary      Get an item
// @Tags         items
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.ItemResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /items/{id} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	item, err := h.items.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// List godoc
// @ID           listItems
// @Summary      List items
// @Tags         items
// @Produce      json
// @Param        search query string false "Name search"
// @Param        category query string false "Category"
// @Param        low_stock_only query bool false "Only items at or below their threshold"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} PagedResponse[inventoryapp.ItemResponse]
// @Router       /items [get]
func (h *ItemHandler) List(c *gin.Context) {
	var filter inventoryapp.ItemListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}

	items, total, err := h.items.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOf(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, items, total, page, pageSize)
}

// Update godoc
// @ID           updateItem
// @Summary      Update an item's descriptive fields
// @Description  Quantity cannot be changed here; use the stock endpoints.
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Param        request body inventoryapp.UpdateItemRequest true "Changes"
// @Success      200 {object} APIResponse[inventoryapp.ItemResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /items/{id} [put]
func (h *ItemHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	item, err := h.items.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Delete godoc
// @ID           deleteItem
// @Summary      Delete an item
// @Description  The item's movements are kept as history.
// @Tags         items
// @Param        id path string true "Item ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /items/{id} [delete]
func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.items.Delete(c.Request.Context(), id, uuid.Nil); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddStock godoc
// @ID           addStock
// @Summary      Receive stock
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Param        request body inventoryapp.AddStockRequest true "Receipt"
// @Success      200 {object} APIResponse[inventoryapp.StockOperationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /items/{id}/stock/add [post]
func (h *ItemHandler) AddStock(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	movement, item, err := h.ledger.AddStock(c.Request.Context(), id, req)
	h.respondStock(c, movement, item, err)
}

// RemoveStock godoc
// @ID           removeStock
// @Summary      Issue stock
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Param        request body inventoryapp.RemoveStockRequest true "Issue"
// @Success      200 {object} APIResponse[inventoryapp.StockOperationResponse]
// @Failure      422 {object} ErrorResponse "Insufficient stock"
// @Failure      503 {object} ErrorResponse
// @Router       /items/{id}/stock/remove [post]
func (h *ItemHandler) RemoveStock(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.RemoveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	movement, item, err := h.ledger.RemoveStock(c.Request.Context(), id, req)
	h.respondStock(c, movement, item, err)
}

// AdjustStock godoc
// @ID           adjustStock
// @Summary      Correct stock by a signed delta
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Param        request body inventoryapp.AdjustStockRequest true "Adjustment"
// @Success      200 {object} APIResponse[inventoryapp.StockOperationResponse]
// @Failure      422 {object} ErrorResponse "Result would be negative"
// @Failure      503 {object} ErrorResponse
// @Router       /items/{id}/stock/adjust [post]
func (h *ItemHandler) AdjustStock(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	movement, item, err := h.ledger.AdjustStock(c.Request.Context(), id, req)
	h.respondStock(c, movement, item, err)
}

// SetQuantity godoc
// @ID           setQuantity
// @Summary      Set the on-hand quantity
// @Description  Records an ADJUST movement for the difference. Setting the current quantity records nothing.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Param        request body inventoryapp.QuickSetRequest true "Target quantity"
// @Success      200 {object} APIResponse[inventoryapp.StockOperationResponse]
// @Failure      503 {object} ErrorResponse
// @Router       /items/{id}/quantity [put]
func (h *ItemHandler) SetQuantity(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.QuickSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	item, err := h.ledger.QuickSet(c.Request.Context(), id, *req.Quantity, uuid.Nil)
	h.respondStock(c, nil, item, err)
}

// ListMovements godoc
// @ID           listMovements
// @Summary      List an item's movements, newest first
// @Tags         stock
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Param        type query string false "IN, OUT or ADJUST"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} PagedResponse[inventoryapp.MovementResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /items/{id}/movements [get]
func (h *ItemHandler) ListMovements(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var filter inventoryapp.MovementListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}

	movements, total, err := h.items.ListMovements(c.Request.Context(), id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOf(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, movements, total, page, pageSize)
}

func (h *ItemHandler) respondStock(c *gin.Context, movement *inventory.StockMovement, item *inventory.InventoryItem, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inventoryapp.ToStockOperationResponse(movement, item))
}
