package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/stocksync/backend/internal/application/procurement"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

// OrderHandler handles procurement order API endpoints
type OrderHandler struct {
	BaseHandler
	orders *procurement.OrderService
	stages *procurement.StageService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders *procurement.OrderService, stages *procurement.StageService) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		stages: stages,
	}
}

// ListOrdersRequest represents the order list query parameters
type ListOrdersRequest struct {
	dto.ListRequest
	Stage string `form:"stage"`
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req procurement.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.orders.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	var req ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := req.ToFilter()
	orders, total, err := h.orders.List(c.Request.Context(), req.Stage, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete handles DELETE /orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddItem handles POST /orders/:id/items
func (h *OrderHandler) AddItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req procurement.CreateOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.orders.AddItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateItemQuantity handles PUT /orders/:id/items/:itemId/quantity
func (h *OrderHandler) UpdateItemQuantity(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	itemID, ok := parseUUIDParam(c, "itemId")
	if !ok {
		h.BadRequest(c, "Invalid item ID")
		return
	}

	var req procurement.UpdateItemQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.orders.UpdateItemQuantity(c.Request.Context(), id, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveItem handles DELETE /orders/:id/items/:itemId
func (h *OrderHandler) RemoveItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	itemID, ok := parseUUIDParam(c, "itemId")
	if !ok {
		h.BadRequest(c, "Invalid item ID")
		return
	}

	resp, err := h.orders.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ProcessItems handles POST /orders/process
func (h *OrderHandler) ProcessItems(c *gin.Context) {
	var req procurement.ProcessItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.stages.ProcessItems(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// MoveStage handles POST /orders/:id/stage
func (h *OrderHandler) MoveStage(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req procurement.MoveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.stages.MoveToStage(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ReceiveItem handles POST /orders/:id/items/:itemId/receive
func (h *OrderHandler) ReceiveItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	itemID, ok := parseUUIDParam(c, "itemId")
	if !ok {
		h.BadRequest(c, "Invalid item ID")
		return
	}

	var req procurement.ReceiveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.stages.ReceiveItem(c.Request.Context(), id, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// BulkReceive handles POST /orders/receive
func (h *OrderHandler) BulkReceive(c *gin.Context) {
	var req procurement.BulkReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.stages.BulkReceive(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.POST("/process", h.ProcessItems)
		orders.POST("/receive", h.BulkReceive)
		orders.GET("/:id", h.Get)
		orders.DELETE("/:id", h.Delete)
		orders.POST("/:id/stage", h.MoveStage)
		orders.POST("/:id/items", h.AddItem)
		orders.PUT("/:id/items/:itemId/quantity", h.UpdateItemQuantity)
		orders.DELETE("/:id/items/:itemId", h.RemoveItem)
		orders.POST("/:id/items/:itemId/receive", h.ReceiveItem)
	}
}
