package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/stocksync/backend/internal/application/partner"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

// VendorHandler handles vendor API endpoints
type VendorHandler struct {
	BaseHandler
	vendors *partner.VendorService
}

// NewVendorHandler creates a new VendorHandler
func NewVendorHandler(vendors *partner.VendorService) *VendorHandler {
	return &VendorHandler{vendors: vendors}
}

// Create handles POST /vendors
func (h *VendorHandler) Create(c *gin.Context) {
	var req partner.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.vendors.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List handles GET /vendors
func (h *VendorHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := req.ToFilter()
	vendors, total, err := h.vendors.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, vendors, total, filter.Page, filter.PageSize)
}

// Get handles GET /vendors/:id
func (h *VendorHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}

	resp, err := h.vendors.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update handles PUT /vendors/:id
func (h *VendorHandler) Update(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}

	var req partner.UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.vendors.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Merge handles POST /vendors/:id/merge. The path ID is the duplicate
// vendor; the body names the vendor to keep.
func (h *VendorHandler) Merge(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}

	var req partner.MergeVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.vendors.Merge(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete handles DELETE /vendors/:id
func (h *VendorHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}

	if err := h.vendors.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers vendor routes
func (h *VendorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	vendors := rg.Group("/vendors")
	{
		vendors.POST("", h.Create)
		vendors.GET("", h.List)
		vendors.GET("/:id", h.Get)
		vendors.PUT("/:id", h.Update)
		vendors.POST("/:id/merge", h.Merge)
		vendors.DELETE("/:id", h.Delete)
	}
}
