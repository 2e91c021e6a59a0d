package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syncapp "github.com/stocksync/backend/internal/application/sync"
	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
)

// SyncHandler handles external ledger sync API endpoints
type SyncHandler struct {
	BaseHandler
	syncs     *syncapp.SyncService
	conflicts *syncapp.ConflictService
	jobs      *syncapp.JobManager
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncs *syncapp.SyncService, conflicts *syncapp.ConflictService, jobs *syncapp.JobManager) *SyncHandler {
	return &SyncHandler{
		syncs:     syncs,
		conflicts: conflicts,
		jobs:      jobs,
	}
}

// SyncRequestBody represents a sync request with untyped filter fields
type SyncRequestBody struct {
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
	Location       string      `json:"location"`
	Type           string      `json:"type"`
	Since          *time.Time  `json:"since"`
	Until          *time.Time  `json:"until"`
	Mode           string      `json:"mode"`
	SyncDate       *time.Time  `json:"sync_date"`
	Force          bool        `json:"force"`
}

// toSyncRequest validates the body and builds the application request
func (b SyncRequestBody) toSyncRequest() (syncapp.SyncRequest, error) {
	mode, err := syncapp.ParseMode(b.Mode)
	if err != nil {
		return syncapp.SyncRequest{}, err
	}

	req := syncapp.SyncRequest{
		TransactionIDs: b.TransactionIDs,
		Since:          b.Since,
		Until:          b.Until,
		Mode:           mode,
		SyncDate:       b.SyncDate,
		Force:          b.Force,
	}
	if b.Location != "" {
		location := valueobject.Location(b.Location)
		if !location.IsValid() {
			return syncapp.SyncRequest{}, shared.NewDomainError("INVALID_LOCATION", "Unknown location "+b.Location)
		}
		req.Location = &location
	}
	if b.Type != "" {
		txType := ledger.Type(b.Type)
		if !txType.IsValid() {
			return syncapp.SyncRequest{}, shared.NewDomainError("INVALID_TYPE", "Unknown transaction type "+b.Type)
		}
		req.Type = &txType
	}
	return req, nil
}

// CheckConflictsRequestBody represents a conflict pre-check request
type CheckConflictsRequestBody struct {
	TransactionIDs []uuid.UUID `json:"transaction_ids" binding:"required,min=1"`
	Location       string      `json:"location"`
	SyncDate       *time.Time  `json:"sync_date"`
}

// ResolveConflictRequestBody represents a conflict resolution request
type ResolveConflictRequestBody struct {
	TransactionIDs []uuid.UUID `json:"transaction_ids" binding:"required,min=1"`
	Location       string      `json:"location" binding:"required"`
	Date           time.Time   `json:"date" binding:"required"`
	Resolution     string      `json:"resolution" binding:"required"`
	IncludeSKUs    []string    `json:"include_skus"`
}

// StartJobResponse reports the ID of a queued sync job
type StartJobResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

// Sync handles POST /sync
func (h *SyncHandler) Sync(c *gin.Context) {
	var body SyncRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	req, err := body.toSyncRequest()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.syncs.Sync(c.Request.Context(), req)
	if err != nil {
		// The partial result still reports what was written and skipped
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CheckConflicts handles POST /sync/conflicts/check
func (h *SyncHandler) CheckConflicts(c *gin.Context) {
	var body CheckConflictsRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	req := syncapp.CheckConflictsRequest{
		TransactionIDs: body.TransactionIDs,
		SyncDate:       body.SyncDate,
	}
	if body.Location != "" {
		location := valueobject.Location(body.Location)
		if !location.IsValid() {
			h.BadRequest(c, "Unknown location "+body.Location)
			return
		}
		req.Location = &location
	}

	conflicts, err := h.conflicts.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, conflicts)
}

// ResolveConflict handles POST /sync/conflicts/resolve
func (h *SyncHandler) ResolveConflict(c *gin.Context) {
	var body ResolveConflictRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	location := valueobject.Location(body.Location)
	if !location.IsValid() {
		h.BadRequest(c, "Unknown location "+body.Location)
		return
	}

	result, err := h.conflicts.ResolveDateConflict(c.Request.Context(), syncapp.ResolveConflictRequest{
		TransactionIDs: body.TransactionIDs,
		Location:       location,
		Date:           body.Date,
		Resolution:     syncapp.Resolution(body.Resolution),
		IncludeSKUs:    body.IncludeSKUs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// StartJob handles POST /sync/jobs
func (h *SyncHandler) StartJob(c *gin.Context) {
	var body SyncRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	req, err := body.toSyncRequest()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	jobID := h.jobs.StartSync(req)
	h.Created(c, StartJobResponse{JobID: jobID})
}

// GetJob handles GET /sync/jobs/:id
func (h *SyncHandler) GetJob(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	view, err := h.jobs.Get(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// CancelJob handles POST /sync/jobs/:id/cancel
func (h *SyncHandler) CancelJob(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	if err := h.jobs.Cancel(id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	syncs := rg.Group("/sync")
	{
		syncs.POST("", h.Sync)
		syncs.POST("/conflicts/check", h.CheckConflicts)
		syncs.POST("/conflicts/resolve", h.ResolveConflict)
		syncs.POST("/jobs", h.StartJob)
		syncs.GET("/jobs/:id", h.GetJob)
		syncs.POST("/jobs/:id/cancel", h.CancelJob)
	}
}
