package handler

import (
	"context"
	"time"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdjustmentUseCases is the part of the adjustment service the handler needs
type AdjustmentUseCases interface {
	Adjust(ctx context.Context, tenantID uuid.UUID, req inventoryapp.AdjustRequest) (*inventoryapp.AdjustmentResponse, error)
	ListAdjustments(ctx context.Context, tenantID uuid.UUID, query inventoryapp.AdjustmentQuery) ([]inventoryapp.AdjustmentResponse, int64, error)
	FrequentAdjustments(ctx context.Context, tenantID uuid.UUID, now time.Time) (*inventoryapp.FrequentAdjustmentReport, error)
}

// AdjustmentHandler handles manual stock corrections
type AdjustmentHandler struct {
	BaseHandler
	adjustments AdjustmentUseCases
	now         func() time.Time
}

// NewAdjustmentHandler creates a new AdjustmentHandler
func NewAdjustmentHandler(adjustments AdjustmentUseCases) *AdjustmentHandler {
	return &AdjustmentHandler{adjustments: adjustments, now: time.Now}
}

// Create godoc
// @ID           createInventoryAdjustment
// @Summary      Record a stock adjustment
// @Description  Correct available stock after a count, loss or damage. The adjustment
// @Description  number is assigned in the same transaction as the stock change.
// @Tags         inventory-adjustments
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        X-User-ID header string false "Acting user, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Param        request body AdjustmentCreateRequest true "Adjustment"
// @Success      201 {object} dto.Response{data=inventoryapp.AdjustmentResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/adjustments [post]
func (h *AdjustmentHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.actor(c)
	if !ok {
		return
	}
	var req AdjustmentCreateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := req.Ref()
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	locationID, err := requiredUUID(req.LocationID, "location_id")
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	date, err := optionalTime(req.Date, "adjustment_date")
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	adjustment, err := h.adjustments.Adjust(c.Request.Context(), tenantID, inventoryapp.AdjustRequest{
		Item:        item,
		LocationID:  locationID,
		Direction:   inventory.AdjustmentDirection(req.Direction),
		Quantity:    req.Quantity,
		Reason:      inventory.AdjustmentReason(req.Reason),
		Description: req.Description,
		Date:        date,
		UserID:      userID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, adjustment)
}

// List godoc
// @ID           listInventoryAdjustments
// @Summary      List adjustments
// @Description  Page through adjustments filtered by item, location, direction, reason,
// @Description  user and date range.
// @Tags         inventory-adjustments
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Param        location_id query string false "Location ID" format(uuid)
// @Param        direction query string false "Direction" Enums(increase, decrease)
// @Param        reason query string false "Reason"
// @Param        user_id query string false "User ID" format(uuid)
// @Param        from query string false "Start date"
// @Param        to query string false "End date"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]inventoryapp.AdjustmentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/adjustments [get]
func (h *AdjustmentHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var query AdjustmentListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	locationID, err := optionalUUID(query.LocationID, "location_id")
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	userID, err := optionalUUID(query.UserID, "user_id")
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	from, to, err := dateRange(query.From, query.To)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	filter := inventoryapp.AdjustmentQuery{
		From:       from,
		To:         to,
		LocationID: locationID,
		UserID:     userID,
	}
	if query.Direction != "" {
		d := inventory.AdjustmentDirection(query.Direction)
		filter.Direction = &d
	}
	if query.Reason != "" {
		r := inventory.AdjustmentReason(query.Reason)
		filter.Reason = &r
	}
	filter.Page, filter.PageSize = pageOf(query.ListRequest)

	adjustments, total, err := h.adjustments.ListAdjustments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, adjustments, total, filter.Page, filter.PageSize)
}

// Frequent godoc
// @ID           listFrequentInventoryAdjustments
// @Summary      Report frequently adjusted items
// @Description  Group the adjustments of the trailing window by item and location and
// @Description  return the groups at or over the configured threshold.
// @Tags         inventory-adjustments
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Success      200 {object} dto.Response{data=inventoryapp.FrequentAdjustmentReport}
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/adjustments/frequent [get]
func (h *AdjustmentHandler) Frequent(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	report, err := h.adjustments.FrequentAdjustments(c.Request.Context(), tenantID, h.now())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, report)
}
