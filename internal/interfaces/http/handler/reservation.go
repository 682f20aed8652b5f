package handler

import (
	"context"
	"time"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReservationUseCases is the part of the reservation service the handler needs
type ReservationUseCases interface {
	Reserve(ctx context.Context, tenantID uuid.UUID, req inventoryapp.ReserveRequest) (*inventoryapp.ReservationResponse, error)
	Release(ctx context.Context, tenantID, reservationID, userID uuid.UUID) (*inventoryapp.ReservationResponse, error)
	Fulfill(ctx context.Context, tenantID, reservationID, userID uuid.UUID) (*inventoryapp.ReservationResponse, error)
	Get(ctx context.Context, tenantID, reservationID uuid.UUID) (*inventoryapp.ReservationResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, query inventoryapp.ReservationQuery) ([]inventoryapp.ReservationResponse, int64, error)
	ReleaseExpired(ctx context.Context, tenantID uuid.UUID, now time.Time) (*inventoryapp.SweepStats, error)
}

// ReservationHandler handles reservation records
type ReservationHandler struct {
	BaseHandler
	reservations ReservationUseCases
	now          func() time.Time
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservations ReservationUseCases) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, now: time.Now}
}

// Create godoc
// @ID           createInventoryReservation
// @Summary      Reserve stock
// @Description  Hold available stock for a source document. The hold is released by
// @Description  Release, shipped by Fulfill, or expired by the sweep.
// @Tags         inventory-reservations
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        X-User-ID header string false "Acting user, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Param        request body ReservationCreateRequest true "Reservation"
// @Success      201 {object} dto.Response{data=inventoryapp.ReservationResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.actor(c)
	if !ok {
		return
	}
	var req ReservationCreateRequest
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

	reservation, err := h.reservations.Reserve(c.Request.Context(), tenantID, inventoryapp.ReserveRequest{
		Item:       item,
		LocationID: locationID,
		Quantity:   req.Quantity,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		UserID:     userID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, reservation)
}

// Get godoc
// @ID           getInventoryReservation
// @Summary      Get a reservation
// @Description  Return one reservation by ID.
// @Tags         inventory-reservations
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        id path string true "Reservation ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.ReservationResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/reservations/{id} [get]
func (h *ReservationHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	reservation, err := h.reservations.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, reservation)
}

// List godoc
// @ID           listInventoryReservations
// @Summary      List reservations
// @Description  Page through reservations filtered by item, location, status and source.
// @Tags         inventory-reservations
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Param        location_id query string false "Location ID" format(uuid)
// @Param        status query string false "Status" Enums(active, fulfilled, released, expired)
// @Param        source_type query string false "Source document type"
// @Param        source_id query string false "Source document ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]inventoryapp.ReservationResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var query ReservationListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	item, err := query.OptionalRef()
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	locationID, err := optionalUUID(query.LocationID, "location_id")
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	filter := inventoryapp.ReservationQuery{
		Item:       item,
		LocationID: locationID,
		SourceType: query.SourceType,
		SourceID:   query.SourceID,
	}
	if query.Status != "" {
		s := inventory.ReservationStatus(query.Status)
		filter.Status = &s
	}
	filter.Page, filter.PageSize = pageOf(query.ListRequest)

	reservations, total, err := h.reservations.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, reservations, total, filter.Page, filter.PageSize)
}

// Release godoc
// @ID           releaseInventoryReservation
// @Summary      Release a reservation
// @Description  Return the held stock to sale. Only active reservations can be released.
// @Tags         inventory-reservations
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        X-User-ID header string false "Acting user, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Param        id path string true "Reservation ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.ReservationResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/reservations/{id}/release [post]
func (h *ReservationHandler) Release(c *gin.Context) {
	h.resolve(c, h.reservations.Release)
}

// Fulfill godoc
// @ID           fulfillInventoryReservation
// @Summary      Fulfill a reservation
// @Description  Ship the held stock. The reserved and available quantities both drop by
// @Description  the held quantity.
// @Tags         inventory-reservations
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        X-User-ID header string false "Acting user, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Param        id path string true "Reservation ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.ReservationResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/reservations/{id}/fulfill [post]
func (h *ReservationHandler) Fulfill(c *gin.Context) {
	h.resolve(c, h.reservations.Fulfill)
}

func (h *ReservationHandler) resolve(c *gin.Context, op func(ctx context.Context, tenantID, reservationID, userID uuid.UUID) (*inventoryapp.ReservationResponse, error)) {
	tenantID, userID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	reservation, err := op(c.Request.Context(), tenantID, id, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, reservation)
}

// Sweep godoc
// @ID           sweepInventoryReservations
// @Summary      Expire overdue reservations
// @Description  Expire the caller's overdue reservations now instead of waiting for the
// @Description  scheduled sweep.
// @Tags         inventory-reservations
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Success      200 {object} dto.Response{data=inventoryapp.SweepStats}
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/reservations/sweep [post]
func (h *ReservationHandler) Sweep(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	stats, err := h.reservations.ReleaseExpired(c.Request.Context(), tenantID, h.now())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}
