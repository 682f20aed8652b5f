package handler

import (
	"context"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferUseCases is the part of the transfer service the handler needs
type TransferUseCases interface {
	Transfer(ctx context.Context, tenantID uuid.UUID, req inventoryapp.TransferRequest) (*inventoryapp.TransferResponse, error)
	Cancel(ctx context.Context, tenantID, transferID, userID uuid.UUID) (*inventoryapp.TransferResponse, error)
	GetTransfer(ctx context.Context, tenantID, transferID uuid.UUID) (*inventoryapp.TransferResponse, error)
	ListTransfers(ctx context.Context, tenantID uuid.UUID, query inventoryapp.TransferQuery) ([]inventoryapp.TransferResponse, int64, error)
}

// TransferHandler handles stock transfers between locations
type TransferHandler struct {
	BaseHandler
	transfers TransferUseCases
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(transfers TransferUseCases) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

// Create godoc
// @ID           createInventoryTransfer
// @Summary      Transfer stock between locations
// @Description  Move available stock from one location to another in one transaction.
// @Description  Both locations and the item must be active.
// @Tags         inventory-transfers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        X-User-ID header string false "Acting user, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Param        request body TransferCreateRequest true "Transfer"
// @Success      201 {object} dto.Response{data=inventoryapp.TransferResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/transfers [post]
func (h *TransferHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.actor(c)
	if !ok {
		return
	}
	var req TransferCreateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := req.Ref()
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	from, err := requiredUUID(req.FromLocationID, "from_location_id")
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	to, err := requiredUUID(req.ToLocationID, "to_location_id")
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	transfer, err := h.transfers.Transfer(c.Request.Context(), tenantID, inventoryapp.TransferRequest{
		Item:           item,
		FromLocationID: from,
		ToLocationID:   to,
		Quantity:       req.Quantity,
		Reason:         req.Reason,
		UserID:         userID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, transfer)
}

// Get godoc
// @ID           getInventoryTransfer
// @Summary      Get a transfer
// @Description  Return one transfer by ID.
// @Tags         inventory-transfers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        id path string true "Transfer ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.TransferResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/transfers/{id} [get]
func (h *TransferHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	transfer, err := h.transfers.GetTransfer(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, transfer)
}

// List godoc
// @ID           listInventoryTransfers
// @Summary      List transfers
// @Description  Page through transfers filtered by item, location, status and date range.
// @Tags         inventory-transfers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Param        location_id query string false "Source or destination location" format(uuid)
// @Param        status query string false "Status" Enums(completed, cancelled)
// @Param        from query string false "Start date"
// @Param        to query string false "End date"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]inventoryapp.TransferResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/transfers [get]
func (h *TransferHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var query TransferListQuery
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
	from, to, err := dateRange(query.From, query.To)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	var status *inventory.TransferStatus
	if query.Status != "" {
		s := inventory.TransferStatus(query.Status)
		status = &s
	}

	page, pageSize := pageOf(query.ListRequest)
	transfers, total, err := h.transfers.ListTransfers(c.Request.Context(), tenantID, inventoryapp.TransferQuery{
		Item:       item,
		LocationID: locationID,
		Status:     status,
		From:       from,
		To:         to,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, transfers, total, page, pageSize)
}

// Cancel godoc
// @ID           cancelInventoryTransfer
// @Summary      Cancel a transfer
// @Description  Reverse a completed transfer. The destination must still hold the moved
// @Description  quantity as available stock.
// @Tags         inventory-transfers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        X-User-ID header string false "Acting user, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Param        id path string true "Transfer ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.TransferResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *gin.Context) {
	tenantID, userID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	transfer, err := h.transfers.Cancel(c.Request.Context(), tenantID, id, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, transfer)
}
