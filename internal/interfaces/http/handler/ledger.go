package handler

import (
	"context"
	"net/http"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/interfaces/http/dto"
	"github.com/erp/stockengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerUseCases is the part of the ledger service the handler needs
type LedgerUseCases interface {
	Query(ctx context.Context, tenantID uuid.UUID, query inventoryapp.LedgerQuery) ([]inventoryapp.LedgerEntryResponse, int64, error)
	ByDocument(ctx context.Context, tenantID uuid.UUID, documentType, documentID string) ([]inventoryapp.LedgerEntryResponse, error)
	Timeline(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) ([]inventoryapp.LedgerEntryResponse, error)
	Latest(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) (*inventoryapp.LedgerEntryResponse, error)
	ValidateBalanceConsistency(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) (*inventoryapp.ConsistencyReport, error)
}

// LedgerHandler serves the movement ledger, which is read only over HTTP
type LedgerHandler struct {
	BaseHandler
	ledger LedgerUseCases
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger LedgerUseCases) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Query godoc
// @ID           listInventoryLedger
// @Summary      Query the stock ledger
// @Description  Page through ledger entries, newest first, filtered by item, location,
// @Description  movement, document, user and date range.
// @Tags         inventory-ledger
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Param        location_id query string false "Location ID" format(uuid)
// @Param        movement_type query string false "Movement type"
// @Param        document_type query string false "Document type"
// @Param        document_id query string false "Document ID"
// @Param        user_id query string false "User ID" format(uuid)
// @Param        from query string false "Start date (YYYY-MM-DD or RFC3339)"
// @Param        to query string false "End date, inclusive for plain dates"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]inventoryapp.LedgerEntryResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/ledger [get]
func (h *LedgerHandler) Query(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var query LedgerListQuery
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
	var movementType *inventory.MovementType
	if query.MovementType != "" {
		mt := inventory.MovementType(query.MovementType)
		movementType = &mt
	}

	page, pageSize := pageOf(query.ListRequest)
	entries, total, err := h.ledger.Query(c.Request.Context(), tenantID, inventoryapp.LedgerQuery{
		Item:         item,
		LocationID:   locationID,
		MovementType: movementType,
		DocumentType: query.DocumentType,
		DocumentID:   query.DocumentID,
		UserID:       userID,
		From:         from,
		To:           to,
		Page:         page,
		PageSize:     pageSize,
		OrderDir:     query.OrderDir,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, entries, total, page, pageSize)
}

// ByDocument godoc
// @ID           listInventoryLedgerByDocument
// @Summary      List ledger entries of a document
// @Description  Return every entry written for a business document in write order.
// @Tags         inventory-ledger
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        type path string true "Document type"
// @Param        id path string true "Document ID"
// @Success      200 {object} dto.Response{data=[]inventoryapp.LedgerEntryResponse}
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/ledger/documents/{type}/{id} [get]
func (h *LedgerHandler) ByDocument(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	entries, err := h.ledger.ByDocument(c.Request.Context(), tenantID, c.Param("type"), c.Param("id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entries)
}

// Timeline godoc
// @ID           getInventoryLedgerTimeline
// @Summary      Get the timeline of a balance
// @Description  Return the entries of one balance, oldest first.
// @Tags         inventory-ledger
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Param        location_id query string true "Location ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]inventoryapp.LedgerEntryResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/ledger/timeline [get]
func (h *LedgerHandler) Timeline(c *gin.Context) {
	tenantID, item, locationID, ok := h.locate(c)
	if !ok {
		return
	}
	entries, err := h.ledger.Timeline(c.Request.Context(), tenantID, item, locationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entries)
}

// Latest godoc
// @ID           getInventoryLedgerLatest
// @Summary      Get the latest entry of a balance
// @Description  Return the newest ledger entry of one balance.
// @Tags         inventory-ledger
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Param        location_id query string true "Location ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.LedgerEntryResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/ledger/latest [get]
func (h *LedgerHandler) Latest(c *gin.Context) {
	tenantID, item, locationID, ok := h.locate(c)
	if !ok {
		return
	}
	entry, err := h.ledger.Latest(c.Request.Context(), tenantID, item, locationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entry)
}

// Consistency godoc
// @ID           checkInventoryLedgerConsistency
// @Summary      Check a balance against its ledger
// @Description  Replay the ledger of one balance and compare the result with the stored
// @Description  quantities. A mismatch answers 409 with the report as data.
// @Tags         inventory-ledger
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Param        location_id query string true "Location ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.ConsistencyReport}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/ledger/consistency [get]
func (h *LedgerHandler) Consistency(c *gin.Context) {
	tenantID, item, locationID, ok := h.locate(c)
	if !ok {
		return
	}
	report, err := h.ledger.ValidateBalanceConsistency(c.Request.Context(), tenantID, item, locationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if !report.Consistent {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeBalanceIntegrity,
			"Balance does not match its ledger", middleware.GetRequestID(c))
		resp.Data = report
		c.JSON(http.StatusConflict, resp)
		return
	}
	h.Success(c, report)
}

func (h *LedgerHandler) locate(c *gin.Context) (tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID, ok bool) {
	if tenantID, ok = h.tenantID(c); !ok {
		return
	}
	ok = false
	var query BalanceLocator
	if !h.bindQuery(c, &query) {
		return
	}
	var err error
	if item, err = query.Ref(); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if locationID, err = requiredUUID(query.LocationID, "location_id"); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	return tenantID, item, locationID, true
}
