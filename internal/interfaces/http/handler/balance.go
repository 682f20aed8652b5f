package handler

import (
	"context"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BalanceUseCases is the part of the balance service the handler needs
type BalanceUseCases interface {
	GetBalance(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) (*inventoryapp.BalanceResponse, error)
	ListBalances(ctx context.Context, tenantID uuid.UUID, query inventoryapp.BalanceQuery) ([]inventoryapp.BalanceResponse, int64, error)
	BelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]inventoryapp.BalanceResponse, error)
	Increase(ctx context.Context, tenantID uuid.UUID, req inventoryapp.MutationRequest) (*inventoryapp.MutationResponse, error)
	Decrease(ctx context.Context, tenantID uuid.UUID, req inventoryapp.MutationRequest) (*inventoryapp.MutationResponse, error)
	SetLevels(ctx context.Context, tenantID uuid.UUID, req inventoryapp.SetLevelsRequest) (*inventoryapp.BalanceResponse, error)
	ReceivePurchase(ctx context.Context, tenantID uuid.UUID, req inventoryapp.ReceiveRequest) (*inventoryapp.ReceiveResponse, error)
}

// BalanceHandler handles balance reads and direct stock mutations
type BalanceHandler struct {
	BaseHandler
	balances BalanceUseCases
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(balances BalanceUseCases) *BalanceHandler {
	return &BalanceHandler{balances: balances}
}

// Get godoc
// @ID           getInventoryBalance
// @Summary      Get one balance
// @Description  Return the balance of an item at a location. A missing balance is created
// @Description  at zero so every item and location pair reads the same way.
// @Tags         inventory-balances
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Param        location_id query string true "Location ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.BalanceResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/balances/lookup [get]
func (h *BalanceHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var query BalanceLocator
	if !h.bindQuery(c, &query) {
		return
	}
	item, err := query.Ref()
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	locationID, err := requiredUUID(query.LocationID, "location_id")
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	balance, err := h.balances.GetBalance(c.Request.Context(), tenantID, item, locationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, balance)
}

// List godoc
// @ID           listInventoryBalances
// @Summary      List balances
// @Description  Page through balances filtered by item, location, stock on hand or
// @Description  minimum level.
// @Tags         inventory-balances
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Param        location_id query string false "Location ID" format(uuid)
// @Param        only_in_stock query bool false "Only balances with stock available"
// @Param        below_minimum query bool false "Only balances under their minimum"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]inventoryapp.BalanceResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/balances [get]
func (h *BalanceHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var query BalanceListQuery
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

	page, pageSize := pageOf(query.ListRequest)
	balances, total, err := h.balances.ListBalances(c.Request.Context(), tenantID, inventoryapp.BalanceQuery{
		Item:         item,
		LocationID:   locationID,
		OnlyInStock:  query.OnlyInStock,
		BelowMinimum: query.BelowMinimum,
		Page:         page,
		PageSize:     pageSize,
		OrderBy:      query.OrderBy,
		OrderDir:     query.OrderDir,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, balances, total, page, pageSize)
}

// BelowMinimum godoc
// @ID           listInventoryBelowMinimum
// @Summary      List balances below minimum
// @Description  Return every balance whose quantity for sale is under its minimum level.
// @Tags         inventory-balances
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Success      200 {object} dto.Response{data=[]inventoryapp.BalanceResponse}
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/balances/below-minimum [get]
func (h *BalanceHandler) BelowMinimum(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	balances, err := h.balances.BelowMinimum(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, balances)
}

// SetLevels godoc
// @ID           setInventoryBalanceLevels
// @Summary      Set minimum and maximum levels
// @Description  Set or clear the alert thresholds of a balance. An omitted level is cleared.
// @Description  Levels accept at most 4 decimal places.
// @Tags         inventory-balances
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        request body SetLevelsRequest true "Levels"
// @Success      200 {object} dto.Response{data=inventoryapp.BalanceResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/balances/levels [put]
func (h *BalanceHandler) SetLevels(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req SetLevelsRequest
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

	balance, err := h.balances.SetLevels(c.Request.Context(), tenantID, inventoryapp.SetLevelsRequest{
		Item:       item,
		LocationID: locationID,
		Minimum:    req.Minimum,
		Maximum:    req.Maximum,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, balance)
}

// Increase godoc
// @ID           increaseInventoryStock
// @Summary      Increase stock
// @Description  Add available stock and write one ledger entry. The quantity must be
// @Description  positive with at most 4 decimal places.
// @Tags         inventory-stock
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        X-User-ID header string false "Acting user, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Param        request body StockMutationRequest true "Stock increase"
// @Success      200 {object} dto.Response{data=inventoryapp.MutationResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/stock/increase [post]
func (h *BalanceHandler) Increase(c *gin.Context) { h.mutate(c, h.balances.Increase) }

// Decrease godoc
// @ID           decreaseInventoryStock
// @Summary      Decrease stock
// @Description  Remove available stock and write one ledger entry. Reserved stock cannot
// @Description  be decreased here, only through its reservation.
// @Tags         inventory-stock
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        X-User-ID header string false "Acting user, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Param        request body StockMutationRequest true "Stock decrease"
// @Success      200 {object} dto.Response{data=inventoryapp.MutationResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/stock/decrease [post]
func (h *BalanceHandler) Decrease(c *gin.Context) { h.mutate(c, h.balances.Decrease) }

type mutationFunc func(ctx context.Context, tenantID uuid.UUID, req inventoryapp.MutationRequest) (*inventoryapp.MutationResponse, error)

func (h *BalanceHandler) mutate(c *gin.Context, op mutationFunc) {
	tenantID, userID, ok := h.actor(c)
	if !ok {
		return
	}
	var req StockMutationRequest
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

	result, err := op(c.Request.Context(), tenantID, inventoryapp.MutationRequest{
		Item:         item,
		LocationID:   locationID,
		Quantity:     req.Quantity,
		MovementType: inventory.MovementType(req.MovementType),
		DocumentType: req.DocumentType,
		DocumentID:   req.DocumentID,
		Reason:       req.Reason,
		UserID:       userID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// Receive godoc
// @ID           receiveInventoryPurchase
// @Summary      Receive purchased stock
// @Description  Add purchased stock and blend its unit cost into the weighted average cost
// @Description  of the item at the location.
// @Tags         inventory-stock
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        X-User-ID header string false "Acting user, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Param        request body ReceiveStockRequest true "Purchase receipt"
// @Success      201 {object} dto.Response{data=inventoryapp.ReceiveResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/stock/receive [post]
func (h *BalanceHandler) Receive(c *gin.Context) {
	tenantID, userID, ok := h.actor(c)
	if !ok {
		return
	}
	var req ReceiveStockRequest
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

	result, err := h.balances.ReceivePurchase(c.Request.Context(), tenantID, inventoryapp.ReceiveRequest{
		Item:         item,
		LocationID:   locationID,
		Quantity:     req.Quantity,
		UnitCost:     req.UnitCost,
		DocumentType: req.DocumentType,
		DocumentID:   req.DocumentID,
		Reason:       req.Reason,
		UserID:       userID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, result)
}
