package handler

import (
	"context"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BOMUseCases is the part of the BOM service the handler needs
type BOMUseCases interface {
	SetComponent(ctx context.Context, tenantID uuid.UUID, req inventoryapp.SetComponentRequest) (*inventoryapp.ComponentResponse, error)
	RemoveComponent(ctx context.Context, tenantID, parentID, componentID uuid.UUID) error
	Components(ctx context.Context, tenantID, parentID uuid.UUID) ([]inventoryapp.ComponentResponse, error)
	AvailableKits(ctx context.Context, tenantID, parentID uuid.UUID, locationID *uuid.UUID) (*inventoryapp.AvailableKitsResponse, error)
	AssembleKits(ctx context.Context, tenantID uuid.UUID, req inventoryapp.KitRequest) (*inventoryapp.KitResponse, error)
	DisassembleKits(ctx context.Context, tenantID uuid.UUID, req inventoryapp.KitRequest) (*inventoryapp.KitResponse, error)
}

// BOMHandler handles virtual kit definitions and kit assembly
type BOMHandler struct {
	BaseHandler
	bom BOMUseCases
}

// NewBOMHandler creates a new BOMHandler
func NewBOMHandler(bom BOMUseCases) *BOMHandler {
	return &BOMHandler{bom: bom}
}

// Components godoc
// @ID           listInventoryKitComponents
// @Summary      List kit components
// @Description  Return the components of a kit with the quantity each kit requires.
// @Tags         inventory-bom
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        parent_id path string true "Kit product ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]inventoryapp.ComponentResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/bom/{parent_id}/components [get]
func (h *BOMHandler) Components(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	parentID, ok := h.pathID(c, "parent_id")
	if !ok {
		return
	}
	components, err := h.bom.Components(c.Request.Context(), tenantID, parentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, components)
}

// SetComponent godoc
// @ID           setInventoryKitComponent
// @Summary      Set a kit component
// @Description  Create or update the quantity of a component in a kit. Both products must
// @Description  be active when reference checks are on.
// @Tags         inventory-bom
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        parent_id path string true "Kit product ID" format(uuid)
// @Param        component_id path string true "Component product ID" format(uuid)
// @Param        request body SetComponentBody true "Component quantity"
// @Success      200 {object} dto.Response{data=inventoryapp.ComponentResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/bom/{parent_id}/components/{component_id} [put]
func (h *BOMHandler) SetComponent(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	parentID, ok := h.pathID(c, "parent_id")
	if !ok {
		return
	}
	componentID, ok := h.pathID(c, "component_id")
	if !ok {
		return
	}
	var req SetComponentBody
	if !h.bindJSON(c, &req) {
		return
	}

	component, err := h.bom.SetComponent(c.Request.Context(), tenantID, inventoryapp.SetComponentRequest{
		ParentID:         parentID,
		ComponentID:      componentID,
		QuantityRequired: req.QuantityRequired,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, component)
}

// RemoveComponent godoc
// @ID           removeInventoryKitComponent
// @Summary      Remove a kit component
// @Description  Delete a component link.
// @Tags         inventory-bom
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        parent_id path string true "Kit product ID" format(uuid)
// @Param        component_id path string true "Component product ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/bom/{parent_id}/components/{component_id} [delete]
func (h *BOMHandler) RemoveComponent(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	parentID, ok := h.pathID(c, "parent_id")
	if !ok {
		return
	}
	componentID, ok := h.pathID(c, "component_id")
	if !ok {
		return
	}
	if err := h.bom.RemoveComponent(c.Request.Context(), tenantID, parentID, componentID); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// AvailableKits godoc
// @ID           getInventoryAvailableKits
// @Summary      Count buildable kits
// @Description  Compute how many whole kits the component stock can build, at one
// @Description  location or summed across all of them.
// @Tags         inventory-bom
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        parent_id path string true "Kit product ID" format(uuid)
// @Param        location_id query string false "Location ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.AvailableKitsResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/bom/{parent_id}/available-kits [get]
func (h *BOMHandler) AvailableKits(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	parentID, ok := h.pathID(c, "parent_id")
	if !ok {
		return
	}
	locationID, err := optionalUUID(c.Query("location_id"), "location_id")
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	result, err := h.bom.AvailableKits(c.Request.Context(), tenantID, parentID, locationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// Assemble godoc
// @ID           assembleInventoryKits
// @Summary      Assemble kits
// @Description  Consume the component stock of a whole number of kits at one location.
// @Tags         inventory-bom
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        X-User-ID header string false "Acting user, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Param        parent_id path string true "Kit product ID" format(uuid)
// @Param        request body KitOperationRequest true "Kits"
// @Success      200 {object} dto.Response{data=inventoryapp.KitResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/bom/{parent_id}/assemble [post]
func (h *BOMHandler) Assemble(c *gin.Context) {
	h.kitOperation(c, h.bom.AssembleKits)
}

// Disassemble godoc
// @ID           disassembleInventoryKits
// @Summary      Disassemble kits
// @Description  Return the component stock of a whole number of kits at one location.
// @Tags         inventory-bom
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID, when no bearer token is sent"
// @Param        X-User-ID header string false "Acting user, when no bearer token is sent"
// @Param        Idempotency-Key header string false "Replay guard for retried POSTs"
// @Param        parent_id path string true "Kit product ID" format(uuid)
// @Param        request body KitOperationRequest true "Kits"
// @Success      200 {object} dto.Response{data=inventoryapp.KitResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /inventory/bom/{parent_id}/disassemble [post]
func (h *BOMHandler) Disassemble(c *gin.Context) {
	h.kitOperation(c, h.bom.DisassembleKits)
}

func (h *BOMHandler) kitOperation(c *gin.Context, op func(ctx context.Context, tenantID uuid.UUID, req inventoryapp.KitRequest) (*inventoryapp.KitResponse, error)) {
	tenantID, userID, ok := h.actor(c)
	if !ok {
		return
	}
	parentID, ok := h.pathID(c, "parent_id")
	if !ok {
		return
	}
	var req KitOperationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	locationID, err := requiredUUID(req.LocationID, "location_id")
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := op(c.Request.Context(), tenantID, inventoryapp.KitRequest{
		ParentID:   parentID,
		LocationID: locationID,
		Kits:       req.Kits,
		Reason:     req.Reason,
		UserID:     userID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}
