package handler

import (
	"net/http"
	"testing"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func bomRouter(bom *mockBOM) *gin.Engine {
	h := NewBOMHandler(bom)
	r := newEngine(testTenantID, testUserID)
	g := r.Group("/bom/:parent_id")
	g.GET("/components", h.Components)
	g.PUT("/components/:component_id", h.SetComponent)
	g.DELETE("/components/:component_id", h.RemoveComponent)
	g.GET("/available-kits", h.AvailableKits)
	g.POST("/assemble", h.Assemble)
	g.POST("/disassemble", h.Disassemble)
	return r
}

func TestBOMHandler_SetComponent(t *testing.T) {
	parentID, componentID := uuid.New(), uuid.New()
	bom := new(mockBOM)
	bom.On("SetComponent", mock.Anything, testTenantID, mock.MatchedBy(func(req inventoryapp.SetComponentRequest) bool {
		return req.ParentID == parentID && req.ComponentID == componentID &&
			req.QuantityRequired.Equal(decimal.NewFromInt(2))
	})).Return(&inventoryapp.ComponentResponse{ParentID: parentID, ComponentID: componentID}, nil)

	w := perform(t, bomRouter(bom), http.MethodPut,
		"/bom/"+parentID.String()+"/components/"+componentID.String(), map[string]any{"quantity_required": 2})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	bom.AssertExpectations(t)
}

func TestBOMHandler_SetComponent_SelfReference(t *testing.T) {
	parentID := uuid.New()
	bom := new(mockBOM)
	bom.On("SetComponent", mock.Anything, testTenantID, mock.Anything).Return(nil, inventory.ErrConfiguration)

	w := perform(t, bomRouter(bom), http.MethodPut,
		"/bom/"+parentID.String()+"/components/"+parentID.String(), map[string]any{"quantity_required": 1})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeConfiguration, errorCode(t, w))
}

func TestBOMHandler_SetComponent_ZeroQuantity(t *testing.T) {
	w := perform(t, bomRouter(new(mockBOM)), http.MethodPut,
		"/bom/"+uuid.NewString()+"/components/"+uuid.NewString(), map[string]any{"quantity_required": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBOMHandler_ComponentsAndRemove(t *testing.T) {
	parentID, componentID := uuid.New(), uuid.New()
	bom := new(mockBOM)
	bom.On("Components", mock.Anything, testTenantID, parentID).
		Return([]inventoryapp.ComponentResponse{{ComponentID: componentID}}, nil)
	bom.On("RemoveComponent", mock.Anything, testTenantID, parentID, componentID).Return(nil).Once()
	bom.On("RemoveComponent", mock.Anything, testTenantID, parentID, componentID).Return(shared.ErrNotFound)
	r := bomRouter(bom)

	w := perform(t, r, http.MethodGet, "/bom/"+parentID.String()+"/components", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got []inventoryapp.ComponentResponse
	decodeData(t, w, &got)
	assert.Len(t, got, 1)

	path := "/bom/" + parentID.String() + "/components/" + componentID.String()
	w = perform(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = perform(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBOMHandler_AvailableKits(t *testing.T) {
	parentID, locationID := uuid.New(), uuid.New()
	bom := new(mockBOM)
	bom.On("AvailableKits", mock.Anything, testTenantID, parentID, (*uuid.UUID)(nil)).
		Return(&inventoryapp.AvailableKitsResponse{AvailableKits: decimal.NewFromInt(7)}, nil)
	bom.On("AvailableKits", mock.Anything, testTenantID, parentID, &locationID).
		Return(&inventoryapp.AvailableKitsResponse{AvailableKits: decimal.NewFromInt(2)}, nil)
	r := bomRouter(bom)

	w := perform(t, r, http.MethodGet, "/bom/"+parentID.String()+"/available-kits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all inventoryapp.AvailableKitsResponse
	decodeData(t, w, &all)
	assert.True(t, decimal.NewFromInt(7).Equal(all.AvailableKits))

	w = perform(t, r, http.MethodGet, "/bom/"+parentID.String()+"/available-kits?location_id="+locationID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var one inventoryapp.AvailableKitsResponse
	decodeData(t, w, &one)
	assert.True(t, decimal.NewFromInt(2).Equal(one.AvailableKits))

	w = perform(t, r, http.MethodGet, "/bom/"+parentID.String()+"/available-kits?location_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBOMHandler_KitOperations(t *testing.T) {
	routes := map[string]string{
		"assemble":    "AssembleKits",
		"disassemble": "DisassembleKits",
	}

	for path, method := range routes {
		t.Run(path, func(t *testing.T) {
			parentID, locationID := uuid.New(), uuid.New()
			bom := new(mockBOM)
			bom.On(method, mock.Anything, testTenantID, mock.MatchedBy(func(req inventoryapp.KitRequest) bool {
				return req.ParentID == parentID && req.LocationID == locationID &&
					req.Kits.Equal(decimal.NewFromInt(3)) && req.UserID == testUserID
			})).Return(&inventoryapp.KitResponse{Kits: decimal.NewFromInt(3)}, nil)

			w := perform(t, bomRouter(bom), http.MethodPost, "/bom/"+parentID.String()+"/"+path, map[string]any{
				"location_id": locationID,
				"kits":        3,
			})

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			bom.AssertExpectations(t)
		})
	}
}
