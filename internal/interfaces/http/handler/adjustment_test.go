package handler

import (
	"net/http"
	"testing"
	"time"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func adjustmentRouter(h *AdjustmentHandler) *gin.Engine {
	r := newEngine(testTenantID, testUserID)
	g := r.Group("/adjustments")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/frequent", h.Frequent)
	return r
}

func TestAdjustmentHandler_Create(t *testing.T) {
	variantID, locationID := uuid.New(), uuid.New()
	adjustments := new(mockAdjustments)
	adjustments.On("Adjust", mock.Anything, testTenantID, mock.MatchedBy(func(req inventoryapp.AdjustRequest) bool {
		return req.Item == inventory.VariantItem(variantID) &&
			req.LocationID == locationID &&
			req.Direction == inventory.AdjustmentDecrease &&
			req.Reason == inventory.ReasonDamage &&
			req.Quantity.Equal(decimal.NewFromInt(2)) &&
			req.Date != nil && req.Date.Equal(time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)) &&
			req.UserID == testUserID
	})).Return(&inventoryapp.AdjustmentResponse{Number: "ADJ-000001"}, nil)

	w := perform(t, adjustmentRouter(NewAdjustmentHandler(adjustments)), http.MethodPost, "/adjustments", map[string]any{
		"variant_id":      variantID,
		"location_id":     locationID,
		"direction":       "decrease",
		"quantity":        2,
		"reason":          "damage",
		"description":     "forklift",
		"adjustment_date": "2026-05-04",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var got inventoryapp.AdjustmentResponse
	decodeData(t, w, &got)
	assert.Equal(t, "ADJ-000001", got.Number)
	adjustments.AssertExpectations(t)
}

func TestAdjustmentHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown direction", map[string]any{"direction": "sideways", "reason": "loss"}},
		{"missing reason", map[string]any{"direction": "increase"}},
		{"bad date", map[string]any{"direction": "increase", "reason": "loss", "adjustment_date": "05/04/2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]any{"product_id": uuid.New(), "location_id": uuid.New(), "quantity": 1}
			for k, v := range tt.body {
				body[k] = v
			}
			adjustments := new(mockAdjustments)

			w := perform(t, adjustmentRouter(NewAdjustmentHandler(adjustments)), http.MethodPost, "/adjustments", body)

			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			adjustments.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAdjustmentHandler_Create_UnknownReason(t *testing.T) {
	adjustments := new(mockAdjustments)
	adjustments.On("Adjust", mock.Anything, testTenantID, mock.Anything).Return(nil, inventory.ErrInvalidReason)

	w := perform(t, adjustmentRouter(NewAdjustmentHandler(adjustments)), http.MethodPost, "/adjustments", map[string]any{
		"product_id":  uuid.New(),
		"location_id": uuid.New(),
		"direction":   "increase",
		"quantity":    1,
		"reason":      "gremlins",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
}

func TestAdjustmentHandler_List(t *testing.T) {
	adjustments := new(mockAdjustments)
	adjustments.On("ListAdjustments", mock.Anything, testTenantID, mock.MatchedBy(func(q inventoryapp.AdjustmentQuery) bool {
		return q.Direction != nil && *q.Direction == inventory.AdjustmentIncrease &&
			q.Reason != nil && *q.Reason == inventory.ReasonInventoryCount &&
			q.From != nil && q.To == nil &&
			q.Page == 3 && q.PageSize == 10
	})).Return([]inventoryapp.AdjustmentResponse{{}}, int64(21), nil)

	w := perform(t, adjustmentRouter(NewAdjustmentHandler(adjustments)), http.MethodGet,
		"/adjustments?direction=increase&reason=inventory_count&from=2026-01-01T00:00:00Z&page=3&page_size=10", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	assert.Equal(t, 3, env.Meta.TotalPages)
	adjustments.AssertExpectations(t)
}

func TestAdjustmentHandler_Frequent(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	adjustments := new(mockAdjustments)
	adjustments.On("FrequentAdjustments", mock.Anything, testTenantID, now).
		Return(&inventoryapp.FrequentAdjustmentReport{Threshold: 5, Flagged: 1}, nil)
	h := NewAdjustmentHandler(adjustments)
	h.now = func() time.Time { return now }

	w := perform(t, adjustmentRouter(h), http.MethodGet, "/adjustments/frequent", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got inventoryapp.FrequentAdjustmentReport
	decodeData(t, w, &got)
	assert.Equal(t, 1, got.Flagged)
	adjustments.AssertExpectations(t)
}
