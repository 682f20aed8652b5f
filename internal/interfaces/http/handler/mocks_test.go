package handler

import (
	"context"
	"time"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockBalances struct{ mock.Mock }

func (m *mockBalances) GetBalance(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) (*inventoryapp.BalanceResponse, error) {
	args := m.Called(ctx, tenantID, item, locationID)
	resp, _ := args.Get(0).(*inventoryapp.BalanceResponse)
	return resp, args.Error(1)
}

func (m *mockBalances) ListBalances(ctx context.Context, tenantID uuid.UUID, query inventoryapp.BalanceQuery) ([]inventoryapp.BalanceResponse, int64, error) {
	args := m.Called(ctx, tenantID, query)
	resp, _ := args.Get(0).([]inventoryapp.BalanceResponse)
	return resp, args.Get(1).(int64), args.Error(2)
}

func (m *mockBalances) BelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]inventoryapp.BalanceResponse, error) {
	args := m.Called(ctx, tenantID)
	resp, _ := args.Get(0).([]inventoryapp.BalanceResponse)
	return resp, args.Error(1)
}

func (m *mockBalances) mutation(name string, ctx context.Context, tenantID uuid.UUID, req inventoryapp.MutationRequest) (*inventoryapp.MutationResponse, error) {
	args := m.MethodCalled(name, ctx, tenantID, req)
	resp, _ := args.Get(0).(*inventoryapp.MutationResponse)
	return resp, args.Error(1)
}

func (m *mockBalances) Increase(ctx context.Context, tenantID uuid.UUID, req inventoryapp.MutationRequest) (*inventoryapp.MutationResponse, error) {
	return m.mutation("Increase", ctx, tenantID, req)
}

func (m *mockBalances) Decrease(ctx context.Context, tenantID uuid.UUID, req inventoryapp.MutationRequest) (*inventoryapp.MutationResponse, error) {
	return m.mutation("Decrease", ctx, tenantID, req)
}

func (m *mockBalances) SetLevels(ctx context.Context, tenantID uuid.UUID, req inventoryapp.SetLevelsRequest) (*inventoryapp.BalanceResponse, error) {
	args := m.Called(ctx, tenantID, req)
	resp, _ := args.Get(0).(*inventoryapp.BalanceResponse)
	return resp, args.Error(1)
}

func (m *mockBalances) ReceivePurchase(ctx context.Context, tenantID uuid.UUID, req inventoryapp.ReceiveRequest) (*inventoryapp.ReceiveResponse, error) {
	args := m.Called(ctx, tenantID, req)
	resp, _ := args.Get(0).(*inventoryapp.ReceiveResponse)
	return resp, args.Error(1)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) Query(ctx context.Context, tenantID uuid.UUID, query inventoryapp.LedgerQuery) ([]inventoryapp.LedgerEntryResponse, int64, error) {
	args := m.Called(ctx, tenantID, query)
	resp, _ := args.Get(0).([]inventoryapp.LedgerEntryResponse)
	return resp, args.Get(1).(int64), args.Error(2)
}

func (m *mockLedger) ByDocument(ctx context.Context, tenantID uuid.UUID, documentType, documentID string) ([]inventoryapp.LedgerEntryResponse, error) {
	args := m.Called(ctx, tenantID, documentType, documentID)
	resp, _ := args.Get(0).([]inventoryapp.LedgerEntryResponse)
	return resp, args.Error(1)
}

func (m *mockLedger) Timeline(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) ([]inventoryapp.LedgerEntryResponse, error) {
	args := m.Called(ctx, tenantID, item, locationID)
	resp, _ := args.Get(0).([]inventoryapp.LedgerEntryResponse)
	return resp, args.Error(1)
}

func (m *mockLedger) Latest(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) (*inventoryapp.LedgerEntryResponse, error) {
	args := m.Called(ctx, tenantID, item, locationID)
	resp, _ := args.Get(0).(*inventoryapp.LedgerEntryResponse)
	return resp, args.Error(1)
}

func (m *mockLedger) ValidateBalanceConsistency(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) (*inventoryapp.ConsistencyReport, error) {
	args := m.Called(ctx, tenantID, item, locationID)
	resp, _ := args.Get(0).(*inventoryapp.ConsistencyReport)
	return resp, args.Error(1)
}

type mockTransfers struct{ mock.Mock }

func (m *mockTransfers) Transfer(ctx context.Context, tenantID uuid.UUID, req inventoryapp.TransferRequest) (*inventoryapp.TransferResponse, error) {
	args := m.Called(ctx, tenantID, req)
	resp, _ := args.Get(0).(*inventoryapp.TransferResponse)
	return resp, args.Error(1)
}

func (m *mockTransfers) Cancel(ctx context.Context, tenantID, transferID, userID uuid.UUID) (*inventoryapp.TransferResponse, error) {
	args := m.Called(ctx, tenantID, transferID, userID)
	resp, _ := args.Get(0).(*inventoryapp.TransferResponse)
	return resp, args.Error(1)
}

func (m *mockTransfers) GetTransfer(ctx context.Context, tenantID, transferID uuid.UUID) (*inventoryapp.TransferResponse, error) {
	args := m.Called(ctx, tenantID, transferID)
	resp, _ := args.Get(0).(*inventoryapp.TransferResponse)
	return resp, args.Error(1)
}

func (m *mockTransfers) ListTransfers(ctx context.Context, tenantID uuid.UUID, query inventoryapp.TransferQuery) ([]inventoryapp.TransferResponse, int64, error) {
	args := m.Called(ctx, tenantID, query)
	resp, _ := args.Get(0).([]inventoryapp.TransferResponse)
	return resp, args.Get(1).(int64), args.Error(2)
}

type mockAdjustments struct{ mock.Mock }

func (m *mockAdjustments) Adjust(ctx context.Context, tenantID uuid.UUID, req inventoryapp.AdjustRequest) (*inventoryapp.AdjustmentResponse, error) {
	args := m.Called(ctx, tenantID, req)
	resp, _ := args.Get(0).(*inventoryapp.AdjustmentResponse)
	return resp, args.Error(1)
}

func (m *mockAdjustments) ListAdjustments(ctx context.Context, tenantID uuid.UUID, query inventoryapp.AdjustmentQuery) ([]inventoryapp.AdjustmentResponse, int64, error) {
	args := m.Called(ctx, tenantID, query)
	resp, _ := args.Get(0).([]inventoryapp.AdjustmentResponse)
	return resp, args.Get(1).(int64), args.Error(2)
}

func (m *mockAdjustments) FrequentAdjustments(ctx context.Context, tenantID uuid.UUID, now time.Time) (*inventoryapp.FrequentAdjustmentReport, error) {
	args := m.Called(ctx, tenantID, now)
	resp, _ := args.Get(0).(*inventoryapp.FrequentAdjustmentReport)
	return resp, args.Error(1)
}

type mockReservations struct{ mock.Mock }

func (m *mockReservations) Reserve(ctx context.Context, tenantID uuid.UUID, req inventoryapp.ReserveRequest) (*inventoryapp.ReservationResponse, error) {
	args := m.Called(ctx, tenantID, req)
	resp, _ := args.Get(0).(*inventoryapp.ReservationResponse)
	return resp, args.Error(1)
}

func (m *mockReservations) Release(ctx context.Context, tenantID, reservationID, userID uuid.UUID) (*inventoryapp.ReservationResponse, error) {
	args := m.Called(ctx, tenantID, reservationID, userID)
	resp, _ := args.Get(0).(*inventoryapp.ReservationResponse)
	return resp, args.Error(1)
}

func (m *mockReservations) Fulfill(ctx context.Context, tenantID, reservationID, userID uuid.UUID) (*inventoryapp.ReservationResponse, error) {
	args := m.Called(ctx, tenantID, reservationID, userID)
	resp, _ := args.Get(0).(*inventoryapp.ReservationResponse)
	return resp, args.Error(1)
}

func (m *mockReservations) Get(ctx context.Context, tenantID, reservationID uuid.UUID) (*inventoryapp.ReservationResponse, error) {
	args := m.Called(ctx, tenantID, reservationID)
	resp, _ := args.Get(0).(*inventoryapp.ReservationResponse)
	return resp, args.Error(1)
}

func (m *mockReservations) List(ctx context.Context, tenantID uuid.UUID, query inventoryapp.ReservationQuery) ([]inventoryapp.ReservationResponse, int64, error) {
	args := m.Called(ctx, tenantID, query)
	resp, _ := args.Get(0).([]inventoryapp.ReservationResponse)
	return resp, args.Get(1).(int64), args.Error(2)
}

func (m *mockReservations) ReleaseExpired(ctx context.Context, tenantID uuid.UUID, now time.Time) (*inventoryapp.SweepStats, error) {
	args := m.Called(ctx, tenantID, now)
	resp, _ := args.Get(0).(*inventoryapp.SweepStats)
	return resp, args.Error(1)
}

type mockBOM struct{ mock.Mock }

func (m *mockBOM) SetComponent(ctx context.Context, tenantID uuid.UUID, req inventoryapp.SetComponentRequest) (*inventoryapp.ComponentResponse, error) {
	args := m.Called(ctx, tenantID, req)
	resp, _ := args.Get(0).(*inventoryapp.ComponentResponse)
	return resp, args.Error(1)
}

func (m *mockBOM) RemoveComponent(ctx context.Context, tenantID, parentID, componentID uuid.UUID) error {
	return m.Called(ctx, tenantID, parentID, componentID).Error(0)
}

func (m *mockBOM) Components(ctx context.Context, tenantID, parentID uuid.UUID) ([]inventoryapp.ComponentResponse, error) {
	args := m.Called(ctx, tenantID, parentID)
	resp, _ := args.Get(0).([]inventoryapp.ComponentResponse)
	return resp, args.Error(1)
}

func (m *mockBOM) AvailableKits(ctx context.Context, tenantID, parentID uuid.UUID, locationID *uuid.UUID) (*inventoryapp.AvailableKitsResponse, error) {
	args := m.Called(ctx, tenantID, parentID, locationID)
	resp, _ := args.Get(0).(*inventoryapp.AvailableKitsResponse)
	return resp, args.Error(1)
}

func (m *mockBOM) kit(name string, ctx context.Context, tenantID uuid.UUID, req inventoryapp.KitRequest) (*inventoryapp.KitResponse, error) {
	args := m.MethodCalled(name, ctx, tenantID, req)
	resp, _ := args.Get(0).(*inventoryapp.KitResponse)
	return resp, args.Error(1)
}

func (m *mockBOM) AssembleKits(ctx context.Context, tenantID uuid.UUID, req inventoryapp.KitRequest) (*inventoryapp.KitResponse, error) {
	return m.kit("AssembleKits", ctx, tenantID, req)
}

func (m *mockBOM) DisassembleKits(ctx context.Context, tenantID uuid.UUID, req inventoryapp.KitRequest) (*inventoryapp.KitResponse, error) {
	return m.kit("DisassembleKits", ctx, tenantID, req)
}

type mockHealth struct{ mock.Mock }

func (m *mockHealth) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockHealth) Stats() (persistence.ConnectionStats, error) {
	args := m.Called()
	return args.Get(0).(persistence.ConnectionStats), args.Error(1)
}
