package inventory

import (
	"context"

	"github.com/erp/stockengine/internal/domain/inventory"
)

// TransactionScope provides transactional access to inventory repositories.
// Every repository handed to fn shares one database transaction, committed when
// fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the inventory repositories within a transaction.
//
// Lock order inside a transaction:
//   - reservation row before balance row
//   - several balance rows sorted with BalanceKey.Less
type TransactionalRepositories interface {
	BalanceRepo() inventory.BalanceRepository
	LedgerRepo() inventory.LedgerRepository
	TransferRepo() inventory.TransferRepository
	AdjustmentRepo() inventory.AdjustmentRepository
	ReservationRepo() inventory.ReservationRepository
	CostRepo() inventory.CostRepository
	// SequenceRepo draws document numbers inside the transaction, so a rollback
	// returns the number
	SequenceRepo() inventory.SequenceGenerator
}

// Repositories is a plain set of repositories. It satisfies TransactionalRepositories
// and is what NoOpTransactionScope hands out.
type Repositories struct {
	Balances     inventory.BalanceRepository
	Ledger       inventory.LedgerRepository
	Transfers    inventory.TransferRepository
	Adjustments  inventory.AdjustmentRepository
	Reservations inventory.ReservationRepository
	Costs        inventory.CostRepository
	Sequences    inventory.SequenceGenerator
}

// BalanceRepo returns the balance repository
func (r *Repositories) BalanceRepo() inventory.BalanceRepository { return r.Balances }

// LedgerRepo returns the ledger repository
func (r *Repositories) LedgerRepo() inventory.LedgerRepository { return r.Ledger }

// TransferRepo returns the transfer repository
func (r *Repositories) TransferRepo() inventory.TransferRepository { return r.Transfers }

// AdjustmentRepo returns the adjustment repository
func (r *Repositories) AdjustmentRepo() inventory.AdjustmentRepository { return r.Adjustments }

// ReservationRepo returns the reservation repository
func (r *Repositories) ReservationRepo() inventory.ReservationRepository { return r.Reservations }

// CostRepo returns the cost repository
func (r *Repositories) CostRepo() inventory.CostRepository { return r.Costs }

// SequenceRepo returns the sequence generator
func (r *Repositories) SequenceRepo() inventory.SequenceGenerator { return r.Sequences }

// NoOpTransactionScope runs the function without a real transaction.
// This is useful for testing.
type NoOpTransactionScope struct {
	repos *Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(repos *Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*Repositories)(nil)
)
