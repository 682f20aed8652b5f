package inventory

import "github.com/erp/stockengine/internal/domain/shared"

// Engine errors. Callers match them with errors.Is; messages may be specialised
// with WithMessage without breaking the match.
var (
	ErrInvalidQuantity      = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	ErrInvalidCost          = shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	ErrInsufficientQuantity = shared.NewDomainError("INSUFFICIENT_QUANTITY", "Requested quantity exceeds the available amount")
	ErrInvalidItemReference = shared.NewDomainError("INVALID_ITEM_REFERENCE", "Exactly one of product or variant must be set")
	ErrLocationMismatch     = shared.NewDomainError("LOCATION_MISMATCH", "Origin and destination locations must differ")
	ErrBalanceIntegrity     = shared.NewDomainError("BALANCE_INTEGRITY", "Ledger replay disagrees with the cached balance")
	ErrConfiguration        = shared.NewDomainError("CONFIGURATION_ERROR", "Bill of materials is misconfigured")
	ErrInvalidReason        = shared.NewDomainError("INVALID_REASON", "Invalid adjustment reason")
	ErrInvalidLedgerEntry   = shared.NewDomainError("INVALID_LEDGER_ENTRY", "Ledger entry is invalid")
	ErrInactiveItem         = shared.NewDomainError("INACTIVE_ITEM", "Item is not active")
	ErrInactiveLocation     = shared.NewDomainError("INACTIVE_LOCATION", "Location is not active")
	ErrLocationRequired     = shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	ErrUserRequired         = shared.NewDomainError("INVALID_USER", "Acting user is required")
)
