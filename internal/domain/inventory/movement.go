package inventory

import "github.com/google/uuid"

// MovementType represents the kind of a ledger movement
type MovementType string

const (
	MovementEntry          MovementType = "entry"
	MovementExit           MovementType = "exit"
	MovementTransferIn     MovementType = "transfer_in"
	MovementTransferOut    MovementType = "transfer_out"
	MovementAdjustment     MovementType = "adjustment"
	MovementSale           MovementType = "sale"
	MovementPurchase       MovementType = "purchase"
	MovementReserve        MovementType = "reserve"
	MovementRelease        MovementType = "release"
	MovementBOMAssembly    MovementType = "bom_assembly"
	MovementBOMDisassembly MovementType = "bom_disassembly"
)

// AllMovementTypes returns every movement type
func AllMovementTypes() []MovementType {
	return []MovementType{
		MovementEntry,
		MovementExit,
		MovementTransferIn,
		MovementTransferOut,
		MovementAdjustment,
		MovementSale,
		MovementPurchase,
		MovementReserve,
		MovementRelease,
		MovementBOMAssembly,
		MovementBOMDisassembly,
	}
}

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementEntry,
		MovementExit,
		MovementTransferIn,
		MovementTransferOut,
		MovementAdjustment,
		MovementSale,
		MovementPurchase,
		MovementReserve,
		MovementRelease,
		MovementBOMAssembly,
		MovementBOMDisassembly:
		return true
	}
	return false
}

// Bucket returns the balance quantity this movement type changes
func (t MovementType) Bucket() Bucket {
	switch t {
	case MovementReserve, MovementRelease:
		return BucketReserved
	default:
		return BucketAvailable
	}
}

// IsIncrease returns true if this movement type only ever adds to its bucket
func (t MovementType) IsIncrease() bool {
	switch t {
	case MovementEntry,
		MovementTransferIn,
		MovementPurchase,
		MovementReserve,
		MovementBOMDisassembly:
		return true
	}
	return false
}

// IsDecrease returns true if this movement type only ever takes from its bucket
func (t MovementType) IsDecrease() bool {
	switch t {
	case MovementExit,
		MovementTransferOut,
		MovementSale,
		MovementRelease,
		MovementBOMAssembly:
		return true
	}
	return false
}

// AcceptsSign reports whether a signed quantity is allowed for this type.
// Adjustments go both ways; every other type has a fixed direction.
func (t MovementType) AcceptsSign(positive bool) bool {
	switch {
	case t.IsIncrease():
		return positive
	case t.IsDecrease():
		return !positive
	default:
		return t == MovementAdjustment
	}
}

// Bucket names one of the two quantities held by a balance
type Bucket string

const (
	BucketAvailable Bucket = "available"
	BucketReserved  Bucket = "reserved"
)

// String returns the string representation of Bucket
func (b Bucket) String() string {
	return string(b)
}

// Document types written by the engine itself. Collaborators may use their own
// (for example sales_order or purchase_receipt).
const (
	DocumentTypeTransfer             = "transfer"
	DocumentTypeTransferCancellation = "transfer_cancellation"
	DocumentTypeAdjustment           = "adjustment"
	DocumentTypeReservation          = "reservation"
	DocumentTypeBOM                  = "bom"
)

// ReasonAutoReleaseExpired is written on releases performed by the expiry sweep
const ReasonAutoReleaseExpired = "auto-release-expired"

// SystemUserID is the acting user of movements the engine performs on its own
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
