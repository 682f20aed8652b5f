package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentDirection tells whether an adjustment adds or removes stock
type AdjustmentDirection string

const (
	AdjustmentIncrease AdjustmentDirection = "increase"
	AdjustmentDecrease AdjustmentDirection = "decrease"
)

// String returns the string representation of AdjustmentDirection
func (d AdjustmentDirection) String() string {
	return string(d)
}

// IsValid returns true if the direction is known
func (d AdjustmentDirection) IsValid() bool {
	return d == AdjustmentIncrease || d == AdjustmentDecrease
}

// AdjustmentReason is the reason code of a manual adjustment
type AdjustmentReason string

const (
	ReasonInventoryCount AdjustmentReason = "inventory_count"
	ReasonLoss           AdjustmentReason = "loss"
	ReasonDamage         AdjustmentReason = "damage"
	ReasonTheft          AdjustmentReason = "theft"
	ReasonDataEntryError AdjustmentReason = "data_entry_error"
	ReasonOther          AdjustmentReason = "other"
)

// String returns the string representation of AdjustmentReason
func (r AdjustmentReason) String() string {
	return string(r)
}

// IsValid returns true if the reason is known
func (r AdjustmentReason) IsValid() bool {
	switch r {
	case ReasonInventoryCount, ReasonLoss, ReasonDamage, ReasonTheft, ReasonDataEntryError, ReasonOther:
		return true
	}
	return false
}

// RequiresDescription returns true if the reason needs a free-text description
func (r AdjustmentReason) RequiresDescription() bool {
	return r == ReasonOther
}

// DefaultAdjustmentPrefix prefixes adjustment numbers
const DefaultAdjustmentPrefix = "ADJ"

// AdjustmentSequenceScope is the sequence scope used for adjustment numbers
const AdjustmentSequenceScope = "adjustment"

// AdjustmentPeriod returns the numbering period of a date: its calendar month as YYYYMM
func AdjustmentPeriod(at time.Time) string {
	return at.Format("200601")
}

// FormatAdjustmentNumber renders prefix-YYYYMM-NNNN
func FormatAdjustmentNumber(prefix, period string, seq int64) string {
	if prefix == "" {
		prefix = DefaultAdjustmentPrefix
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, period, seq)
}

// Adjustment is a numbered manual correction of stock
type Adjustment struct {
	shared.BaseEntity
	TenantID       uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:uq_adjustment_number,priority:1;index:idx_adjustment_tenant_date,priority:1"`
	Number         string              `gorm:"type:varchar(40);not null;uniqueIndex:uq_adjustment_number,priority:2"`
	ItemKind       ItemKind            `gorm:"type:varchar(10);not null"`
	ItemID         uuid.UUID           `gorm:"type:uuid;not null;index"`
	LocationID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	Direction      AdjustmentDirection `gorm:"type:varchar(10);not null"`
	Quantity       decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	Reason         AdjustmentReason    `gorm:"type:varchar(30);not null;index"`
	Description    string              `gorm:"type:varchar(500)"`
	UserID         uuid.UUID           `gorm:"type:uuid;not null;index"`
	AdjustmentDate time.Time           `gorm:"not null;index:idx_adjustment_tenant_date,priority:2"`
	BalanceBefore  decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	BalanceAfter   decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (Adjustment) TableName() string {
	return "inventory_adjustments"
}

// AdjustmentInput carries the fields of a new adjustment
type AdjustmentInput struct {
	Key         BalanceKey
	Direction   AdjustmentDirection
	Quantity    decimal.Decimal
	Reason      AdjustmentReason
	Description string
	UserID      uuid.UUID
	Date        time.Time
}

// Validate checks an adjustment request before any stock is touched
func (in AdjustmentInput) Validate() error {
	if err := in.Key.Item.Validate(); err != nil {
		return err
	}
	if in.Key.LocationID == uuid.Nil {
		return ErrLocationRequired
	}
	if !in.Direction.IsValid() {
		return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("Unknown adjustment direction %q", in.Direction))
	}
	if err := ValidateQuantity(in.Quantity); err != nil {
		return err
	}
	if !in.Reason.IsValid() {
		return ErrInvalidReason.WithMessage(fmt.Sprintf("Unknown adjustment reason %q", in.Reason))
	}
	if in.Reason.RequiresDescription() && strings.TrimSpace(in.Description) == "" {
		return ErrInvalidReason.WithMessage("A description is required when the reason is other")
	}
	if in.UserID == uuid.Nil {
		return ErrUserRequired
	}
	return nil
}

// NewAdjustment creates the adjustment record from a validated input and the
// balance change it produced
func NewAdjustment(tenantID uuid.UUID, number string, in AdjustmentInput, change BucketChange) (*Adjustment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if number == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Adjustment number cannot be empty")
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	return &Adjustment{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       tenantID,
		Number:         number,
		ItemKind:       in.Key.Item.Kind,
		ItemID:         in.Key.Item.ID,
		LocationID:     in.Key.LocationID,
		Direction:      in.Direction,
		Quantity:       in.Quantity,
		Reason:         in.Reason,
		Description:    strings.TrimSpace(in.Description),
		UserID:         in.UserID,
		AdjustmentDate: date,
		BalanceBefore:  change.Before,
		BalanceAfter:   change.After(),
	}, nil
}

// Item returns the item reference of the adjustment
func (a *Adjustment) Item() ItemRef {
	return ItemRef{Kind: a.ItemKind, ID: a.ItemID}
}

// LedgerReason is the text written on the ledger entry of the adjustment
func (a *Adjustment) LedgerReason() string {
	if a.Description == "" {
		return a.Reason.String()
	}
	return a.Reason.String() + ": " + a.Description
}

// Default window and threshold of the frequent adjustment report
const (
	DefaultFrequentAdjustmentWindow    = 30 * 24 * time.Hour
	DefaultFrequentAdjustmentThreshold = 3
)

// AdjustmentGroup is the number of adjustments of one item at one location in a window
type AdjustmentGroup struct {
	ItemKind      ItemKind
	ItemID        uuid.UUID
	LocationID    uuid.UUID
	Count         int64
	TotalIncrease decimal.Decimal
	TotalDecrease decimal.Decimal
	LastAdjusted  time.Time
}

// FrequentAdjustment is a report line: a group and whether it looks abnormal
type FrequentAdjustment struct {
	AdjustmentGroup
	Flagged bool
}

// FlagFrequentAdjustments marks groups with at least threshold adjustments.
// Flagged groups come first, then by descending count.
func FlagFrequentAdjustments(groups []AdjustmentGroup, threshold int64) []FrequentAdjustment {
	if threshold <= 0 {
		threshold = DefaultFrequentAdjustmentThreshold
	}
	out := make([]FrequentAdjustment, 0, len(groups))
	for _, g := range groups {
		out = append(out, FrequentAdjustment{AdjustmentGroup: g, Flagged: g.Count >= threshold})
	}
	sortFrequent(out)
	return out
}

func sortFrequent(lines []FrequentAdjustment) {
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Flagged != lines[j].Flagged {
			return lines[i].Flagged
		}
		return lines[i].Count > lines[j].Count
	})
}
