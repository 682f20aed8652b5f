package inventory

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ItemKind tells whether a stocked item is a product or one of its variants
type ItemKind string

const (
	ItemKindProduct ItemKind = "product"
	ItemKindVariant ItemKind = "variant"
)

// String returns the string representation of ItemKind
func (k ItemKind) String() string {
	return string(k)
}

// IsValid returns true if the kind is known
func (k ItemKind) IsValid() bool {
	switch k {
	case ItemKindProduct, ItemKindVariant:
		return true
	}
	return false
}

// ItemRef identifies a stocked item. It is either a product or a variant, never both.
type ItemRef struct {
	Kind ItemKind  `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// ProductItem references a product
func ProductItem(id uuid.UUID) ItemRef {
	return ItemRef{Kind: ItemKindProduct, ID: id}
}

// VariantItem references a product variant
func VariantItem(id uuid.UUID) ItemRef {
	return ItemRef{Kind: ItemKindVariant, ID: id}
}

// NewItemRef builds a reference from the two optional identifiers used at the API
// boundary. Exactly one of them must be set.
func NewItemRef(productID, variantID *uuid.UUID) (ItemRef, error) {
	hasProduct := productID != nil && *productID != uuid.Nil
	hasVariant := variantID != nil && *variantID != uuid.Nil

	switch {
	case hasProduct && hasVariant:
		return ItemRef{}, ErrInvalidItemReference.WithMessage("Product and variant cannot both be set")
	case hasProduct:
		return ProductItem(*productID), nil
	case hasVariant:
		return VariantItem(*variantID), nil
	default:
		return ItemRef{}, ErrInvalidItemReference.WithMessage("Either product or variant must be set")
	}
}

// Validate checks the reference was built through one of the constructors
func (r ItemRef) Validate() error {
	if !r.Kind.IsValid() {
		return ErrInvalidItemReference.WithMessage(fmt.Sprintf("Unknown item kind %q", r.Kind))
	}
	if r.ID == uuid.Nil {
		return ErrInvalidItemReference.WithMessage("Item ID cannot be empty")
	}
	return nil
}

// ProductID returns the product id, or nil for a variant
func (r ItemRef) ProductID() *uuid.UUID {
	if r.Kind != ItemKindProduct {
		return nil
	}
	id := r.ID
	return &id
}

// VariantID returns the variant id, or nil for a product
func (r ItemRef) VariantID() *uuid.UUID {
	if r.Kind != ItemKindVariant {
		return nil
	}
	id := r.ID
	return &id
}

// String renders the reference as kind:id
func (r ItemRef) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}

// Compare orders references by kind, then id
func (r ItemRef) Compare(other ItemRef) int {
	if c := strings.Compare(string(r.Kind), string(other.Kind)); c != 0 {
		return c
	}
	return strings.Compare(r.ID.String(), other.ID.String())
}

// BalanceKey identifies one balance row: an item at a location
type BalanceKey struct {
	Item       ItemRef
	LocationID uuid.UUID
}

// NewBalanceKey validates and builds a key
func NewBalanceKey(item ItemRef, locationID uuid.UUID) (BalanceKey, error) {
	if err := item.Validate(); err != nil {
		return BalanceKey{}, err
	}
	if locationID == uuid.Nil {
		return BalanceKey{}, ErrLocationRequired
	}
	return BalanceKey{Item: item, LocationID: locationID}, nil
}

// Less gives the fixed lock order: item first, then location.
// Every operation touching several rows locks them in this order.
func (k BalanceKey) Less(other BalanceKey) bool {
	if c := k.Item.Compare(other.Item); c != 0 {
		return c < 0
	}
	return strings.Compare(k.LocationID.String(), other.LocationID.String()) < 0
}

// String renders the key for logs
func (k BalanceKey) String() string {
	return k.Item.String() + "@" + k.LocationID.String()
}
