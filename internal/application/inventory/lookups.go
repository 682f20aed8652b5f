package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/google/uuid"
)

// collaborators checks items and locations owned outside the engine.
// A nil lookup skips its check.
type collaborators struct {
	items     inventory.ItemLookup
	locations inventory.LocationLookup
}

// SetLookups turns on the reference checks of the service. Either lookup may be nil.
func (c *collaborators) SetLookups(items inventory.ItemLookup, locations inventory.LocationLookup) {
	c.items = items
	c.locations = locations
}

// requireActive checks an item and the locations it is moved at
func (c collaborators) requireActive(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationIDs ...uuid.UUID) error {
	if err := c.requireActiveItem(ctx, tenantID, item); err != nil {
		return err
	}
	return c.requireActiveLocations(ctx, tenantID, locationIDs...)
}

func (c collaborators) requireActiveItem(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef) error {
	if c.items == nil {
		return nil
	}
	info, err := c.items.GetItem(ctx, tenantID, item)
	if err != nil {
		return err
	}
	if !info.Active {
		return inventory.ErrInactiveItem.WithMessage(fmt.Sprintf("Item %s is not active", item))
	}
	return nil
}

func (c collaborators) requireActiveLocations(ctx context.Context, tenantID uuid.UUID, locationIDs ...uuid.UUID) error {
	if c.locations == nil {
		return nil
	}
	for _, id := range locationIDs {
		info, err := c.locations.GetLocation(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !info.Active {
			return inventory.ErrInactiveLocation.WithMessage(fmt.Sprintf("Location %s is not active", id))
		}
	}
	return nil
}
