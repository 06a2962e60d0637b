package catalog

import (
	"context"

	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/identity"
)

// ReferenceRepository defines dropdown storage operations.
type ReferenceRepository interface {
	// Create creates a new reference item.
	Create(ctx context.Context, item *ReferenceItem) error

	// GetByID retrieves a reference item by ID.
	GetByID(ctx context.Context, itemID id.ID) (*ReferenceItem, error)

	// Update updates a reference item with optimistic locking on version.
	Update(ctx context.Context, item *ReferenceItem) error

	// Delete removes a reference item.
	Delete(ctx context.Context, itemID id.ID) error

	// ListByKind retrieves the items of one dropdown, sorted by
	// sort order then name.
	ListByKind(ctx context.Context, kind Kind, includeInactive bool) ([]ReferenceItem, error)

	// ExistsCode reports whether a code is already taken within a kind.
	ExistsCode(ctx context.Context, kind Kind, code string) (bool, error)
}

// LocationRepository defines location tree storage operations.
type LocationRepository interface {
	// CreateZone creates a zone.
	CreateZone(ctx context.Context, zone *Zone) error

	// GetZone retrieves a zone by ID.
	GetZone(ctx context.Context, zoneID id.ID) (*Zone, error)

	// ListZones lists zones, optionally narrowed to a region.
	ListZones(ctx context.Context, region identity.Region) ([]Zone, error)

	// CreateCity creates a city.
	CreateCity(ctx context.Context, city *City) error

	// ListCities lists the cities of a zone.
	ListCities(ctx context.Context, zoneID id.ID) ([]City, error)
}
