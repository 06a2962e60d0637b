package catalog

import (
	"context"
	"fmt"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/identity"
	"visualeyes/pkg/logger"
)

// Service provides reference-data management. Reads are open to any
// authenticated principal; mutations require an admin tier.
type Service struct {
	refs      ReferenceRepository
	locations LocationRepository
	resolver  *identity.Resolver
}

// NewService creates a catalog service.
func NewService(refs ReferenceRepository, locations LocationRepository, resolver *identity.Resolver) *Service {
	return &Service{refs: refs, locations: locations, resolver: resolver}
}

// ItemRequest carries the fields for creating or updating a reference item.
type ItemRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	SortOrder   int    `json:"sortOrder"`
}

// CreateItem adds an entry to a dropdown.
func (s *Service) CreateItem(ctx context.Context, actor identity.Subject, kind Kind, req ItemRequest) (*ReferenceItem, error) {
	if err := s.resolver.CanAct(actor, identity.ActionCatalogManage, nil); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, apperror.NewValidation("unknown reference kind").WithDetail("kind", string(kind))
	}

	taken, err := s.refs.ExistsCode(ctx, kind, req.Code)
	if err != nil {
		return nil, fmt.Errorf("check code: %w", err)
	}
	if taken {
		return nil, apperror.NewDuplicateField("code")
	}

	item := NewReferenceItem(kind, req.Code, req.Name)
	item.Description = req.Description
	item.SortOrder = req.SortOrder

	if err := item.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.refs.Create(ctx, item); err != nil {
		return nil, err
	}

	logger.Info(ctx, "reference item created",
		"kind", kind, "code", item.Code, "created_by", actor.ID)
	return item, nil
}

// ListItems returns the entries of one dropdown.
func (s *Service) ListItems(ctx context.Context, kind Kind, includeInactive bool) ([]ReferenceItem, error) {
	if !kind.Valid() {
		return nil, apperror.NewValidation("unknown reference kind").WithDetail("kind", string(kind))
	}
	return s.refs.ListByKind(ctx, kind, includeInactive)
}

// UpdateItem updates a dropdown entry.
func (s *Service) UpdateItem(ctx context.Context, actor identity.Subject, itemID id.ID, req ItemRequest) (*ReferenceItem, error) {
	if err := s.resolver.CanAct(actor, identity.ActionCatalogManage, nil); err != nil {
		return nil, err
	}

	item, err := s.refs.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if req.Code != item.Code {
		taken, err := s.refs.ExistsCode(ctx, item.Kind, req.Code)
		if err != nil {
			return nil, fmt.Errorf("check code: %w", err)
		}
		if taken {
			return nil, apperror.NewDuplicateField("code")
		}
	}

	item.Code = req.Code
	item.Name = req.Name
	item.Description = req.Description
	item.SortOrder = req.SortOrder

	if err := item.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.refs.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes a dropdown entry.
func (s *Service) DeleteItem(ctx context.Context, actor identity.Subject, itemID id.ID) error {
	if err := s.resolver.CanAct(actor, identity.ActionCatalogManage, nil); err != nil {
		return err
	}
	if _, err := s.refs.GetByID(ctx, itemID); err != nil {
		return err
	}
	return s.refs.Delete(ctx, itemID)
}

// ZoneRequest carries the fields for creating a zone.
type ZoneRequest struct {
	Name   string          `json:"name" binding:"required"`
	Region identity.Region `json:"region" binding:"required"`
}

// CreateZone adds a zone to the location tree.
func (s *Service) CreateZone(ctx context.Context, actor identity.Subject, req ZoneRequest) (*Zone, error) {
	if err := s.resolver.CanAct(actor, identity.ActionCatalogManage, nil); err != nil {
		return nil, err
	}

	zone := NewZone(req.Name, req.Region)
	if err := zone.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.locations.CreateZone(ctx, zone); err != nil {
		return nil, err
	}

	logger.Info(ctx, "zone created", "zone", zone.Name, "region", zone.Region)
	return zone, nil
}

// ListZones lists zones, optionally narrowed to a region.
func (s *Service) ListZones(ctx context.Context, region identity.Region) ([]Zone, error) {
	if region != "" && !region.Valid() {
		return nil, apperror.NewValidation("unknown region").WithDetail("region", string(region))
	}
	return s.locations.ListZones(ctx, region)
}

// CityRequest carries the fields for creating a city.
type CityRequest struct {
	ZoneID id.ID  `json:"zoneId" binding:"required"`
	Name   string `json:"name" binding:"required"`
}

// CreateCity adds a city under an existing zone.
func (s *Service) CreateCity(ctx context.Context, actor identity.Subject, req CityRequest) (*City, error) {
	if err := s.resolver.CanAct(actor, identity.ActionCatalogManage, nil); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, apperror.NewValidation("city name is required").WithDetail("field", "name")
	}
	if _, err := s.locations.GetZone(ctx, req.ZoneID); err != nil {
		return nil, err
	}

	city := NewCity(req.ZoneID, req.Name)
	if err := s.locations.CreateCity(ctx, city); err != nil {
		return nil, err
	}
	return city, nil
}

// ListCities lists the cities of a zone.
func (s *Service) ListCities(ctx context.Context, zoneID id.ID) ([]City, error) {
	if _, err := s.locations.GetZone(ctx, zoneID); err != nil {
		return nil, err
	}
	return s.locations.ListCities(ctx, zoneID)
}
