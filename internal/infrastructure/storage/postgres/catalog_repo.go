package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/catalog"
	"visualeyes/internal/domain/identity"
)

const (
	referenceTable = "reference_items"
	zoneTable      = "zones"
	cityTable      = "cities"
)

var (
	_ catalog.ReferenceRepository = (*CatalogRepo)(nil)
	_ catalog.LocationRepository  = (*CatalogRepo)(nil)
)

// CatalogRepo implements catalog reference and location storage.
type CatalogRepo struct {
	txManager *TxManager
}

// NewCatalogRepo creates a catalog repository.
func NewCatalogRepo(txManager *TxManager) *CatalogRepo {
	return &CatalogRepo{txManager: txManager}
}

func (r *CatalogRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a reference item.
func (r *CatalogRepo) Create(ctx context.Context, item *catalog.ReferenceItem) error {
	sql, args, err := r.builder().
		Insert(referenceTable).
		SetMap(map[string]any{
			"id":          item.ID,
			"kind":        item.Kind,
			"code":        item.Code,
			"name":        item.Name,
			"description": item.Description,
			"sort_order":  item.SortOrder,
			"is_active":   item.IsActive,
			"created_at":  item.CreatedAt,
			"updated_at":  item.UpdatedAt,
			"version":     item.Version,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	q := r.txManager.GetQuerier(ctx)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return translateUniqueViolation(err)
	}
	return nil
}

// GetByID retrieves a reference item by ID.
func (r *CatalogRepo) GetByID(ctx context.Context, itemID id.ID) (*catalog.ReferenceItem, error) {
	sql, args, err := r.builder().
		Select("*").From(referenceTable).
		Where(squirrel.Eq{"id": itemID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var item catalog.ReferenceItem
	q := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, q, &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("reference item", itemID.String())
		}
		return nil, fmt.Errorf("query reference item: %w", err)
	}
	return &item, nil
}

// Update updates a reference item with optimistic locking on version.
func (r *CatalogRepo) Update(ctx context.Context, item *catalog.ReferenceItem) error {
	sql, args, err := r.builder().
		Update(referenceTable).
		SetMap(map[string]any{
			"code":        item.Code,
			"name":        item.Name,
			"description": item.Description,
			"sort_order":  item.SortOrder,
			"is_active":   item.IsActive,
		}).
		Set("updated_at", squirrel.Expr("now()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": item.ID, "version": item.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	q := r.txManager.GetQuerier(ctx)
	result, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return translateUniqueViolation(err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflict("reference item was modified concurrently").
			WithDetail("id", item.ID.String())
	}

	item.Version++
	return nil
}

// Delete removes a reference item.
func (r *CatalogRepo) Delete(ctx context.Context, itemID id.ID) error {
	sql, args, err := r.builder().
		Delete(referenceTable).
		Where(squirrel.Eq{"id": itemID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	q := r.txManager.GetQuerier(ctx)
	result, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete reference item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("reference item", itemID.String())
	}
	return nil
}

// ListByKind retrieves the items of one dropdown.
func (r *CatalogRepo) ListByKind(ctx context.Context, kind catalog.Kind, includeInactive bool) ([]catalog.ReferenceItem, error) {
	q := r.builder().
		Select("*").From(referenceTable).
		Where(squirrel.Eq{"kind": kind}).
		OrderBy("sort_order ASC", "name ASC")
	if !includeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	var items []catalog.ReferenceItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list reference items: %w", err)
	}
	return items, nil
}

// ExistsCode reports whether a code is already taken within a kind.
func (r *CatalogRepo) ExistsCode(ctx context.Context, kind catalog.Kind, code string) (bool, error) {
	sql, args, err := r.builder().
		Select("1").From(referenceTable).
		Where(squirrel.Eq{"kind": kind, "code": code}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	q := r.txManager.GetQuerier(ctx)
	err = q.QueryRow(ctx, sql, args...).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check code: %w", err)
}

// CreateZone creates a zone.
func (r *CatalogRepo) CreateZone(ctx context.Context, zone *catalog.Zone) error {
	sql, args, err := r.builder().
		Insert(zoneTable).
		SetMap(map[string]any{
			"id":         zone.ID,
			"name":       zone.Name,
			"region":     zone.Region,
			"is_active":  zone.IsActive,
			"created_at": zone.CreatedAt,
			"updated_at": zone.UpdatedAt,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	q := r.txManager.GetQuerier(ctx)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return translateUniqueViolation(err)
	}
	return nil
}

// GetZone retrieves a zone by ID.
func (r *CatalogRepo) GetZone(ctx context.Context, zoneID id.ID) (*catalog.Zone, error) {
	sql, args, err := r.builder().
		Select("*").From(zoneTable).
		Where(squirrel.Eq{"id": zoneID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var zone catalog.Zone
	q := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, q, &zone, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("zone", zoneID.String())
		}
		return nil, fmt.Errorf("query zone: %w", err)
	}
	return &zone, nil
}

// ListZones lists zones, optionally narrowed to a region.
func (r *CatalogRepo) ListZones(ctx context.Context, region identity.Region) ([]catalog.Zone, error) {
	q := r.builder().
		Select("*").From(zoneTable).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("name ASC")
	if region != "" {
		q = q.Where(squirrel.Eq{"region": region})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	var zones []catalog.Zone
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &zones, sql, args...); err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	return zones, nil
}

// CreateCity creates a city.
func (r *CatalogRepo) CreateCity(ctx context.Context, city *catalog.City) error {
	sql, args, err := r.builder().
		Insert(cityTable).
		SetMap(map[string]any{
			"id":         city.ID,
			"zone_id":    city.ZoneID,
			"name":       city.Name,
			"is_active":  city.IsActive,
			"created_at": city.CreatedAt,
			"updated_at": city.UpdatedAt,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	q := r.txManager.GetQuerier(ctx)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return translateUniqueViolation(err)
	}
	return nil
}

// ListCities lists the cities of a zone.
func (r *CatalogRepo) ListCities(ctx context.Context, zoneID id.ID) ([]catalog.City, error) {
	sql, args, err := r.builder().
		Select("*").From(cityTable).
		Where(squirrel.Eq{"zone_id": zoneID, "is_active": true}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	var cities []catalog.City
	q := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, q, &cities, sql, args...); err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}
