package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/identity"
)

type fakeRefRepo struct {
	items map[id.ID]*ReferenceItem
}

func newFakeRefRepo() *fakeRefRepo {
	return &fakeRefRepo{items: make(map[id.ID]*ReferenceItem)}
}

func (r *fakeRefRepo) Create(_ context.Context, item *ReferenceItem) error {
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *fakeRefRepo) GetByID(_ context.Context, itemID id.ID) (*ReferenceItem, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("reference item", itemID.String())
	}
	clone := *item
	return &clone, nil
}

func (r *fakeRefRepo) Update(_ context.Context, item *ReferenceItem) error {
	if _, ok := r.items[item.ID]; !ok {
		return apperror.NewNotFound("reference item", item.ID.String())
	}
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *fakeRefRepo) Delete(_ context.Context, itemID id.ID) error {
	delete(r.items, itemID)
	return nil
}

func (r *fakeRefRepo) ListByKind(_ context.Context, kind Kind, includeInactive bool) ([]ReferenceItem, error) {
	var out []ReferenceItem
	for _, item := range r.items {
		if item.Kind != kind {
			continue
		}
		if !includeInactive && !item.IsActive {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (r *fakeRefRepo) ExistsCode(_ context.Context, kind Kind, code string) (bool, error) {
	for _, item := range r.items {
		if item.Kind == kind && item.Code == code {
			return true, nil
		}
	}
	return false, nil
}

type fakeLocationRepo struct {
	zones  map[id.ID]*Zone
	cities map[id.ID]*City
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{zones: make(map[id.ID]*Zone), cities: make(map[id.ID]*City)}
}

func (r *fakeLocationRepo) CreateZone(_ context.Context, zone *Zone) error {
	clone := *zone
	r.zones[zone.ID] = &clone
	return nil
}

func (r *fakeLocationRepo) GetZone(_ context.Context, zoneID id.ID) (*Zone, error) {
	zone, ok := r.zones[zoneID]
	if !ok {
		return nil, apperror.NewNotFound("zone", zoneID.String())
	}
	clone := *zone
	return &clone, nil
}

func (r *fakeLocationRepo) ListZones(_ context.Context, region identity.Region) ([]Zone, error) {
	var out []Zone
	for _, zone := range r.zones {
		if region != "" && zone.Region != region {
			continue
		}
		out = append(out, *zone)
	}
	return out, nil
}

func (r *fakeLocationRepo) CreateCity(_ context.Context, city *City) error {
	clone := *city
	r.cities[city.ID] = &clone
	return nil
}

func (r *fakeLocationRepo) ListCities(_ context.Context, zoneID id.ID) ([]City, error) {
	var out []City
	for _, city := range r.cities {
		if city.ZoneID == zoneID {
			out = append(out, *city)
		}
	}
	return out, nil
}

func admin() identity.Subject {
	return identity.Subject{ID: id.New(), Tier: identity.TierSubAdmin, Kind: identity.AccountEmployee}
}

func newCatalogService() (*Service, *fakeRefRepo, *fakeLocationRepo) {
	refs := newFakeRefRepo()
	locations := newFakeLocationRepo()
	return NewService(refs, locations, identity.NewResolver()), refs, locations
}

func TestCreateItem(t *testing.T) {
	svc, _, _ := newCatalogService()
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, admin(), KindBrand, ItemRequest{Code: "ESSILOR", Name: "Essilor"})
	require.NoError(t, err)
	assert.True(t, item.IsActive)

	t.Run("duplicate code within kind", func(t *testing.T) {
		_, err := svc.CreateItem(ctx, admin(), KindBrand, ItemRequest{Code: "ESSILOR", Name: "Other"})
		assert.True(t, apperror.IsCode(err, apperror.CodeDuplicateField))
	})

	t.Run("same code in another kind is fine", func(t *testing.T) {
		_, err := svc.CreateItem(ctx, admin(), KindLab, ItemRequest{Code: "ESSILOR", Name: "Essilor Lab"})
		assert.NoError(t, err)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := svc.CreateItem(ctx, admin(), Kind("frisbee"), ItemRequest{Code: "X", Name: "X"})
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("supervisor cannot mutate", func(t *testing.T) {
		supervisor := identity.Subject{
			ID: id.New(), Tier: identity.TierSupervisor,
			Department: identity.DeptLab, Region: identity.RegionNorth,
			Kind: identity.AccountEmployee,
		}
		_, err := svc.CreateItem(ctx, supervisor, KindBrand, ItemRequest{Code: "ZEISS", Name: "Zeiss"})
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})
}

func TestUpdateAndDeleteItem(t *testing.T) {
	svc, _, _ := newCatalogService()
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, admin(), KindCourierName, ItemRequest{Code: "BDART", Name: "Blue Dart"})
	require.NoError(t, err)

	updated, err := svc.UpdateItem(ctx, admin(), item.ID, ItemRequest{Code: "BDART", Name: "Blue Dart Express", SortOrder: 2})
	require.NoError(t, err)
	assert.Equal(t, "Blue Dart Express", updated.Name)
	assert.Equal(t, 2, updated.SortOrder)

	require.NoError(t, svc.DeleteItem(ctx, admin(), item.ID))
	_, err = svc.UpdateItem(ctx, admin(), item.ID, ItemRequest{Code: "BDART", Name: "x"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestLocationTree(t *testing.T) {
	svc, _, _ := newCatalogService()
	ctx := context.Background()

	zone, err := svc.CreateZone(ctx, admin(), ZoneRequest{Name: "Delhi NCR", Region: identity.RegionNorth})
	require.NoError(t, err)

	t.Run("zone requires valid region", func(t *testing.T) {
		_, err := svc.CreateZone(ctx, admin(), ZoneRequest{Name: "Nowhere", Region: "CENTRAL"})
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	city, err := svc.CreateCity(ctx, admin(), CityRequest{ZoneID: zone.ID, Name: "Gurugram"})
	require.NoError(t, err)

	t.Run("city requires existing zone", func(t *testing.T) {
		_, err := svc.CreateCity(ctx, admin(), CityRequest{ZoneID: id.New(), Name: "Ghost Town"})
		assert.True(t, apperror.IsNotFound(err))
	})

	cities, err := svc.ListCities(ctx, zone.ID)
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, city.ID, cities[0].ID)

	zones, err := svc.ListZones(ctx, identity.RegionNorth)
	require.NoError(t, err)
	assert.Len(t, zones, 1)
	zones, err = svc.ListZones(ctx, identity.RegionSouth)
	require.NoError(t, err)
	assert.Len(t, zones, 0)
}
