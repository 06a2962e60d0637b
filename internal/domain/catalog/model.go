// Package catalog provides the reference data used by order entry:
// kind-keyed dropdown items and the Zone → City location tree.
package catalog

import (
	"context"
	"time"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/identity"
)

// Kind identifies one dropdown table.
type Kind string

const (
	KindBrand           Kind = "brand"
	KindCategory        Kind = "category"
	KindCustomerType    Kind = "customer-type"
	KindGSTType         Kind = "gst-type"
	KindCreditDay       Kind = "credit-day"
	KindCourierName     Kind = "courier-name"
	KindCourierTime     Kind = "courier-time"
	KindBillingCurrency Kind = "billing-currency"
	KindFittingCenter   Kind = "fitting-center"
	KindLab             Kind = "lab"
	KindPlant           Kind = "plant"
	KindOrderMode       Kind = "order-mode"
)

var allKinds = map[Kind]bool{
	KindBrand: true, KindCategory: true, KindCustomerType: true,
	KindGSTType: true, KindCreditDay: true, KindCourierName: true,
	KindCourierTime: true, KindBillingCurrency: true,
	KindFittingCenter: true, KindLab: true, KindPlant: true,
	KindOrderMode: true,
}

// Valid reports whether k is a known dropdown kind.
func (k Kind) Valid() bool {
	return allKinds[k]
}

// ReferenceItem is one entry of a dropdown table.
type ReferenceItem struct {
	ID          id.ID     `db:"id" json:"id"`
	Kind        Kind      `db:"kind" json:"kind"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	SortOrder   int       `db:"sort_order" json:"sortOrder"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
	Version     int       `db:"version" json:"version"`
}

// NewReferenceItem creates an active reference item.
func NewReferenceItem(kind Kind, code, name string) *ReferenceItem {
	now := time.Now()
	return &ReferenceItem{
		ID:        id.New(),
		Kind:      kind,
		Code:      code,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Validate enforces the structural invariants of a reference item.
func (r *ReferenceItem) Validate(ctx context.Context) error {
	if !r.Kind.Valid() {
		return apperror.NewValidation("unknown reference kind").WithDetail("field", "kind")
	}
	if r.Code == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	if r.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}

// Zone groups cities inside one of the four fixed regions.
type Zone struct {
	ID        id.ID           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Region    identity.Region `db:"region" json:"region"`
	IsActive  bool            `db:"is_active" json:"isActive"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// NewZone creates an active zone.
func NewZone(name string, region identity.Region) *Zone {
	now := time.Now()
	return &Zone{
		ID:        id.New(),
		Name:      name,
		Region:    region,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate enforces the structural invariants of a zone.
func (z *Zone) Validate(ctx context.Context) error {
	if z.Name == "" {
		return apperror.NewValidation("zone name is required").WithDetail("field", "name")
	}
	if !z.Region.Valid() {
		return apperror.NewValidation("region is required").WithDetail("field", "region")
	}
	return nil
}

// City is a leaf of the location tree.
type City struct {
	ID        id.ID     `db:"id" json:"id"`
	ZoneID    id.ID     `db:"zone_id" json:"zoneId"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewCity creates an active city inside a zone.
func NewCity(zoneID id.ID, name string) *City {
	now := time.Now()
	return &City{
		ID:        id.New(),
		ZoneID:    zoneID,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
