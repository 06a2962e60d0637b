package handlers

import (
	"github.com/gin-gonic/gin"

	"visualeyes/internal/domain/catalog"
	"visualeyes/internal/domain/identity"
)

// CatalogHandler serves reference-data and location-tree endpoints.
type CatalogHandler struct {
	BaseHandler
	svc *catalog.Service
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// ListItems lists the entries of one dropdown.
// GET /catalog/:kind
func (h *CatalogHandler) ListItems(c *gin.Context) {
	kind := catalog.Kind(c.Param("kind"))
	includeInactive := c.Query("includeInactive") == "true"

	items, err := h.svc.ListItems(c.Request.Context(), kind, includeInactive)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}

// CreateItem adds an entry to a dropdown.
// POST /catalog/:kind
func (h *CatalogHandler) CreateItem(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}

	var req catalog.ItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.svc.CreateItem(c.Request.Context(), actor, catalog.Kind(c.Param("kind")), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, item)
}

// UpdateItem updates a dropdown entry.
// PUT /catalog/:kind/:id
func (h *CatalogHandler) UpdateItem(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req catalog.ItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.svc.UpdateItem(c.Request.Context(), actor, itemID, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

// DeleteItem removes a dropdown entry.
// DELETE /catalog/:kind/:id
func (h *CatalogHandler) DeleteItem(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteItem(c.Request.Context(), actor, itemID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "item deleted")
}

// ListZones lists zones, optionally narrowed to a region.
// GET /locations/zones
func (h *CatalogHandler) ListZones(c *gin.Context) {
	zones, err := h.svc.ListZones(c.Request.Context(), identity.Region(c.Query("region")))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, zones)
}

// CreateZone adds a zone to the location tree.
// POST /locations/zones
func (h *CatalogHandler) CreateZone(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}

	var req catalog.ZoneRequest
	if !h.BindJSON(c, &req) {
		return
	}

	zone, err := h.svc.CreateZone(c.Request.Context(), actor, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, zone)
}

// ListCities lists the cities of a zone.
// GET /locations/zones/:id/cities
func (h *CatalogHandler) ListCities(c *gin.Context) {
	zoneID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	cities, err := h.svc.ListCities(c.Request.Context(), zoneID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cities)
}

// CreateCity adds a city under an existing zone.
// POST /locations/cities
func (h *CatalogHandler) CreateCity(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}

	var req catalog.CityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	city, err := h.svc.CreateCity(c.Request.Context(), actor, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, city)
}
