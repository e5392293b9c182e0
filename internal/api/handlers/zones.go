package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bastiondns/bastiondns/internal/api/models"
	"github.com/bastiondns/bastiondns/internal/catalog"
	"github.com/bastiondns/bastiondns/internal/dns"
	"github.com/bastiondns/bastiondns/internal/resolvers"
)

// ListZones godoc
// @Summary List all zones
// @Description Returns the zones recorded in the catalog
// @Tags zones
// @Produce json
// @Success 200 {object} models.ZoneListResponse
// @Failure 503 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /zones [get]
func (h *Handler) ListZones(c *gin.Context) {
	if h.deps.Catalog == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "zone catalog not configured"})
		return
	}

	zones, err := h.deps.Catalog.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list zones"})
		return
	}

	summaries := make([]models.ZoneSummary, 0, len(zones))
	for _, z := range zones {
		summaries = append(summaries, zoneSummary(z))
	}

	c.JSON(http.StatusOK, models.ZoneListResponse{
		Zones: summaries,
		Count: len(summaries),
	})
}

// GetZone godoc
// @Summary Get zone details
// @Description Returns a full zone dump in transfer order: SOA first and last
// @Tags zones
// @Produce json
// @Param origin path string true "Zone origin"
// @Success 200 {object} models.ZoneDetailResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /zones/{origin} [get]
func (h *Handler) GetZone(c *gin.Context) {
	origin := c.Param("origin")

	zt, ok := h.deps.Resolver.(resolvers.ZoneTransferrer)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "resolver does not support zone dumps"})
		return
	}

	rrs, err := zt.LookupZone(c.Request.Context(), origin)
	if err != nil {
		if errors.Is(err, resolvers.ErrNameNotFound) || errors.Is(err, resolvers.ErrNotInZone) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "zone not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "zone dump failed"})
		return
	}

	records := make([]models.ZoneRecord, 0, len(rrs))
	for _, rr := range rrs {
		records = append(records, recordToModel(rr))
	}

	c.JSON(http.StatusOK, models.ZoneDetailResponse{
		Origin:  dns.NormalizeName(origin),
		Serial:  zoneDumpSerial(rrs),
		Records: records,
	})
}

// CreateZone godoc
// @Summary Create a new zone
// @Description Zone data lives in files on disk; creation through the API is not supported
// @Tags zones
// @Accept json
// @Produce json
// @Param zone body models.ZoneCreateRequest true "Zone to create"
// @Failure 501 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /zones [post]
func (h *Handler) CreateZone(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, models.ErrorResponse{Error: "zones are loaded from files; edit the zone directory instead"})
}

// UpdateZone godoc
// @Summary Update a zone
// @Description Zone data lives in files on disk; updates through the API are not supported
// @Tags zones
// @Accept json
// @Produce json
// @Param origin path string true "Zone origin"
// @Param zone body models.ZoneCreateRequest true "Zone update"
// @Failure 501 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /zones/{origin} [put]
func (h *Handler) UpdateZone(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, models.ErrorResponse{Error: "zones are loaded from files; edit the zone directory instead"})
}

// DeleteZone godoc
// @Summary Delete a zone
// @Description Zone data lives in files on disk; deletion through the API is not supported
// @Tags zones
// @Produce json
// @Param origin path string true "Zone origin"
// @Failure 501 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /zones/{origin} [delete]
func (h *Handler) DeleteZone(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, models.ErrorResponse{Error: "zones are loaded from files; edit the zone directory instead"})
}

func zoneSummary(z catalog.Zone) models.ZoneSummary {
	s := models.ZoneSummary{
		Origin:  z.Origin,
		Source:  z.Source,
		Format:  z.Format,
		Enabled: z.Enabled,
		Serial:  z.Serial,
	}
	if !z.LoadedAt.IsZero() {
		t := z.LoadedAt
		s.LoadedAt = &t
	}
	return s
}

func recordToModel(rr dns.RR) models.ZoneRecord {
	return models.ZoneRecord{
		Name:  rr.Name,
		TTL:   rr.TTL,
		Class: rr.Class.String(),
		Type:  rr.Data.Type().String(),
		Value: rr.Data.String(),
	}
}

// zoneDumpSerial pulls the serial out of the leading SOA of a transfer.
func zoneDumpSerial(rrs []dns.RR) uint32 {
	if len(rrs) == 0 {
		return 0
	}
	if soa, ok := rrs[0].Data.(*dns.SOAData); ok {
		return soa.Serial
	}
	return 0
}
