package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bastiondns/bastiondns/internal/api/models"
	"github.com/bastiondns/bastiondns/internal/dns"
	"github.com/bastiondns/bastiondns/internal/resolvers"
)

// resolveTimeout bounds a debug lookup; forwarded queries hit real
// upstreams.
const resolveTimeout = 5 * time.Second

// Resolve godoc
// @Summary Debug lookup
// @Description Runs a question through the live resolver chain and reports the outcome the DNS listener would send
// @Tags debug
// @Produce json
// @Param name query string true "Domain name to resolve"
// @Param type query string false "Record type (default A)"
// @Success 200 {object} models.ResolveResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /resolve [get]
func (h *Handler) Resolve(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing query parameter: name"})
		return
	}

	typeStr := c.DefaultQuery("type", "A")
	qtype, ok := dns.RecordTypeFromString(typeStr)
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown record type: " + typeStr})
		return
	}

	if h.deps.Resolver == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "resolver not available"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), resolveTimeout)
	defer cancel()

	sections, err := h.deps.Resolver.Lookup(ctx, name, dns.ClassIN, qtype)

	resp := models.ResolveResponse{
		Name:   dns.NormalizeName(name),
		Type:   qtype.String(),
		Status: resolveStatus(err),
	}
	if err == nil {
		resp.Answer = recordsToModel(sections.Answer)
		resp.Authority = recordsToModel(sections.Authority)
		resp.Additional = recordsToModel(sections.Additional)
	}
	if errors.Is(err, resolvers.ErrNameNotFound) {
		var ne *resolvers.NameError
		if errors.As(err, &ne) {
			resp.Authority = recordsToModel(ne.Authority)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// resolveStatus mirrors the response-code mapping of the DNS listener.
func resolveStatus(err error) string {
	switch {
	case err == nil:
		return "NOERROR"
	case errors.Is(err, resolvers.ErrNameNotFound):
		return "NXDOMAIN"
	case errors.Is(err, resolvers.ErrNotInZone):
		return "REFUSED"
	default:
		return "SERVFAIL"
	}
}

func recordsToModel(rrs []dns.RR) []models.ZoneRecord {
	if len(rrs) == 0 {
		return nil
	}
	out := make([]models.ZoneRecord, 0, len(rrs))
	for _, rr := range rrs {
		out = append(out, recordToModel(rr))
	}
	return out
}
