package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/locations"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/validation"
)

func (h *handler) listLocations(c *gin.Context) {
	all, err := h.Locations.List(c.Request.Context())
	if err != nil {
		h.fail(c, apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": all})
}

// putLocation creates or replaces a location, keeping its creation time.
func (h *handler) putLocation(c *gin.Context) {
	var req validation.StoreLocationRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	existing, err := h.Locations.Get(ctx, id)
	if err != nil {
		h.fail(c, apperrors.Internal(err))
		return
	}
	l := &locations.Location{
		ID:                   id,
		Name:                 req.Name,
		SupplySourceID:       req.SupplySourceID,
		SupplySourceCode:     req.SupplySourceCode,
		StorefrontDomain:     req.StorefrontDomain,
		StorefrontLocationID: req.StorefrontLocationID,
		StoreAdminEmail:      req.StoreAdminEmail,
		Active:               *req.Active,
	}
	status := http.StatusCreated
	if existing != nil {
		l.CreatedAt = existing.CreatedAt
		status = http.StatusOK
	}
	if err := h.Locations.Put(ctx, l); err != nil {
		h.fail(c, apperrors.Internal(err))
		return
	}
	c.JSON(status, gin.H{"data": l})
}
