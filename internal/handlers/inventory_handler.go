package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventory"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventorysync"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/syncsessions"
)

func (h *handler) listInventory(c *gin.Context) {
	page, err := h.Inventory.List(c.Request.Context(), inventory.ListParams{
		Params:     pagination.ParseParams(c),
		LocationID: c.Query("locationId"),
		SKU:        c.Query("sku"),
	})
	if err != nil {
		h.fail(c, storeErr(err))
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handler) getInventoryItem(c *gin.Context) {
	id := c.Param("id")
	item, err := h.Inventory.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, storeErr(err))
		return
	}
	if item == nil {
		h.fail(c, apperrors.NotFound("inventory item", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (h *handler) listSyncSessions(c *gin.Context) {
	page, err := h.Sessions.List(c.Request.Context(), syncsessions.ListParams{
		Params: pagination.ParseParams(c),
		Status: c.Query("status"),
	})
	if err != nil {
		h.fail(c, storeErr(err))
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handler) getSyncSession(c *gin.Context) {
	id := c.Param("id")
	s, err := h.Sessions.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, storeErr(err))
		return
	}
	if s == nil {
		h.fail(c, apperrors.NotFound("inventory sync session", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s})
}

// runSync runs a manual sync inside the request and returns the finished session.
func (h *handler) runSync(c *gin.Context) {
	s, err := h.Sync.Run(c.Request.Context(), inventorysync.TriggerManual)
	if err != nil {
		h.logger.Error("manual inventory sync failed", zap.Error(err))
		h.fail(c, apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": s})
}
