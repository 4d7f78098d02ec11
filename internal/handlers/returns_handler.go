package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/returns"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/validation"
)

func (h *handler) listReturns(c *gin.Context) {
	page, err := h.Returns.List(c.Request.Context(), returns.ListParams{
		Params: pagination.ParseParams(c),
		RmaID:  c.Query("rmaId"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handler) getReturn(c *gin.Context) {
	r, err := h.Returns.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": r})
}

// lookupReturns lists the backend's returns for an RMA before any are processed.
func (h *handler) lookupReturns(c *gin.Context) {
	found, err := h.Returns.Lookup(c.Request.Context(), c.Query("rmaId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": found})
}

func (h *handler) createReturn(c *gin.Context) {
	var req validation.CreateReturnRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	r, err := h.Returns.Create(c.Request.Context(), req.ReturnID, req.ItemConditions)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": r})
}
