package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/orders"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/validation"
)

func (h *handler) listOrders(c *gin.Context) {
	archived, _ := strconv.ParseBool(c.DefaultQuery("archived", "false"))
	page, err := h.Orders.List(c.Request.Context(), orders.ListParams{
		Params:     pagination.ParseParams(c),
		Status:     c.Query("status"),
		LocationID: c.Query("locationId"),
		Archived:   archived,
		Search:     c.Query("search"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handler) getOrder(c *gin.Context) {
	o, err := h.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": o})
}

func (h *handler) getOrderByShipment(c *gin.Context) {
	o, err := h.Orders.GetByShipmentID(c.Request.Context(), c.Param("shipmentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": o})
}

// createOrder imports a shipment the notification flow missed.
func (h *handler) createOrder(c *gin.Context) {
	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		// BindAndValidate already wrote a 400
		return
	}
	o, err := h.Orders.CreateOrder(c.Request.Context(), req.ShipmentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/orders/%s", o.ID))
	c.JSON(http.StatusCreated, gin.H{"data": o})
}

// orderAction adapts a body-less order operation to a route.
func (h *handler) orderAction(op func(ctx context.Context, id string) (*orders.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := op(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": o})
	}
}

func (h *handler) deleteOrder(c *gin.Context) {
	if err := h.Orders.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) createPackages(c *gin.Context) {
	var req validation.CreatePackagesRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	o, err := h.Orders.CreatePackages(c.Request.Context(), c.Param("id"), req.Packages)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": o})
}

func (h *handler) shipComplete(c *gin.Context) {
	var req validation.ShipCompleteRequest
	// an empty body ships every package
	if c.Request.ContentLength != 0 {
		if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
			return
		}
	}
	o, err := h.Orders.ShipComplete(c.Request.Context(), c.Param("id"), req.PackageIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": o})
}

func (h *handler) updateStorefrontOrder(c *gin.Context) {
	var ref orders.StorefrontOrderRef
	if err := validation.BindAndValidate(c, &ref, h.validate); err != nil {
		return
	}
	o, err := h.Orders.UpdateStorefrontOrder(c.Request.Context(), c.Param("id"), ref)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": o})
}
