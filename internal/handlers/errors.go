package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
)

// errorBody is rendered as {"error": {...}}.
type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeError(c *gin.Context, err error) {
	body := errorBody{Code: apperrors.Code(err), Message: "internal error"}

	var appErr *apperrors.AppError
	var opErr *apperrors.OperationError
	switch {
	case errors.As(err, &appErr):
		body.Message = appErr.Message
		body.Details = appErr.Details
	case errors.As(err, &opErr):
		body.Message = opErr.Error()
		body.Details = opErr.Details()
	}

	status := http.StatusInternalServerError
	if err != nil {
		status = apperrors.HTTPStatus(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// fail logs server-side failures before rendering them.
func (h *handler) fail(c *gin.Context, err error) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("code", apperrors.Code(err)),
			zap.Error(err),
		)
	}
	writeError(c, err)
}

// storeErr maps raw store errors for routes that read stores directly.
func storeErr(err error) error {
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return apperrors.Validation(err.Error())
	}
	return apperrors.Internal(err)
}
