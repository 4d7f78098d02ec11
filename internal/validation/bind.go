package validation

import (
	"errors"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
)

// BindAndValidate binds JSON body into `out` and runs validation.
// If validation fails, it writes a 400 response and returns an error for the handler to short-circuit.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		appErr := apperrors.Validation("invalid request body").WithDetail("reason", err.Error())
		c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{"error": appErr})
		return err
	}

	if err := v.Struct(out); err != nil {
		appErr := apperrors.Validation("validation failed").WithDetail("fields", validationErrorsToMap(err))
		c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{"error": appErr})
		return err
	}
	return nil
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Namespace()] = fe.Tag()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
