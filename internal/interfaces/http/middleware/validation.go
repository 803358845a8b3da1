package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator names fields in binding errors by their json tag, or
// their form tag for query binding.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
		}
		return name
	})
}

// FormatValidationErrors turns a binding error into a response body. Only
// validator failures get per-field details; decode errors are a plain 400.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, "Invalid request body", requestID)
	}

	details := make([]dto.ValidationDetail, len(fieldErrs))
	for i, fe := range fieldErrs {
		details[i] = dto.ValidationDetail{Field: fe.Field(), Message: fieldMessage(fe), Tag: fe.Tag()}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// messages for validator tags; %s is the tag parameter
var tagMessages = map[string]string{
	"required": "This field is required",
	"uuid":     "Invalid UUID format",
	"oneof":    "Must be one of: %s",
	"gt":       "Must be greater than %s",
	"gte":      "Must be greater than or equal to %s",
	"len":      "Must be exactly %s characters",
	"alphanum": "Must be alphanumeric",
	"hostname": "Must be a valid hostname",
}

func fieldMessage(fe validator.FieldError) string {
	switch tag := fe.Tag(); tag {
	case "min", "max":
		bound := "at least"
		if tag == "max" {
			bound = "at most"
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be %s %s characters", bound, fe.Param())
		}
		return fmt.Sprintf("Must be %s %s", bound, fe.Param())
	default:
		msg, ok := tagMessages[tag]
		if !ok {
			return "Invalid value"
		}
		if strings.Contains(msg, "%s") {
			return fmt.Sprintf(msg, fe.Param())
		}
		return msg
	}
}
