package middleware

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/shared/valueobject"
	"github.com/contaflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator configures the binding validator: JSON tag names in
// error details plus the fiscal formats used across the API.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	// taxid accepts a CNPJ or CPF, formatted or digits-only
	v.RegisterValidation("taxid", func(fl validator.FieldLevel) bool {
		return billing.DetectDocumentType(fl.Field().String()).IsValid()
	})

	// competence accepts the MM/YYYY accounting period format
	v.RegisterValidation("competence", func(fl validator.FieldLevel) bool {
		_, err := valueobject.ParseCompetence(fl.Field().String())
		return err == nil
	})
}

// FormatValidationErrors turns validator errors into the standard
// error envelope with per-field details
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 response for a failed binding.
// Non-validator errors (malformed JSON, type mismatches) fall back to a
// plain bad-request envelope.
func HandleValidationError(c *gin.Context, err error) {
	requestID := c.GetString("request_id")
	if _, ok := err.(validator.ValidationErrors); !ok {
		c.JSON(http.StatusBadRequest,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, err.Error(), requestID))
		return
	}
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "taxid":
		return "Must be a valid CNPJ or CPF"
	case "competence":
		return "Must be a competence in MM/YYYY format"
	default:
		return "Invalid value"
	}
}
