package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/tallyhq/tally/internal/customer/domain"
	invoicedomain "github.com/tallyhq/tally/internal/invoice/domain"
	paymentdomain "github.com/tallyhq/tally/internal/payment/domain"
	plandomain "github.com/tallyhq/tally/internal/plan/domain"
	productdomain "github.com/tallyhq/tally/internal/product/domain"
	subscriptiondomain "github.com/tallyhq/tally/internal/subscription/domain"
	usagedomain "github.com/tallyhq/tally/internal/usage/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// ErrorHandlingMiddleware converts domain errors collected on the context
// into the JSON error envelope after the handler chain runs.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isInvalidStateError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "invalid_state",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isCustomerValidationError(err),
		isProductValidationError(err),
		isPlanValidationError(err),
		isSubscriptionValidationError(err),
		isUsageValidationError(err),
		isInvoiceValidationError(err),
		isPaymentValidationError(err):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, plandomain.ErrNotFound),
		errors.Is(err, plandomain.ErrProductNotFound),
		errors.Is(err, plandomain.ErrPriceNotFound),
		errors.Is(err, subscriptiondomain.ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrCustomerNotFound),
		errors.Is(err, subscriptiondomain.ErrPlanNotFound),
		errors.Is(err, usagedomain.ErrSubscriptionNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrCustomerNotFound),
		errors.Is(err, invoicedomain.ErrSubscriptionNotFound),
		errors.Is(err, invoicedomain.ErrUsageNotFound),
		errors.Is(err, paymentdomain.ErrCustomerNotFound),
		errors.Is(err, paymentdomain.ErrInvoiceNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, customerdomain.ErrEmailTaken),
		errors.Is(err, productdomain.ErrNameTaken),
		errors.Is(err, subscriptiondomain.ErrConcurrentUpdate),
		errors.Is(err, invoicedomain.ErrConcurrentUpdate),
		errors.Is(err, invoicedomain.ErrUsageAlreadyBilled):
		return true
	default:
		return false
	}
}

// Invalid state covers operations that are well-formed but forbidden by the
// resource's current lifecycle position.
func isInvalidStateError(err error) bool {
	switch {
	case errors.Is(err, subscriptiondomain.ErrInvalidTransition),
		errors.Is(err, invoicedomain.ErrInvalidTransition),
		errors.Is(err, usagedomain.ErrSubscriptionCanceled):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
