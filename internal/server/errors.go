package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/hrledger/internal/account/domain"
	authdomain "github.com/smallbiznis/hrledger/internal/auth/domain"
	"github.com/smallbiznis/hrledger/internal/authorization"
	checkoutdomain "github.com/smallbiznis/hrledger/internal/checkout/domain"
	coupondomain "github.com/smallbiznis/hrledger/internal/coupon/domain"
	ledgerdomain "github.com/smallbiznis/hrledger/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
	"github.com/smallbiznis/hrledger/internal/providers/pdf"
	"gorm.io/gorm"
)

// errorResponse is the body of every failed request. Code is a stable
// machine-readable value; Error is safe to show to the caller.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrInternal           = errors.New("internal_error")
)

// fieldError is a request validation failure on a single field.
type fieldError struct {
	Field   string
	Message string
}

func (e *fieldError) Error() string { return e.Message }

func (e *fieldError) Unwrap() error { return ErrInvalidRequest }

func newValidationError(field, message string) error {
	return &fieldError{Field: field, Message: message}
}

func invalidRequestError() error {
	return newValidationError("request", "invalid request")
}

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
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal_error"}
	}

	var (
		configErr   *paymentdomain.ConfigError
		gatewayErr  *paymentdomain.GatewayError
		rejectedErr *checkoutdomain.RejectedPaymentError
		metaErr     *checkoutdomain.ValidationError
		couponErr   *checkoutdomain.CouponRejectedError
		fieldErr    *fieldError
	)

	switch {
	case errors.As(err, &configErr):
		return http.StatusInternalServerError, errorResponse{Error: configErr.Error(), Code: "config_error"}
	case errors.As(err, &gatewayErr):
		return http.StatusBadRequest, errorResponse{Error: gatewayErr.Error(), Code: "gateway_error"}
	case errors.As(err, &rejectedErr):
		return http.StatusBadRequest, errorResponse{Error: rejectedErr.Error(), Code: "payment_rejected"}
	case errors.As(err, &metaErr):
		return http.StatusInternalServerError, errorResponse{Error: metaErr.Error(), Code: "validation_error"}
	case errors.As(err, &couponErr):
		return http.StatusBadRequest, errorResponse{Error: couponErr.Error(), Code: "coupon_rejected"}
	case errors.Is(err, ledgerdomain.ErrCouponSystem):
		return http.StatusInternalServerError, errorResponse{Error: "Coupon system unavailable", Code: "coupon_system_error"}
	case errors.Is(err, ledgerdomain.ErrDatabase):
		return http.StatusInternalServerError, errorResponse{Error: "Failed to record transaction", Code: "database_error"}
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, errorResponse{Error: fieldErr.Message, Code: "invalid_" + fieldErr.Field}
	case isValidationError(err):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: err.Error()}
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: "unauthorized"}
	case errors.Is(err, ErrForbidden), errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "forbidden", Code: "forbidden"}
	case errors.Is(err, coupondomain.ErrCodeTaken):
		return http.StatusConflict, errorResponse{Error: "coupon code already exists", Code: "conflict"}
	case errors.Is(err, checkoutdomain.ErrCheckoutInProgress):
		return http.StatusConflict, errorResponse{Error: "checkout is already being processed", Code: "conflict"}
	case isNotFoundError(err):
		return http.StatusNotFound, errorResponse{Error: "not found", Code: "not_found"}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: "too many requests", Code: "rate_limited"}
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, paymentdomain.ErrWebhookDisabled):
		return http.StatusServiceUnavailable, errorResponse{Error: "service unavailable", Code: "service_unavailable"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal_error"}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, checkoutdomain.ErrInvalidCheckoutID),
		errors.Is(err, checkoutdomain.ErrInvalidType),
		errors.Is(err, checkoutdomain.ErrInvalidAmount),
		errors.Is(err, checkoutdomain.ErrUnknownPlan),
		errors.Is(err, coupondomain.ErrInvalidCode),
		errors.Is(err, coupondomain.ErrInvalidDiscountType),
		errors.Is(err, coupondomain.ErrInvalidDiscountValue),
		errors.Is(err, coupondomain.ErrInvalidMaxUses),
		errors.Is(err, coupondomain.ErrInvalidID),
		errors.Is(err, ledgerdomain.ErrInvalidUserID),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidReason),
		errors.Is(err, ledgerdomain.ErrInvalidID),
		errors.Is(err, ledgerdomain.ErrInvalidPageToken),
		errors.Is(err, accountdomain.ErrInvalidUserID),
		errors.Is(err, paymentdomain.ErrInvalidMode),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidCheckout):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrMissingToken),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrTokenExpired),
		errors.Is(err, authdomain.ErrInvalidAPIKey),
		errors.Is(err, authdomain.ErrNotConfigured),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, coupondomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog returns the error type and code logged by the request
// middleware. It never includes the raw message.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case errors.Is(err, pdf.ErrInvalidReceipt):
		return "receipt", "invalid_receipt"
	case status >= http.StatusInternalServerError:
		return "server", payload.Code
	default:
		return "client", payload.Code
	}
}
