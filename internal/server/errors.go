package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	authdomain "github.com/cablebill/cablebill/internal/auth/domain"
	"github.com/cablebill/cablebill/internal/authorization"
	"github.com/cablebill/cablebill/internal/errs"
	"github.com/gin-gonic/gin"
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
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not_found")
)

// TooManyRequestsError carries the wait advertised in Retry-After.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e *TooManyRequestsError) Error() string {
	return "too many requests"
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
		var tooMany *TooManyRequestsError
		if errors.As(lastErr.Err, &tooMany) {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(tooMany.RetryAfter)))
		}
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

	var tooMany *TooManyRequestsError
	if errors.As(err, &tooMany) {
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Code:    "too_many_attempts",
			Message: "too many attempts, try again later",
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Code:    unauthorizedCode(err),
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authdomain.ErrForbidden),
		errors.Is(err, authdomain.ErrUserInactive),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Code:    forbiddenCode(err),
			Message: "forbidden",
		}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	}

	code := errs.Code(err)
	switch errs.KindOf(err) {
	case errs.ErrInvalidInput:
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	case errs.ErrInvalidState:
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_state",
			Code:    code,
			Message: humanize(code),
		}
	case errs.ErrNotFound:
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Code:    code,
			Message: humanize(code),
		}
	case errs.ErrConflict:
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    code,
			Message: humanize(code),
		}
	case errs.ErrUnavailable:
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

// classifyErrorForLog returns the payload type and code logged for a request.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func unauthorizedCode(err error) string {
	switch {
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, authdomain.ErrInvalidToken):
		return "invalid_token"
	}
	return ""
}

func forbiddenCode(err error) string {
	if errors.Is(err, authdomain.ErrUserInactive) {
		return "user_inactive"
	}
	return ""
}

func validationErrorField(code string) string {
	return strings.TrimPrefix(code, "invalid_")
}

func humanize(code string) string {
	return strings.ReplaceAll(code, "_", " ")
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
