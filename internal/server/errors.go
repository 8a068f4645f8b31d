package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/campusbooks/internal/account/domain"
	auditdomain "github.com/smallbiznis/campusbooks/internal/audit/domain"
	collectiondomain "github.com/smallbiznis/campusbooks/internal/collection/domain"
	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	examdomain "github.com/smallbiznis/campusbooks/internal/exam/domain"
	feedomain "github.com/smallbiznis/campusbooks/internal/feestructure/domain"
	studentdomain "github.com/smallbiznis/campusbooks/internal/student/domain"
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
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
)

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
		code := err.Error()
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
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isBusinessRuleError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "business_rule_violation",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
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
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, duedomain.ErrInvalidSchool),
		errors.Is(err, duedomain.ErrInvalidAmount),
		errors.Is(err, duedomain.ErrInvalidAdjustmentKind),
		errors.Is(err, duedomain.ErrInvalidAdmissionDate),
		errors.Is(err, duedomain.ErrInvalidTarget),
		errors.Is(err, studentdomain.ErrInvalidName),
		errors.Is(err, studentdomain.ErrInvalidAdmissionDate),
		errors.Is(err, accountdomain.ErrInvalidName),
		errors.Is(err, accountdomain.ErrInvalidKind),
		errors.Is(err, feedomain.ErrInvalidName),
		errors.Is(err, feedomain.ErrInvalidAmount),
		errors.Is(err, feedomain.ErrInvalidFrequency),
		errors.Is(err, collectiondomain.ErrInvalidAmount),
		errors.Is(err, collectiondomain.ErrEmptyCollection),
		errors.Is(err, examdomain.ErrInvalidMarks),
		errors.Is(err, examdomain.ErrInvalidGradeBand),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return true
	default:
		return false
	}
}

// Business rule violations are well-formed requests the ledger refuses.
func isBusinessRuleError(err error) bool {
	switch {
	case errors.Is(err, collectiondomain.ErrExceedsRemaining),
		errors.Is(err, collectiondomain.ErrStudentMismatch),
		errors.Is(err, collectiondomain.ErrInvalidAccount),
		errors.Is(err, feedomain.ErrNoActiveItems),
		errors.Is(err, examdomain.ErrInvalidTransition),
		errors.Is(err, examdomain.ErrResultsNotPublished),
		errors.Is(err, examdomain.ErrNoGradeBand):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, duedomain.ErrConcurrentModification),
		errors.Is(err, studentdomain.ErrDuplicateAdmissionNumber),
		errors.Is(err, accountdomain.ErrDuplicateName),
		errors.Is(err, examdomain.ErrDuplicateSchedule):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, duedomain.ErrDueItemNotFound),
		errors.Is(err, duedomain.ErrAdjustmentNotFound),
		errors.Is(err, duedomain.ErrStudentDueNotFound),
		errors.Is(err, studentdomain.ErrNotFound),
		errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, feedomain.ErrNotFound),
		errors.Is(err, feedomain.ErrItemNotFound),
		errors.Is(err, collectiondomain.ErrCollectionNotFound),
		errors.Is(err, collectiondomain.ErrDueItemNotFound),
		errors.Is(err, examdomain.ErrExamNotFound),
		errors.Is(err, examdomain.ErrScheduleNotFound),
		errors.Is(err, examdomain.ErrComponentNotFound),
		errors.Is(err, examdomain.ErrNoResults),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
