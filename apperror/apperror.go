package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error with HTTP status and error code
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s (%v)", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is matches errors with the same code, so copies made by WithMessage and
// WithInternal still satisfy errors.Is against the predefined values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Extensions is picked up by the GraphQL executor and rendered under the
// field error's "extensions" key.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{
		"code": e.Code,
	}
}

// WithInternal returns a copy of the error with an internal error attached
func (e *Error) WithInternal(err error) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   err,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    message,
		Internal:   e.Internal,
	}
}

// New creates a new application error
func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

var (
	ErrBadRequest       = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrInvalidID        = New(http.StatusBadRequest, "invalid_id", "Invalid ID")
	ErrNotFound         = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrMethodNotAllowed = New(http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	ErrPayloadTooLarge  = New(http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
	ErrTeacherNotFound  = New(http.StatusUnprocessableEntity, "teacher_not_found", "Teacher not found")
	ErrInternal         = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
)

// InvalidID builds the error returned when an identifier cannot be parsed.
func InvalidID(id string, err error) *Error {
	return ErrInvalidID.WithMessage(fmt.Sprintf("invalid ID %q", id)).WithInternal(err)
}

// ToHTTPError converts an error to a status code and a JSON body for REST
// handlers. Errors that are not application errors become internal errors
// and their text is not exposed.
func ToHTTPError(err error) (int, gin.H) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		}
	}
	return http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    ErrInternal.Code,
			"message": ErrInternal.Message,
		},
	}
}
