package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

// Error is an application error carrying a stable code and the HTTP status
// it maps to.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on Code, so a clone or wrap of ErrNotFound still satisfies
// errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches cause to a new error.
func Wrap(cause error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: cause}
}

var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotEnrolled        = New("NOT_ENROLLED", http.StatusForbidden, "not enrolled in course")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrFinalized          = New("FINALIZED", http.StatusConflict, "resource finalized")
	ErrAlreadySubmitted   = New("ALREADY_SUBMITTED", http.StatusConflict, "evaluation already submitted for this semester")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrInvalidTransition  = New("INVALID_TRANSITION", http.StatusUnprocessableEntity, "status transition not allowed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// pqMappings translates PostgreSQL SQLSTATE codes into client errors.
var pqMappings = map[pq.ErrorCode]struct {
	base    *Error
	message string
}{
	"23505": {ErrConflict, "record already exists"},
	"23503": {ErrPreconditionFailed, "referenced record is missing or still in use"},
	"23514": {ErrValidation, "value violates a database constraint"},
	"22P02": {ErrValidation, "malformed identifier"},
}

func pqCode(err error) (pq.ErrorCode, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}
	return pqErr.Code, true
}

// IsUniqueViolation reports a unique_violation anywhere in err's chain.
func IsUniqueViolation(err error) bool {
	code, ok := pqCode(err)
	return ok && code == "23505"
}

// IsForeignKeyViolation reports a foreign_key_violation anywhere in err's chain.
func IsForeignKeyViolation(err error) bool {
	code, ok := pqCode(err)
	return ok && code == "23503"
}

// FromPQ maps known PostgreSQL failures onto client errors. Anything else
// becomes an internal error with message.
func FromPQ(err error, message string) *Error {
	if err == nil {
		return nil
	}
	if code, ok := pqCode(err); ok {
		if m, known := pqMappings[code]; known {
			return Wrap(err, m.base.Code, m.base.Status, m.message)
		}
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}

// FromError returns the *Error in err's chain, or an internal error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies err, replacing the message when one is given.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	out := *err
	if message != "" {
		out.Message = message
	}
	return &out
}
