package errors

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/logger"
	"github.com/oggyb/cardlink/internal/utils/pagination"
)

// Sentinel kinds. Wrap them with the constructors below or with %w so that
// Map can classify the failure.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConflict           = errors.New("conflict")
	ErrAlreadyProcessed   = errors.New("already processed")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrUnavailable        = errors.New("unavailable")
)

// Error carries a user-facing message on top of a sentinel kind.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	if msg == "" {
		msg = kind.Error()
	}
	return &Error{kind: kind, msg: msg}
}

func Unauthenticated(msg string) error    { return newError(ErrUnauthenticated, msg) }
func Forbidden(msg string) error          { return newError(ErrForbidden, msg) }
func NotFound(msg string) error           { return newError(ErrNotFound, msg) }
func InvalidArgument(msg string) error    { return newError(ErrInvalidArgument, msg) }
func Conflict(msg string) error           { return newError(ErrConflict, msg) }
func AlreadyProcessed(msg string) error   { return newError(ErrAlreadyProcessed, msg) }
func InsufficientCredit(msg string) error { return newError(ErrInsufficientCredit, msg) }
func QuotaExceeded(msg string) error      { return newError(ErrQuotaExceeded, msg) }
func Unavailable(msg string) error        { return newError(ErrUnavailable, msg) }

// Map converts service/repo/infra errors into an HTTP status and a message
// that is safe to show to the caller.
func Map(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, pagination.ErrInvalidToken):
		status = http.StatusBadRequest
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyProcessed), errors.Is(err, gorm.ErrDuplicatedKey):
		status = http.StatusConflict
	case errors.Is(err, ErrInsufficientCredit):
		status = http.StatusPaymentRequired
	case errors.Is(err, ErrQuotaExceeded):
		status = http.StatusTooManyRequests
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "request was canceled"
	}

	var e *Error
	switch {
	case errors.As(err, &e):
		return status, e.msg
	case status == http.StatusNotFound:
		return status, "record not found"
	case status == http.StatusConflict:
		return status, "record already exists"
	case status == http.StatusInternalServerError:
		return status, "something went wrong"
	}
	return status, err.Error()
}

// Respond writes err as {"error": msg} and aborts the handler chain.
// Server-side failures are logged with the request logger.
func Respond(c *gin.Context, err error) {
	status, msg := Map(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			"method", c.Request.Method, "path", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
