package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of an error
type ErrorType uint

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInvalidArgument represents a malformed or missing argument
	ErrorTypeInvalidArgument
	// ErrorTypeInvalidOptionKind represents an option kind that is neither call nor put
	ErrorTypeInvalidOptionKind
	// ErrorTypeInvalidPosition represents a position that is neither long nor short
	ErrorTypeInvalidPosition
	// ErrorTypeInvalidBarrierType represents an unsupported barrier type or barrier/kind combination
	ErrorTypeInvalidBarrierType
	// ErrorTypeMismatchedGrid represents payoff vectors of differing length being aggregated
	ErrorTypeMismatchedGrid
	// ErrorTypeDomain represents numeric inputs outside the domain of a formula
	ErrorTypeDomain
	// ErrorTypeNotFound represents a not found error
	ErrorTypeNotFound
	// ErrorTypeInternal represents an internal error
	ErrorTypeInternal
)

var typeNames = map[ErrorType]string{
	ErrorTypeUnknown:            "unknown",
	ErrorTypeInvalidArgument:    "invalid_argument",
	ErrorTypeInvalidOptionKind:  "invalid_option_kind",
	ErrorTypeInvalidPosition:    "invalid_position",
	ErrorTypeInvalidBarrierType: "invalid_barrier_type",
	ErrorTypeMismatchedGrid:     "mismatched_grid",
	ErrorTypeDomain:             "domain_error",
	ErrorTypeNotFound:           "not_found",
	ErrorTypeInternal:           "internal",
}

// String returns the snake_case name of the error type
func (t ErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("error_type(%d)", uint(t))
}

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError of the same type, so sentinel comparisons
// through the standard errors.Is work on formatted errors.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Type != ErrorTypeUnknown
}

// Sentinel errors, one per type, for use with errors.Is
var (
	ErrInvalidArgument    = &AppError{Type: ErrorTypeInvalidArgument, Message: "invalid argument"}
	ErrInvalidOptionKind  = &AppError{Type: ErrorTypeInvalidOptionKind, Message: "invalid option kind"}
	ErrInvalidPosition    = &AppError{Type: ErrorTypeInvalidPosition, Message: "invalid position"}
	ErrInvalidBarrierType = &AppError{Type: ErrorTypeInvalidBarrierType, Message: "invalid barrier type"}
	ErrMismatchedGrid     = &AppError{Type: ErrorTypeMismatchedGrid, Message: "mismatched payoff grid"}
	ErrDomain             = &AppError{Type: ErrorTypeDomain, Message: "domain error"}
	ErrNotFound           = &AppError{Type: ErrorTypeNotFound, Message: "not found"}
	ErrInternal           = &AppError{Type: ErrorTypeInternal, Message: "internal error"}
)

// New creates a new error with the given message
func New(message string) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: message,
	}
}

// Newf creates a new error with the given format and arguments
func Newf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: fmt.Sprintf(format, args...),
	}
}

func newTyped(errType ErrorType, format string, args ...interface{}) error {
	return &AppError{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a message, keeping the type of the wrapped error
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:    TypeOf(err),
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithType returns a copy of err carrying the given type
func WithType(err error, errType ErrorType) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Type:    errType,
			Message: appErr.Message,
			Err:     appErr.Err,
		}
	}
	return &AppError{
		Type:    errType,
		Message: err.Error(),
	}
}

// TypeOf returns the type of the first AppError in err's chain
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err or any of the errors in its chain is target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// InvalidArgument creates a new InvalidArgument error
func InvalidArgument(format string, args ...interface{}) error {
	return newTyped(ErrorTypeInvalidArgument, format, args...)
}

// InvalidOptionKind creates a new InvalidOptionKind error
func InvalidOptionKind(format string, args ...interface{}) error {
	return newTyped(ErrorTypeInvalidOptionKind, format, args...)
}

// InvalidPosition creates a new InvalidPosition error
func InvalidPosition(format string, args ...interface{}) error {
	return newTyped(ErrorTypeInvalidPosition, format, args...)
}

// InvalidBarrierType creates a new InvalidBarrierType error
func InvalidBarrierType(format string, args ...interface{}) error {
	return newTyped(ErrorTypeInvalidBarrierType, format, args...)
}

// MismatchedGrid creates a new MismatchedGrid error
func MismatchedGrid(format string, args ...interface{}) error {
	return newTyped(ErrorTypeMismatchedGrid, format, args...)
}

// Domain creates a new Domain error
func Domain(format string, args ...interface{}) error {
	return newTyped(ErrorTypeDomain, format, args...)
}

// NotFound creates a new NotFound error
func NotFound(format string, args ...interface{}) error {
	return newTyped(ErrorTypeNotFound, format, args...)
}

// Internal creates a new Internal error
func Internal(format string, args ...interface{}) error {
	return newTyped(ErrorTypeInternal, format, args...)
}
