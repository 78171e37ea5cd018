package pade

import (
	"errors"
	"fmt"

	"github.com/blockberries/pade/internal/wire"
)

// Sentinel errors for common conditions.
// These can be checked using errors.Is().
var (
	// ErrInvalidSize indicates fewer bytes remain than the current decode step requires.
	ErrInvalidSize = wire.ErrInvalidSize

	// ErrIncorrectWidth indicates a narrowed width exceeds the native width of a type.
	ErrIncorrectWidth = wire.ErrIncorrectWidth

	// ErrUnknownVariant indicates a decoded enum tag names no declared variant.
	ErrUnknownVariant = wire.ErrUnknownVariant

	// ErrInvalidValue indicates decoded bytes are well-sized but not a valid
	// value of the target type, such as an unrecognized signature V byte.
	ErrInvalidValue = errors.New("pade: invalid value")

	// ErrTrailingBytes indicates input remained after the target was decoded.
	ErrTrailingBytes = errors.New("pade: trailing bytes after value")

	// ErrWidthOverflow indicates a value does not fit in its declared width.
	ErrWidthOverflow = errors.New("pade: value exceeds declared width")

	// ErrLengthOverflow indicates a byte string or sequence is too long for its prefix.
	ErrLengthOverflow = errors.New("pade: length exceeds prefix capacity")

	// ErrUnsupportedType indicates a Go type has no PADE layout.
	ErrUnsupportedType = errors.New("pade: unsupported type")

	// ErrUnregisteredEnum indicates an interface type was used without enum registration.
	ErrUnregisteredEnum = errors.New("pade: unregistered enum")

	// ErrUnregisteredVariant indicates an enum value holds a type that is not one of its variants.
	ErrUnregisteredVariant = errors.New("pade: unregistered variant")

	// ErrInvalidTag indicates a malformed pade struct tag.
	ErrInvalidTag = errors.New("pade: invalid struct tag")

	// ErrNotPointer indicates the target for unmarshaling is not a pointer.
	ErrNotPointer = errors.New("pade: target must be a pointer")

	// ErrNilPointer indicates the target pointer is nil.
	ErrNilPointer = errors.New("pade: nil pointer")

	// ErrDuplicateEnum indicates an enum was registered more than once.
	ErrDuplicateEnum = errors.New("pade: duplicate enum registration")

	// ErrDuplicateVariant indicates the same variant type was listed twice.
	ErrDuplicateVariant = errors.New("pade: duplicate variant")

	// ErrEmptyEnum indicates an enum was registered without variants.
	ErrEmptyEnum = errors.New("pade: enum has no variants")

	// ErrMaxDepthExceeded indicates the maximum nesting depth was exceeded.
	ErrMaxDepthExceeded = errors.New("pade: maximum nesting depth exceeded")

	// ErrMaxSequenceLength indicates the maximum sequence length was exceeded.
	ErrMaxSequenceLength = errors.New("pade: maximum sequence length exceeded")

	// ErrMaxBytesLength indicates the maximum bytes length was exceeded.
	ErrMaxBytesLength = errors.New("pade: maximum bytes length exceeded")
)

// Kind classifies a PADE error.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidSize
	KindIncorrectWidth
	KindUnknownVariant
	KindInvalidValue
	KindLimitExceeded
	KindTrailingBytes
)

var kindNames = [...]string{
	KindUnknown:        "unknown",
	KindInvalidSize:    "invalid size",
	KindIncorrectWidth: "incorrect width",
	KindUnknownVariant: "unknown variant",
	KindInvalidValue:   "invalid value",
	KindLimitExceeded:  "limit exceeded",
	KindTrailingBytes:  "trailing bytes",
}

// String returns the kind name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// KindOf returns the kind of a decode failure. It returns KindUnknown for nil
// and for errors that are not decode failures.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidSize):
		return KindInvalidSize
	case errors.Is(err, ErrIncorrectWidth):
		return KindIncorrectWidth
	case errors.Is(err, ErrUnknownVariant):
		return KindUnknownVariant
	case errors.Is(err, ErrInvalidValue):
		return KindInvalidValue
	case IsLimitExceeded(err):
		return KindLimitExceeded
	case errors.Is(err, ErrTrailingBytes):
		return KindTrailingBytes
	default:
		return KindUnknown
	}
}

// DecodeError provides detailed context for decoding failures.
// It implements the error interface and supports error unwrapping.
type DecodeError struct {
	// Type is the name of the type being decoded (if known).
	Type string

	// Field is the name of the field being decoded (if applicable).
	Field string

	// Offset is the byte offset in the input where the error occurred.
	Offset int

	// Message describes what went wrong.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted error message.
func (e *DecodeError) Error() string {
	prefix := qualify(e.Type, e.Field)
	if prefix != "" {
		if e.Offset >= 0 {
			return fmt.Sprintf("pade: decode %s at offset %d: %s", prefix, e.Offset, e.Message)
		}
		return fmt.Sprintf("pade: decode %s: %s", prefix, e.Message)
	}

	if e.Offset >= 0 {
		return fmt.Sprintf("pade: decode at offset %d: %s", e.Offset, e.Message)
	}
	return fmt.Sprintf("pade: decode: %s", e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
// This supports errors.Is() for checking the cause.
func (e *DecodeError) Is(target error) bool {
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// Kind returns the kind of the underlying cause.
func (e *DecodeError) Kind() Kind {
	return KindOf(e.Cause)
}

// NewDecodeError creates a new DecodeError.
func NewDecodeError(message string, cause error) *DecodeError {
	return &DecodeError{
		Offset:  -1,
		Message: message,
		Cause:   cause,
	}
}

// NewDecodeErrorAt creates a new DecodeError with offset information.
func NewDecodeErrorAt(offset int, message string, cause error) *DecodeError {
	return &DecodeError{
		Offset:  offset,
		Message: message,
		Cause:   cause,
	}
}

// EncodeError provides detailed context for encoding failures.
type EncodeError struct {
	// Type is the name of the type being encoded.
	Type string

	// Field is the name of the field being encoded (if applicable).
	Field string

	// Message describes what went wrong.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted error message.
func (e *EncodeError) Error() string {
	if prefix := qualify(e.Type, e.Field); prefix != "" {
		return fmt.Sprintf("pade: encode %s: %s", prefix, e.Message)
	}
	return fmt.Sprintf("pade: encode: %s", e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *EncodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
func (e *EncodeError) Is(target error) bool {
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// NewEncodeError creates a new EncodeError.
func NewEncodeError(message string, cause error) *EncodeError {
	return &EncodeError{
		Message: message,
		Cause:   cause,
	}
}

// LayoutError reports a Go type that cannot be planned, such as an
// unsupported field kind or a width tag wider than the field.
type LayoutError struct {
	Type    string
	Field   string
	Message string
	Cause   error
}

// Error returns a formatted error message.
func (e *LayoutError) Error() string {
	if prefix := qualify(e.Type, e.Field); prefix != "" {
		return fmt.Sprintf("pade: layout %s: %s", prefix, e.Message)
	}
	return fmt.Sprintf("pade: layout: %s", e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *LayoutError) Unwrap() error {
	return e.Cause
}

// RegistrationError represents an error during enum registration.
type RegistrationError struct {
	// Name is the name of the enum being registered.
	Name string

	// Message describes what went wrong.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted error message.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("pade: register %s: %s", e.Name, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *RegistrationError) Unwrap() error {
	return e.Cause
}

// NewRegistrationError creates a new RegistrationError.
func NewRegistrationError(name, message string, cause error) *RegistrationError {
	return &RegistrationError{
		Name:    name,
		Message: message,
		Cause:   cause,
	}
}

// IsFatal returns true if the error indicates a programming error
// that should not occur in correct code.
func IsFatal(err error) bool {
	switch {
	case errors.Is(err, ErrNotPointer),
		errors.Is(err, ErrNilPointer),
		errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrUnregisteredEnum),
		errors.Is(err, ErrUnregisteredVariant),
		errors.Is(err, ErrDuplicateEnum),
		errors.Is(err, ErrDuplicateVariant),
		errors.Is(err, ErrInvalidTag):
		return true
	default:
		return false
	}
}

// IsLimitExceeded returns true if the error indicates a configured limit was exceeded.
func IsLimitExceeded(err error) bool {
	switch {
	case errors.Is(err, ErrMaxDepthExceeded),
		errors.Is(err, ErrMaxSequenceLength),
		errors.Is(err, ErrMaxBytesLength):
		return true
	default:
		return false
	}
}

func qualify(typ, field string) string {
	switch {
	case typ != "" && field != "":
		return typ + "." + field
	case typ != "":
		return typ
	default:
		return field
	}
}
