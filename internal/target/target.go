package target

import (
	"context"
	"errors"
	"fmt"
)

// Target is an already-connected client able to issue one named unary call.
// Connection lifecycle belongs to the caller; the engine only invokes.
type Target interface {
	Invoke(ctx context.Context, method string, payload any, metadata map[string]string) error
}

// TargetFunc adapts a plain function to the Target interface.
type TargetFunc func(ctx context.Context, method string, payload any, metadata map[string]string) error

func (f TargetFunc) Invoke(ctx context.Context, method string, payload any, metadata map[string]string) error {
	return f(ctx, method, payload, metadata)
}

// StatusCoder is implemented by errors that carry a transport status code.
type StatusCoder interface {
	StatusCode() Code
}

// Error is a classified transport failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.String()
}

func (e *Error) StatusCode() Code {
	return e.Code
}

// Errorf builds a classified failure with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Classify derives the outcome classification and failure message for a
// call error. The classification comes from the transport status code when
// the error carries one; errors without a code classify as UNKNOWN. The
// message is the error text, falling back to the stringified code, falling
// back to "Unknown error".
func Classify(err error) (status, message string) {
	code := Unknown
	coded := false

	var sc StatusCoder
	if errors.As(err, &sc) {
		code = sc.StatusCode()
		coded = true
	}

	message = err.Error()
	if message == "" && coded {
		message = code.String()
	}
	if message == "" {
		message = "Unknown error"
	}
	return code.String(), message
}
