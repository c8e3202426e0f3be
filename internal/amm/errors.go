// Package amm holds the types shared by the pool engine packages: the error
// taxonomy, trade direction and the authorization context.
package amm

import (
	"errors"
	"fmt"
)

// Kind identifies a class of engine failure. Callers branch on the kind to tell
// slippage apart from liquidity exhaustion or configuration errors.
type Kind string

const (
	KindInvalidFeeRate        Kind = "INVALID_FEE_RATE"
	KindInsufficientLiquidity Kind = "INSUFFICIENT_LIQUIDITY"
	KindZeroAmount            Kind = "ZERO_AMOUNT"
	KindPoolUninitialized     Kind = "POOL_UNINITIALIZED"
	KindAlreadyInitialized    Kind = "ALREADY_INITIALIZED"
	KindSlippageExceeded      Kind = "SLIPPAGE_EXCEEDED"
	KindArithmeticOverflow    Kind = "ARITHMETIC_OVERFLOW"
	KindRepeatedMint          Kind = "REPEATED_MINT"
	KindUnsupportedCurve      Kind = "UNSUPPORTED_CURVE"
	KindInvariantViolation    Kind = "INVARIANT_VIOLATION"
	KindUnauthorized          Kind = "UNAUTHORIZED"
	KindInvalidInput          Kind = "INVALID_INPUT"
)

// Error is the error type returned by the engine packages.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrZeroAmount)
// holds for every zero-amount failure regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Wrap returns a copy of the kind sentinel carrying a formatted message.
func (e *Error) Wrap(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Message: fmt.Sprintf(format, args...)}
}

// WithCause returns a copy of e with cause attached.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Cause: cause}
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrInvalidFeeRate        = newError(KindInvalidFeeRate, "invalid fee rate")
	ErrInsufficientLiquidity = newError(KindInsufficientLiquidity, "insufficient liquidity")
	ErrZeroAmount            = newError(KindZeroAmount, "amount must be greater than zero")
	ErrPoolUninitialized     = newError(KindPoolUninitialized, "pool is not initialized")
	ErrAlreadyInitialized    = newError(KindAlreadyInitialized, "pool is already initialized")
	ErrSlippageExceeded      = newError(KindSlippageExceeded, "output below minimum")
	ErrArithmeticOverflow    = newError(KindArithmeticOverflow, "arithmetic overflow")
	ErrRepeatedMint          = newError(KindRepeatedMint, "pool mints must differ")
	ErrUnsupportedCurve      = newError(KindUnsupportedCurve, "unsupported curve")
	ErrInvariantViolation    = newError(KindInvariantViolation, "constant product decreased")
	ErrUnauthorized          = newError(KindUnauthorized, "operation not authorized")
	ErrInvalidInput          = newError(KindInvalidInput, "invalid input")
)

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
