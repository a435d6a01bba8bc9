package ir

import (
	"errors"
	"fmt"
)

// TranslationError reports why a closure could not be turned into query
// text. Every failure surfaced by the pipeline is one of these, possibly
// wrapped.
type TranslationError struct {
	// Code identifies the error category.
	Code ErrorCode `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Closure is the identity of the closure being translated, when known.
	Closure string `json:"closure,omitempty"`

	// Expr is a rendering of the sub-expression that failed, when known.
	Expr string `json:"expr,omitempty"`
}

// ErrorCode categorizes translation errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedBytecode indicates an instruction outside the
	// supported subset, or a malformed instruction stream.
	ErrCodeUnsupportedBytecode ErrorCode = "UNSUPPORTED_BYTECODE"

	// ErrCodeUnsupportedOperation indicates a call or operator with no
	// query-language equivalent.
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"

	// ErrCodeIrreconcilableBranches indicates a control-flow merge that
	// cannot be expressed as a single expression.
	ErrCodeIrreconcilableBranches ErrorCode = "IRRECONCILABLE_BRANCHES"

	// ErrCodeTypeMismatch indicates operand types with no common
	// representable type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
)

// Error implements the error interface.
func (e *TranslationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Expr != "" {
		msg += fmt.Sprintf(" in %s", e.Expr)
	}
	if e.Closure != "" {
		msg += fmt.Sprintf(" (closure=%s)", shortID(e.Closure))
	}
	return msg
}

// WithClosure returns a copy of e attributed to the given closure. An
// existing attribution is kept.
func (e *TranslationError) WithClosure(id string) *TranslationError {
	cp := *e
	if cp.Closure == "" {
		cp.Closure = id
	}
	return &cp
}

// WithExpr returns a copy of e naming the failing sub-expression. An
// existing, more specific, sub-expression is kept.
func (e *TranslationError) WithExpr(expr string) *TranslationError {
	cp := *e
	if cp.Expr == "" {
		cp.Expr = expr
	}
	return &cp
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// NewUnsupportedBytecode creates an error for an instruction outside the
// supported subset.
func NewUnsupportedBytecode(format string, args ...any) *TranslationError {
	return &TranslationError{Code: ErrCodeUnsupportedBytecode, Message: fmt.Sprintf(format, args...)}
}

// NewUnsupportedOperation creates an error for an untranslatable operation.
func NewUnsupportedOperation(format string, args ...any) *TranslationError {
	return &TranslationError{Code: ErrCodeUnsupportedOperation, Message: fmt.Sprintf(format, args...)}
}

// NewIrreconcilableBranches creates an error for an inexpressible merge.
func NewIrreconcilableBranches(format string, args ...any) *TranslationError {
	return &TranslationError{Code: ErrCodeIrreconcilableBranches, Message: fmt.Sprintf(format, args...)}
}

// NewTypeMismatch creates an error for operands with no common type.
func NewTypeMismatch(format string, args ...any) *TranslationError {
	return &TranslationError{Code: ErrCodeTypeMismatch, Message: fmt.Sprintf(format, args...)}
}

// AsTranslationError extracts a TranslationError from err's chain.
func AsTranslationError(err error) (*TranslationError, bool) {
	var te *TranslationError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsUnsupportedBytecode reports whether err is an unsupported bytecode error.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedBytecode(err error) bool {
	return hasCode(err, ErrCodeUnsupportedBytecode)
}

// IsUnsupportedOperation reports whether err is an unsupported operation error.
func IsUnsupportedOperation(err error) bool {
	return hasCode(err, ErrCodeUnsupportedOperation)
}

// IsIrreconcilableBranches reports whether err is an irreconcilable branches error.
func IsIrreconcilableBranches(err error) bool {
	return hasCode(err, ErrCodeIrreconcilableBranches)
}

// IsTypeMismatch reports whether err is a type mismatch error.
func IsTypeMismatch(err error) bool {
	return hasCode(err, ErrCodeTypeMismatch)
}

func hasCode(err error, code ErrorCode) bool {
	te, ok := AsTranslationError(err)
	return ok && te.Code == code
}
