// Package apperrors defines the typed failures returned by the engine and the wallet ledger.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind groups error codes into the categories the boundary layer maps to transport responses.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindConflict
	KindInvalidInput
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindInvalidInput:
		return "InvalidInput"
	case KindTransient:
		return "Transient"
	case KindUnexpected:
		return "Unexpected"
	}
	return "Unexpected"
}

// Code identifies a specific failure.
type Code string

const (
	CodeBookNotFound      Code = "BOOK_NOT_FOUND"
	CodeWalletNotFound    Code = "WALLET_NOT_FOUND"
	CodeRestockNotFound   Code = "RESTOCK_NOT_FOUND"
	CodeOutOfStock        Code = "OUT_OF_STOCK"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeLimitExceeded     Code = "LIMIT_EXCEEDED"
	CodeAlreadyHeld       Code = "ALREADY_HELD"
	CodeAlreadyOwned      Code = "ALREADY_OWNED"
	CodeNotBorrowed       Code = "NOT_BORROWED"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeWalletExists      Code = "WALLET_EXISTS"
	CodeInvalidQuantity   Code = "INVALID_QUANTITY"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeTransient         Code = "TRANSIENT"
	CodeUnexpected        Code = "UNEXPECTED"
)

// Kind returns the category of the code.
func (c Code) Kind() Kind {
	switch c {
	case CodeBookNotFound, CodeWalletNotFound, CodeRestockNotFound:
		return KindNotFound
	case CodeOutOfStock, CodeInsufficientStock, CodeLimitExceeded, CodeAlreadyHeld,
		CodeAlreadyOwned, CodeNotBorrowed, CodeInsufficientFunds, CodeWalletExists:
		return KindConflict
	case CodeInvalidQuantity, CodeInvalidInput:
		return KindInvalidInput
	case CodeTransient:
		return KindTransient
	case CodeUnexpected:
		return KindUnexpected
	}
	return KindUnexpected
}

// Error is a failure with a stable code and a human readable message.
// Err holds the underlying cause, if any, for diagnostics only.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind returns the category of the error.
func (e *Error) Kind() Kind { return e.Code.Kind() }

// Is matches any *Error with the same code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

var (
	ErrBookNotFound      = &Error{Code: CodeBookNotFound, Message: "book not found"}
	ErrWalletNotFound    = &Error{Code: CodeWalletNotFound, Message: "wallet not found"}
	ErrRestockNotFound   = &Error{Code: CodeRestockNotFound, Message: "restock not found"}
	ErrOutOfStock        = &Error{Code: CodeOutOfStock, Message: "no copies available"}
	ErrInsufficientStock = &Error{Code: CodeInsufficientStock, Message: "not enough copies available"}
	ErrLimitExceeded     = &Error{Code: CodeLimitExceeded, Message: "limit reached"}
	ErrAlreadyHeld       = &Error{Code: CodeAlreadyHeld, Message: "book already borrowed"}
	ErrAlreadyOwned      = &Error{Code: CodeAlreadyOwned, Message: "book already purchased"}
	ErrNotBorrowed       = &Error{Code: CodeNotBorrowed, Message: "book not borrowed by user"}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	ErrWalletExists      = &Error{Code: CodeWalletExists, Message: "wallet for this user already exists"}
	ErrInvalidQuantity   = &Error{Code: CodeInvalidQuantity, Message: "invalid quantity"}
	ErrInvalidInput      = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrTransient         = &Error{Code: CodeTransient, Message: "concurrent update, retry the request"}
)

// New creates an error with a custom message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error with a cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Invalid creates an InvalidInput error with a formatted message.
func Invalid(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code of err, or CodeUnexpected when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnexpected
}

// KindOf extracts the kind of err.
func KindOf(err error) Kind {
	return CodeOf(err).Kind()
}

// MessageOf returns the user facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
