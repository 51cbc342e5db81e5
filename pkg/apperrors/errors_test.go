package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	cases := map[Code]Kind{
		CodeBookNotFound:      KindNotFound,
		CodeWalletNotFound:    KindNotFound,
		CodeRestockNotFound:   KindNotFound,
		CodeOutOfStock:        KindConflict,
		CodeInsufficientStock: KindConflict,
		CodeLimitExceeded:     KindConflict,
		CodeAlreadyHeld:       KindConflict,
		CodeAlreadyOwned:      KindConflict,
		CodeNotBorrowed:       KindConflict,
		CodeInsufficientFunds: KindConflict,
		CodeWalletExists:      KindConflict,
		CodeInvalidQuantity:   KindInvalidInput,
		CodeInvalidInput:      KindInvalidInput,
		CodeTransient:         KindTransient,
		CodeUnexpected:        KindUnexpected,
		Code("SOMETHING_ELSE"): KindUnexpected,
	}
	for code, kind := range cases {
		t.Run(string(code), func(t *testing.T) {
			assert.Equal(t, kind, code.Kind())
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeOutOfStock, "book \"Dune\" has no copies left")
	wrapped := fmt.Errorf("borrow: %w", err)

	assert.ErrorIs(t, wrapped, ErrOutOfStock)
	assert.NotErrorIs(t, wrapped, ErrInsufficientStock)
	assert.Equal(t, CodeOutOfStock, CodeOf(wrapped))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, "book \"Dune\" has no copies left", MessageOf(wrapped))
}

func TestForeignErrors(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, CodeUnexpected, CodeOf(err))
	assert.Equal(t, KindUnexpected, KindOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("lock timeout")
	err := Wrap(CodeTransient, "concurrent update", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Contains(t, err.Error(), "lock timeout")
	assert.Equal(t, "Transient", err.Kind().String())
}

func TestInvalid(t *testing.T) {
	err := Invalid("amount must be greater than 0, got %s", "-1")

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "amount must be greater than 0, got -1", err.Message)
}
