package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("product %d not found", 7)))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("outer: %w", Conflict("sold"))))
	assert.Equal(t, KindOperation, KindOf(errors.New("boom")))
}

func TestWrapKeepsClassifiedErrors(t *testing.T) {
	forbidden := Forbidden("not yours")
	assert.Same(t, forbidden, Wrap(forbidden, "failed"))

	cause := errors.New("connection reset")
	wrapped := Wrap(cause, "Failed to create purchase")
	assert.True(t, Is(wrapped, KindOperation))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "Failed to create purchase: connection reset", wrapped.Error())
	assert.Nil(t, Wrap(nil, "unused"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", KindNotFound.String())
	assert.Equal(t, "FORBIDDEN", KindAuthorization.String())
	assert.Equal(t, "OPERATION_FAILED", KindOperation.String())
}
