package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := New(CodeInsufficientStock, "insufficient stock for %s", "Lomo Saltado")
	assert.Equal(t, CodeInsufficientStock, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))

	wrapped := fmt.Errorf("create order: %w", err)
	assert.Equal(t, CodeInsufficientStock, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, CodeInsufficientStock))
	assert.False(t, IsCode(wrapped, CodeItemNotFound))
}

func TestWrapKeepsChain(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeInternal, "query items", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "query items")
}
