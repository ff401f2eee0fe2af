package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidStateErrorMatchesKind(t *testing.T) {
	err := NewInvalidState("advance", "adv-1", "paid", "approve")

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.True(t, errors.Is(fmt.Errorf("approve advance: %w", err), ErrInvalidState))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, `cannot approve advance adv-1 in status "paid"`, err.Error())

	var stateErr *InvalidStateError
	assert.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "paid", stateErr.Status)
}
