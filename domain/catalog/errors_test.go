package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate", errors.New("add-to-cart: duplicate entry"), ErrDuplicateEntry},
		{"out of stock", errors.New("service error: out of stock"), ErrOutOfStock},
		{"not found", errors.New("get prod_0009: not found"), ErrNotFound},
		{"invalid input", errors.New("invalid input: name is required"), ErrInvalidInput},
		{"invalid token", errors.New("invalid token: unknown kind"), ErrInvalidToken},
		{"already wrapped", fmt.Errorf("x: %w", ErrOutOfStock), ErrOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, FromServiceError(tt.err), tt.want)
		})
	}

	assert.NoError(t, FromServiceError(nil))

	stream := FromServiceError(errors.New("get product: persistence failure: nats: stream not found"))
	assert.ErrorIs(t, stream, ErrPersistence)
	assert.NotErrorIs(t, stream, ErrNotFound)

	stock := FromServiceError(errors.New("decrement free_0001: persistence failure: out of stock check failed"))
	assert.ErrorIs(t, stock, ErrPersistence)
	assert.NotErrorIs(t, stock, ErrOutOfStock)

	other := errors.New("connection refused")
	assert.Same(t, other, FromServiceError(other))
	assert.False(t, IsDomainError(fmt.Errorf("%w: disk full", ErrPersistence)))
}
