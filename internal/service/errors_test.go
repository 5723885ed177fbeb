package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"stock-alert-service/internal/store"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		in   error
		want error
		kind string
	}{
		{fmt.Errorf("product x: %w", store.ErrNotFound), ErrNotFound, "not_found"},
		{fmt.Errorf("%w: A-1", store.ErrDuplicateSKU), ErrDuplicateSKU, "duplicate_sku"},
		{store.ErrConflict, ErrConflict, "conflict"},
		{context.DeadlineExceeded, ErrStoreFault, "store_fault"},
		{errors.New("connection refused"), ErrStoreFault, "store_fault"},
		{invalid("quantity", "must be >= 0"), ErrValidation, "validation"},
	}
	for _, tc := range cases {
		got := translate(tc.in)
		assert.ErrorIs(t, got, tc.want, tc.in.Error())
		assert.ErrorIs(t, got, tc.in)
		assert.Equal(t, tc.kind, ErrorKind(got))
	}

	assert.NoError(t, translate(nil))
	assert.Equal(t, "", ErrorKind(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(translate(store.ErrConflict)))
	assert.True(t, IsRetryable(translate(errors.New("boom"))))
	assert.False(t, IsRetryable(translate(store.ErrNotFound)))
	assert.False(t, IsRetryable(invalid("name", "is required")))
}
