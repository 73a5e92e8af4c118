package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "email is required", ValidationField("email", "email is required").Error())

	cause := errors.New("boom")
	assert.Equal(t, "save failed: boom", Wrap(cause, ErrCodeInternal, "save failed").Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(cause, ErrCodeUnavailable, "redis down"))

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, ErrCodeUnavailable, GetCode(err))
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "x"))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{name: "unavailable", err: &AppError{Code: ErrCodeUnavailable}, pred: IsUnavailable},
		{name: "timeout", err: &AppError{Code: ErrCodeTimeout}, pred: IsTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
			assert.True(t, tt.pred(fmt.Errorf("wrapped: %w", tt.err)))
			assert.False(t, tt.pred(errors.New("plain")))
		})
	}

	assert.False(t, IsTimeout(&AppError{Code: ErrCodeUnavailable}))
	assert.Empty(t, GetCode(errors.New("plain")))
}
