package errors_test

import (
	"fmt"
	"testing"

	"github.com/speakeasy-api/refbundle/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Is_Success(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      errors.Error
		target   error
		expected bool
	}{
		{
			name:     "exact match",
			err:      errors.Error("test error"),
			target:   errors.Error("test error"),
			expected: true,
		},
		{
			name:     "wrapped error with separator",
			err:      errors.Error("test error"),
			target:   errors.Error("test error").Wrap(fmt.Errorf("cause")),
			expected: true,
		},
		{
			name:     "different error",
			err:      errors.Error("test error"),
			target:   errors.Error("other error"),
			expected: false,
		},
		{
			name:     "nil target",
			err:      errors.Error("test error"),
			target:   nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Is(tt.target))
		})
	}
}

func TestError_Wrap_Success(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("disk on fire")
	err := errors.ErrFetchFailure.Wrap(cause)

	assert.Equal(t, "fetch failure -- disk on fire", err.Error())
	require.ErrorIs(t, err, errors.ErrFetchFailure)
	require.ErrorIs(t, err, cause)
}

func TestLocatorError_Success(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("no such file")
	tests := []struct {
		name     string
		err      *errors.LocatorError
		kind     errors.Error
		expected string
	}{
		{
			name:     "fetch",
			err:      errors.NewFetchError("/tmp/a.yaml", cause),
			kind:     errors.ErrFetchFailure,
			expected: "fetch failure -- /tmp/a.yaml: no such file",
		},
		{
			name:     "parse",
			err:      errors.NewParseError("/tmp/a.yaml", cause),
			kind:     errors.ErrParseFailure,
			expected: "parse failure -- /tmp/a.yaml: no such file",
		},
		{
			name:     "pointer",
			err:      errors.NewPointerError("/tmp/a.yaml", "#/components/schemas/Pet", nil),
			kind:     errors.ErrUnresolvedPointer,
			expected: "unresolved pointer -- /tmp/a.yaml#/components/schemas/Pet",
		},
		{
			name:     "circular",
			err:      errors.NewCircularError("/tmp/a.yaml", "#/a"),
			kind:     errors.ErrCircularPointer,
			expected: "self-referencing circular pointer -- /tmp/a.yaml#/a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
			require.ErrorIs(t, tt.err, tt.kind)

			var locErr *errors.LocatorError
			require.ErrorAs(t, fmt.Errorf("wrapped: %w", tt.err), &locErr)
			assert.Equal(t, "/tmp/a.yaml", locErr.Locator)
		})
	}
}

func TestUnwrapErrors_Success(t *testing.T) {
	t.Parallel()

	a := errors.New("a")
	b := errors.New("b")

	assert.Nil(t, errors.UnwrapErrors(nil))
	assert.Equal(t, []error{a}, errors.UnwrapErrors(a))
	assert.Equal(t, []error{a, b}, errors.UnwrapErrors(errors.Join(a, b)))
}
