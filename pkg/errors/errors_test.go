package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInternal, http.StatusTeapot, "brew"), http.StatusTeapot},
		{"wrapped missing field", fmt.Errorf("validating: %w", ErrMissingField), http.StatusBadRequest},
		{"missing column", ErrMissingColumn, http.StatusBadRequest},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"not found", fmt.Errorf("loading: %w", ErrRunNotFound), http.StatusNotFound},
		{"store disabled", ErrStoreDisabled, http.StatusServiceUnavailable},
		{"cache disabled", fmt.Errorf("stats: %w", ErrCacheDisabled), http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "row %d", 3)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid input: row 3", err.Error())
}
