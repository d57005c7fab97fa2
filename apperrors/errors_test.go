package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("decide: %w", InvalidState("approve", "rejected"))

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, CodeInvalidState, CodeOf(err))
}

func TestCodeOf_ForeignError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestConfiguration_Unwraps(t *testing.T) {
	cause := errors.New("missing file")
	err := Configuration("certificate template unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "missing file")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusUnprocessableEntity},
		{CodeForbidden, http.StatusForbidden},
		{CodeInvalidState, http.StatusConflict},
		{CodeDuplicateActiveRegistration, http.StatusConflict},
		{CodeNotFound, http.StatusNotFound},
		{CodeConfiguration, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}
