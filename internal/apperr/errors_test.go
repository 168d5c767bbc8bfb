package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		Unauthenticated("x"):     http.StatusUnauthorized,
		Forbidden("x"):           http.StatusForbidden,
		Validation("x"):          http.StatusBadRequest,
		NotFound("x"):            http.StatusNotFound,
		Conflict("x"):            http.StatusConflict,
		Internal(errors.New("")): http.StatusInternalServerError,
		errors.New("foreign"):    http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Forbidden("cannot modify own account"))

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, Forbidden("cannot modify own account")))
	assert.False(t, errors.Is(err, Forbidden("cannot modify other master admin")))
}

func TestPublicMessageHidesInternalCause(t *testing.T) {
	err := Internal(errors.New("connection reset by peer"))

	assert.Equal(t, "internal error", PublicMessage(err))
	assert.Equal(t, "invalid credentials", PublicMessage(ErrInvalidCredentials))
	assert.ErrorContains(t, err, "connection reset")
}
