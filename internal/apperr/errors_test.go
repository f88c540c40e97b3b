package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := NotFound("user not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))

	wrapped := fmt.Errorf("handling request: %w", Conflict("version conflict"))
	assert.True(t, errors.Is(wrapped, ErrConflict))
}

func TestStorageKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Storage("query users", cause)
	assert.True(t, errors.Is(err, ErrStorage))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDatabase, err.Code)
}

func TestHTTPStatusTable(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:       http.StatusNotFound,
		KindConflict:       http.StatusBadRequest,
		KindValidation:     http.StatusBadRequest,
		KindAuthentication: http.StatusUnauthorized,
		KindStorage:        http.StatusInternalServerError,
		KindUnknown:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus())
	}
}
