package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("toggle like: %w", NotFound("post not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Forbidden("x"), http.StatusForbidden},
		{Validation("x"), http.StatusBadRequest},
		{Unauthenticated("x"), http.StatusUnauthorized},
		{Dependency("x", errors.New("redis down")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}

func TestMessageHidesCause(t *testing.T) {
	err := Dependency("storage unavailable", errors.New("dial tcp 10.0.0.1:5432: refused"))

	assert.Equal(t, "storage unavailable", Message(err))
	assert.Contains(t, err.Error(), "refused")
	assert.Equal(t, "internal error", Message(errors.New("secret detail")))
}
