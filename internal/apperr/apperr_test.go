package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("gone")))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("raw")))

	// Wrapped errors still expose their code.
	wrapped := fmt.Errorf("loading profile: %w", PermissionDenied("nope"))
	assert.Equal(t, CodePermissionDenied, CodeOf(wrapped))
}

func TestMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "wish not found", Message(NotFound("wish not found")))
	assert.Equal(t, "internal error", Message(Internal("query failed", errors.New("pq: broken"))))
	assert.Equal(t, "internal error", Message(errors.New("pq: broken")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidArg("bad")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("gone")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(PermissionDenied("no")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(FailedPrecondition("nope")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(AlreadyResolved("done")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthenticated("who")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("raw")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := Internal("query failed", cause)
	assert.ErrorIs(t, err, cause)
}
