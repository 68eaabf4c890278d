package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsMapToStatus(t *testing.T) {
	cases := []struct {
		err    *Error
		kind   Kind
		status int
	}{
		{Validation("bad"), KindValidation, http.StatusBadRequest},
		{Conflict("dup"), KindValidation, http.StatusConflict},
		{Unauthorized("no"), KindUnauthorized, http.StatusUnauthorized},
		{UnknownAccount("who"), KindUnauthorized, http.StatusNotFound},
		{NotFound("gone"), KindNotFound, http.StatusNotFound},
		{Internal("boom", errors.New("db down")), KindInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.kind, tc.err.Kind, tc.err.Message)
		assert.Equal(t, tc.status, tc.err.StatusCode, tc.err.Message)
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	assert.Nil(t, From(nil))

	cause := errors.New("connection reset")
	got := From(cause)
	require.NotNil(t, got)
	assert.Equal(t, KindInternal, got.Kind)
	assert.ErrorIs(t, got, cause)

	wrapped := fmt.Errorf("login: %w", Unauthorized("Invalid user credentials"))
	got = From(wrapped)
	assert.Equal(t, http.StatusUnauthorized, got.StatusCode)
	assert.True(t, IsKind(wrapped, KindUnauthorized))
	assert.False(t, IsKind(cause, KindUnauthorized))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Internal("Something went wrong while registering the user", errors.New("no rows"))
	assert.Equal(t, "Something went wrong while registering the user: no rows", err.Error())
	assert.Equal(t, "All fields are required", Validation("All fields are required").Error())
}

func TestWriteRendersEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(context.Background(), rec, Validation("All fields are required", "email is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"statusCode":400,"data":null,"message":"All fields are required","success":false,"errors":["email is required"]}`, rec.Body.String())
}

func TestWriteHidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(context.Background(), rec, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, rec.Body.String(), `"errors":[]`)
}
