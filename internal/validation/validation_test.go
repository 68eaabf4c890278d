package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/apierror"
)

type registerForm struct {
	FullName string `form:"fullName" validate:"notblank"`
	Email    string `form:"email" validate:"notblank,email"`
}

type loginBody struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"notblank"`
}

func TestStructRejectsBlankStrings(t *testing.T) {
	err := Struct(registerForm{FullName: "   ", Email: "a@example.com"}, "All fields are required")
	require.Error(t, err)

	apiErr := apierror.From(err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "All fields are required", apiErr.Message)
	assert.Equal(t, []string{"fullName is required"}, apiErr.Errors)
}

func TestStructAcceptsValidInput(t *testing.T) {
	assert.NoError(t, Struct(registerForm{FullName: "Alice", Email: "a@example.com"}, "bad"))
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr []string
	}{
		{name: "valid", body: `{"email":"a@example.com","password":"pw"}`},
		{name: "empty body", body: ``, wantErr: []string{"username is required when Email is missing", "password is required"}},
		{name: "blank password", body: `{"username":"alice","password":"  "}`, wantErr: []string{"password is required"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst loginBody
			err := DecodeJSON(r, &dst, "invalid login")
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantErr, apierror.From(err).Errors)
		})
	}
}

func TestDecodeJSONMalformed(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":`))
	var dst loginBody
	err := DecodeJSON(r, &dst, "invalid login")
	require.Error(t, err)
	assert.Equal(t, "Invalid JSON body", apierror.From(err).Message)
}
