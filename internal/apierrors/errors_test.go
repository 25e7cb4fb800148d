package apierrors_test

import (
	"net/http"
	"testing"

	"github.com/motohub/go-motohub-client/internal/apierrors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNew_MessageExtraction(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{
			name:        "error field wins",
			body:        `{"error":"Invalid email or password.","detail":"ignored"}`,
			wantMessage: "Invalid email or password.",
		},
		{
			name:        "detail field when no error field",
			body:        `{"detail":"Authentication credentials were not provided."}`,
			wantMessage: "Authentication credentials were not provided.",
		},
		{
			name:        "field arrays flattened in key order",
			body:        `{"password":["This field is required."],"email":["Enter a valid email address."]}`,
			wantMessage: "email: Enter a valid email address.; password: This field is required.",
		},
		{
			name:        "scalar field message",
			body:        `{"mobile":"This mobile number is already in use."}`,
			wantMessage: "mobile: This mobile number is already in use.",
		},
		{
			name:        "unparseable body falls back",
			body:        `<html>Bad Gateway</html>`,
			wantMessage: apierrors.FallbackMessage,
		},
		{
			name:        "empty object falls back",
			body:        `{}`,
			wantMessage: apierrors.FallbackMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := apierrors.New(http.StatusBadRequest, []byte(tt.body))
			require.Equal(t, tt.wantMessage, err.Message)
		})
	}
}

func TestAPIError_SentinelMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, apierrors.ErrUnauthorized},
		{http.StatusForbidden, apierrors.ErrForbidden},
		{http.StatusNotFound, apierrors.ErrNotFound},
		{http.StatusBadRequest, apierrors.ErrValidation},
		{http.StatusConflict, apierrors.ErrValidation},
		{http.StatusServiceUnavailable, apierrors.ErrUnavailable},
		{http.StatusInternalServerError, apierrors.ErrServer},
		{http.StatusBadGateway, apierrors.ErrServer},
	}

	for _, tt := range tests {
		err := apierrors.New(tt.status, nil)
		require.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestMessage(t *testing.T) {
	t.Run("extracts from an APIError anywhere in the chain", func(t *testing.T) {
		apiErr := apierrors.New(http.StatusUnauthorized, []byte(`{"error":"Invalid email or password."}`))
		wrapped := errors.Wrap(apiErr, "[Manager.Login] call")
		require.Equal(t, "Invalid email or password.", apierrors.Message(wrapped))
	})

	t.Run("falls back for non-API errors", func(t *testing.T) {
		require.Equal(t, apierrors.FallbackMessage, apierrors.Message(errors.New("dial tcp: connection refused")))
	})
}

func TestIsUnauthorized(t *testing.T) {
	require.True(t, apierrors.IsUnauthorized(apierrors.New(http.StatusUnauthorized, nil)))
	require.False(t, apierrors.IsUnauthorized(apierrors.New(http.StatusForbidden, nil)))
	require.False(t, apierrors.IsUnauthorized(errors.New("unrelated")))
}

func TestFieldsAreExposed(t *testing.T) {
	err := apierrors.New(http.StatusBadRequest, []byte(`{"password":["Too short.","Too common."]}`))
	require.Equal(t, map[string][]string{"password": {"Too short.", "Too common."}}, err.Fields)
	require.Equal(t, "password: Too short. Too common.", err.Message)
}
