package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicee/paytrack/internal/auth"
)

func TestAuth(t *testing.T) {
	at := auth.NewAuthToken([]byte("0123456789abcdef"))

	token, err := at.CreateToken("operator")
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := Auth(at)(next)

	tests := []struct {
		name           string
		header         string
		wantStatusCode int
	}{
		{
			name:           "valid_token_return_200",
			header:         "Bearer " + token,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "no_header_return_401",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "not_bearer_return_401",
			header:         "Basic dXNlcjpwYXNz",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid_token_return_401",
			header:         "Bearer not.a.token",
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/payments", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
		})
	}
}
