package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIKeyAuth(t *testing.T) {
	const key = "backend-secret"

	handler := APIKeyAuth(key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"wrong key via header", "X-API-Key", "nope", http.StatusForbidden},
		{"wrong key via bearer", "Authorization", "Bearer nope", http.StatusForbidden},
		{"valid key via header", "X-API-Key", key, http.StatusNoContent},
		{"valid key via bearer", "Authorization", "Bearer " + key, http.StatusNoContent},
		{"non-bearer authorization ignored", "Authorization", "Basic dXNlcg==", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/jobs", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequestAPIKeyPrefersHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-API-Key", "from-header")
	req.Header.Set("Authorization", "Bearer from-bearer")

	if got := requestAPIKey(req); got != "from-header" {
		t.Errorf("requestAPIKey = %q, want the X-API-Key value", got)
	}
}
