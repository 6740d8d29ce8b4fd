package ingester

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func subEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(Subject(r.Context())))
	})
}

func TestRequireAuth_AnonymousMode(t *testing.T) {
	// WHAT: An empty secret admits everyone as "anonymous".
	h := RequireAuth("")(subEcho())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/documents", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != AnonymousSub {
		t.Fatalf("subject = %q, want %q", rec.Body.String(), AnonymousSub)
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	const secret = "test-secret-0123456789"
	token, err := GenerateToken(secret, "user_42", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	h := RequireAuth(secret)(subEcho())
	req := httptest.NewRequest("GET", "/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "user_42" {
		t.Fatalf("subject = %q", rec.Body.String())
	}
}

func TestRequireAuth_Rejections(t *testing.T) {
	const secret = "test-secret-0123456789"

	expired, err := GenerateToken(secret, "user_42", -time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	wrongKey, err := GenerateToken("other-secret-9876543210", "user_42", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	noSub, err := GenerateToken(secret, "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"missing sub", "Bearer " + noSub},
	}
	h := RequireAuth(secret)(subEcho())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/documents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestValidateToken_RoundTrip(t *testing.T) {
	const secret = "round-trip-secret"
	token, err := GenerateToken(secret, "user_7", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatal(err)
	}
	if sub != "user_7" {
		t.Fatalf("sub = %q", sub)
	}
}
