package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "0123456789abcdef0123456789abcdef"

func fixedVerifier(issuer string) *Verifier {
	v := NewVerifier(secret, issuer)
	v.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return v
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestVerifier_UserID(t *testing.T) {
	v := fixedVerifier("finance")
	now := v.now()
	valid := jwt.RegisteredClaims{
		Subject:   "42",
		Issuer:    "finance",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	with := func(mutate func(*jwt.RegisteredClaims)) jwt.RegisteredClaims {
		c := valid
		mutate(&c)
		return c
	}

	tests := []struct {
		name    string
		token   string
		want    int64
		wantErr bool
	}{
		{"valid", sign(t, jwt.SigningMethodHS256, []byte(secret), valid), 42, false},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other-secret-other-secret-other!"), valid), 0, true},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, []byte(secret), valid), 0, true},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(secret), with(func(c *jwt.RegisteredClaims) {
			c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
		})), 0, true},
		{"no expiry", sign(t, jwt.SigningMethodHS256, []byte(secret), with(func(c *jwt.RegisteredClaims) {
			c.ExpiresAt = nil
		})), 0, true},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, []byte(secret), with(func(c *jwt.RegisteredClaims) {
			c.Issuer = "someone-else"
		})), 0, true},
		{"non numeric subject", sign(t, jwt.SigningMethodHS256, []byte(secret), with(func(c *jwt.RegisteredClaims) {
			c.Subject = "alice"
		})), 0, true},
		{"zero subject", sign(t, jwt.SigningMethodHS256, []byte(secret), with(func(c *jwt.RegisteredClaims) {
			c.Subject = "0"
		})), 0, true},
		{"garbage", "not.a.token", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.UserID(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("err = %v, want ErrInvalidToken", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("UserID = %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func TestVerifier_IssueRoundTrip(t *testing.T) {
	v := fixedVerifier("finance")
	token, err := v.Issue(7, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if id, err := v.UserID(token); err != nil || id != 7 {
		t.Fatalf("UserID = %d, %v", id, err)
	}
}

func TestMiddleware(t *testing.T) {
	v := fixedVerifier("finance")
	token, _ := v.Issue(3, time.Hour)

	var gotErr error
	h := v.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserFromContext(r.Context())
		if !ok || id != 3 {
			t.Errorf("user = %d, %v", id, ok)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		header  string
		want    int
		wantErr error
	}{
		{"valid", "Bearer " + token, http.StatusNoContent, nil},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent, nil},
		{"missing", "", http.StatusUnauthorized, ErrMissingToken},
		{"basic auth", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ErrMissingToken},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotErr = nil
			req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.wantErr != nil && !errors.Is(gotErr, tt.wantErr) {
				t.Fatalf("err = %v, want %v", gotErr, tt.wantErr)
			}
		})
	}
}
