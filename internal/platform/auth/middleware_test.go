package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, key []byte, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, UserIDFromContext(c.Request().Context()))
	})
	return rec, handler(c)
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{Issuer: "mtb-harmonizer", SigningKey: testKey})
	token := signToken(t, testKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator-1",
			Issuer:    "mtb-harmonizer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"operator"},
	})

	rec, err := doRequest(mw, "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != "operator-1" {
		t.Errorf("subject = %q, want operator-1", rec.Body.String())
	}
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{Issuer: "mtb-harmonizer", SigningKey: testKey})

	expired := signToken(t, testKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mtb-harmonizer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongKey := signToken(t, []byte("other-key"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mtb-harmonizer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	wrongIssuer := signToken(t, testKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"wrong issuer", "Bearer " + wrongIssuer},
	}
	for _, tc := range cases {
		_, err := doRequest(mw, tc.header)
		httpErr, ok := err.(*echo.HTTPError)
		if !ok {
			t.Errorf("%s: expected HTTP error, got %v", tc.name, err)
			continue
		}
		if httpErr.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", tc.name, httpErr.Code)
		}
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	rec, err := doRequest(DevAuthMiddleware(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != "dev-user" {
		t.Errorf("subject = %q, want dev-user", rec.Body.String())
	}
}
