package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/progression-backend/internal/platform/ctxutil"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()
	now := time.Now()

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"valid token", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    "accounts",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}), http.StatusOK},
		{"expired token", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    "accounts",
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		}), http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{
			Subject: userID.String(),
			Issuer:  "accounts",
		}), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject: userID.String(),
			Issuer:  "elsewhere",
		}), http.StatusUnauthorized},
		{"subject not a uuid", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject: "alice",
			Issuer:  "accounts",
		}), http.StatusUnauthorized},
		{"unsigned token", "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.RegisteredClaims{
			Subject: userID.String(),
			Issuer:  "accounts",
		}), http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(NewAuthMiddleware(nil, testSecret, "accounts").RequireAuth())
			var seen uuid.UUID
			r.GET("/api/stats", func(c *gin.Context) {
				seen = ctxutil.UserID(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
			if tc.status == http.StatusOK && seen != userID {
				t.Fatalf("request user = %s, want %s", seen, userID)
			}
		})
	}
}
