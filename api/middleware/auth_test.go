/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nobleverse/noble/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

const testSecret = "session-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func validClaims(subject string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "noble-auth",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	m := NewAuthMiddleware(config.AuthConfig{JWTSecret: testSecret, Issuer: "noble-auth"})
	router.GET("/me", m.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"caller": CallerID(c)})
	})
	return router
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	expired := validClaims("usr_1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := validClaims("usr_1")
	wrongIssuer.Issuer = "someone-else"
	noExpiry := validClaims("usr_1")
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name         string
		header       string
		expectedCode int
		expectedUser string
	}{
		{
			name:         "Valid session",
			header:       "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("usr_1")),
			expectedCode: http.StatusOK,
			expectedUser: "usr_1",
		},
		{
			name:         "Lowercase scheme",
			header:       "bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("usr_2")),
			expectedCode: http.StatusOK,
			expectedUser: "usr_2",
		},
		{
			name:         "Missing header",
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Wrong secret",
			header:       "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, validClaims("usr_1")),
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Wrong algorithm",
			header:       "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS512, validClaims("usr_1")),
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Expired",
			header:       "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, expired),
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "No expiry",
			header:       "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, noExpiry),
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Wrong issuer",
			header:       "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, wrongIssuer),
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Empty subject",
			header:       "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("")),
			expectedCode: http.StatusUnauthorized,
		},
	}

	router := authRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(AuthorizationHeader, tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, tt.expectedCode, resp.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			if tt.expectedCode == http.StatusOK {
				assert.Equal(t, tt.expectedUser, body["caller"])
			} else {
				assert.Equal(t, "UNAUTH", body["error"])
			}
		})
	}
}

func TestAuthMiddlewareWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	m := NewAuthMiddleware(config.AuthConfig{})
	router.GET("/me", m.Authenticate(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(AuthorizationHeader, "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("usr_1")))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(config.RateLimitConfig{
		RequestsPerSecond:  ptr.Float64(1),
		Burst:              ptr.Int(1),
		CleanupIntervalSec: ptr.Int(60),
	}))
	router.POST("/api/tracking/ingest", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/tracking/ingest", nil))
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/tracking/ingest", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), ErrRateLimited)
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(config.RateLimitConfig{}))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.Code)
	}
}
