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
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nobleverse/noble/config"
	"github.com/nobleverse/noble/internal/apierror"
	"github.com/sirupsen/logrus"
)

const (
	AuthorizationHeader = "Authorization"
	callerKey           = "noble.caller_id"
)

var errNoSecret = errors.New("session secret is not configured")

// AuthMiddleware verifies HS256 session tokens issued by the auth provider.
// The token subject is the caller's user id.
type AuthMiddleware struct {
	secret []byte
	parser *jwt.Parser
}

// NewAuthMiddleware creates a new instance of AuthMiddleware.
func NewAuthMiddleware(conf config.AuthConfig) *AuthMiddleware {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if conf.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(conf.Issuer))
	}
	return &AuthMiddleware{
		secret: []byte(conf.JWTSecret),
		parser: jwt.NewParser(opts...),
	}
}

// Authenticate rejects the request with UNAUTH unless it carries a valid
// bearer token. On success the caller id is available through CallerID.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearer(c)
		if raw == "" {
			abortUnauthorized(c, "Authentication required. Use the Authorization: Bearer header")
			return
		}

		subject, err := m.subject(raw)
		if err != nil {
			logrus.WithError(err).Debug("session token rejected")
			abortUnauthorized(c, "invalid session")
			return
		}

		c.Set(callerKey, subject)
		c.Next()
	}
}

func (m *AuthMiddleware) subject(raw string) (string, error) {
	if len(m.secret) == 0 {
		return "", errNoSecret
	}

	claims := &jwt.RegisteredClaims{}
	_, err := m.parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("session token has no subject")
	}
	return claims.Subject, nil
}

// CallerID returns the authenticated user id, or "" on public routes.
func CallerID(c *gin.Context) string {
	return c.GetString(callerKey)
}

func extractBearer(c *gin.Context) string {
	header := c.GetHeader(AuthorizationHeader)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.APIError{
		Code:    apierror.ErrUnauthorized,
		Message: detail,
	})
}
