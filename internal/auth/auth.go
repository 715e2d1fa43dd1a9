// Package auth resolves the caller's identity for echo handlers.
//
// With a secret configured, identity comes from an HS256 bearer token whose
// subject is the user id. Without one (development), the X-User-ID header is
// trusted as is.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightscout/internal/models"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderSessionID = "X-Session-ID"

	contextKeyUserID = "flightscout.user_id"
)

var errInvalidToken = errors.New("invalid bearer token")

type Authenticator struct {
	secret []byte
}

func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Middleware stores the resolved user id on the context. Requests without
// credentials pass through anonymously; a bad token is rejected.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := a.resolve(c.Request())
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: err.Error(),
					Code:    http.StatusUnauthorized,
				})
			}
			if userID != "" {
				c.Set(contextKeyUserID, userID)
			}
			return next(c)
		}
	}
}

func (a *Authenticator) resolve(r *http.Request) (string, error) {
	if len(a.secret) == 0 {
		return strings.TrimSpace(r.Header.Get(HeaderUserID)), nil
	}

	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", errInvalidToken)
	}
	return claims.Subject, nil
}

// Issue signs a token for subject. It is used by tests and local tooling.
func (a *Authenticator) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	id, _ := c.Get(contextKeyUserID).(string)
	return id
}

// SessionID keys per-client state: the user id when known, otherwise the
// X-Session-ID header.
func SessionID(c echo.Context) string {
	if id := UserID(c); id != "" {
		return "user:" + id
	}
	if sid := strings.TrimSpace(c.Request().Header.Get(HeaderSessionID)); sid != "" {
		return "session:" + sid
	}
	return ""
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if UserID(c) == "" {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: models.ErrUnauthenticated.Error(),
				Code:    http.StatusUnauthorized,
			})
		}
		return next(c)
	}
}
