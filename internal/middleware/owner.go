package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"storefront-checkout/internal/config"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// UserIDHeader carries an identity already authenticated upstream.
	UserIDHeader = "X-User-Id"

	ownerKey = "owner_token"
)

// OwnerTokens signs and verifies the anonymous owner cookie.
type OwnerTokens struct {
	secret          []byte
	ttl             time.Duration
	cookieName      string
	secure          bool
	trustUserHeader bool
}

func NewOwnerTokens(ownerCfg config.Owner, secure bool) *OwnerTokens {
	return &OwnerTokens{
		secret:          []byte(ownerCfg.TokenSecret),
		ttl:             ownerCfg.TokenTTL,
		cookieName:      ownerCfg.CookieName,
		secure:          secure,
		trustUserHeader: ownerCfg.TrustUserHeader,
	}
}

func (o *OwnerTokens) Issue(anonID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   anonID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(o.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(o.secret)
}

// Parse returns the anonymous id carried by a valid token.
func (o *OwnerTokens) Parse(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return o.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("owner token has no subject")
	}
	return claims.Subject, nil
}

// Owner resolves the caller's owner token. When the upstream user header is
// trusted, a user id there wins. Otherwise the signed cookie is used, and a
// fresh anonymous one is issued when it is missing or invalid.
func Owner(tokens *OwnerTokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID := c.Request().Header.Get(UserIDHeader); userID != "" && tokens.trustUserHeader {
				c.Set(ownerKey, "user:"+userID)
				return next(c)
			}

			if cookie, err := c.Cookie(tokens.cookieName); err == nil {
				if anonID, err := tokens.Parse(cookie.Value); err == nil {
					c.Set(ownerKey, "anon:"+anonID)
					return next(c)
				}
			}

			anonID := uuid.NewString()
			signed, err := tokens.Issue(anonID, time.Now())
			if err != nil {
				return fmt.Errorf("issue owner token: %w", err)
			}
			c.SetCookie(&http.Cookie{
				Name:     tokens.cookieName,
				Value:    signed,
				Path:     "/",
				MaxAge:   int(tokens.ttl.Seconds()),
				HttpOnly: true,
				Secure:   tokens.secure,
				SameSite: http.SameSiteLaxMode,
			})

			c.Set(ownerKey, "anon:"+anonID)
			return next(c)
		}
	}
}

func OwnerFromContext(c echo.Context) string {
	owner, _ := c.Get(ownerKey).(string)
	return owner
}
