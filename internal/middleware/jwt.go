package middleware

import (
	"fmt"
	"net/http"
	"time"

	"binledger/internal/common"
	"binledger/internal/config"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const tokenContextKey = "user"

// IdentityClaims carries the acting user. user_id wins over sub when both are
// present.
type IdentityClaims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *IdentityClaims) userID() (uuid.UUID, error) {
	raw := c.UserID
	if raw == "" {
		raw = c.Subject
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("token has no user_id or sub claim")
	}
	return uuid.Parse(raw)
}

// NewJWKSKeyFunc fetches signing keys from a JWKS endpoint and refreshes them in
// the background. The returned stop func ends the refresh goroutine.
func NewJWKSKeyFunc(jwksURL string, logger *zap.Logger) (jwt.Keyfunc, func(), error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("failed to refresh JWKS", zap.String("url", jwksURL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}
	return jwks.Keyfunc, jwks.EndBackground, nil
}

// JWTMiddleware validates the bearer token and stores the caller's user id on
// the request context. keyFunc overrides the shared secret when set. With
// cfg.Optional, requests without an Authorization header pass through with no
// identity.
func JWTMiddleware(cfg config.AuthConfig, keyFunc jwt.Keyfunc) echo.MiddlewareFunc {
	jwtConfig := echojwt.Config{
		ContextKey: tokenContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(IdentityClaims)
		},
		Skipper: func(c echo.Context) bool {
			return cfg.Optional && c.Request().Header.Get(echo.HeaderAuthorization) == ""
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or missing token")
		},
	}
	if keyFunc != nil {
		jwtConfig.KeyFunc = keyFunc
	} else {
		jwtConfig.SigningKey = []byte(cfg.Secret)
	}

	validate := echojwt.WithConfig(jwtConfig)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return validate(attachIdentity(next))
	}
}

func attachIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get(tokenContextKey).(*jwt.Token)
		if !ok {
			return next(c)
		}

		claims, ok := token.Claims.(*IdentityClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid claims")
		}
		userID, err := claims.userID()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid user_id in token")
		}

		c.SetRequest(c.Request().WithContext(common.WithUserID(c.Request().Context(), userID)))
		return next(c)
	}
}
