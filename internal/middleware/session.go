package middleware

import (
	"strings"

	"customer-service/internal/identity"
	"customer-service/pkg/config"
	"customer-service/pkg/jwtutil"
	"customer-service/pkg/logger"
	"customer-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TokenValidator parses a bearer token into identity claims
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwtutil.UserClaims, error)
}

// SessionMiddleware resolves the caller's session and stores it on the context.
// It never rejects a request; handlers decide what an anonymous or org-less
// session is allowed to do.
func SessionMiddleware(cfg config.IdentityConfig, tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			var session identity.Session
			if cfg.Mode == config.IdentityModeHeader {
				session = sessionFromHeaders(c, cfg)
			} else {
				session = sessionFromToken(c, tokens, log)
			}

			identity.SetEcho(c, session)
			if session.UserID != "" {
				log = log.With(zap.String("user_id", session.UserID))
				if session.OrgID != "" {
					log = log.With(zap.String("org_id", session.OrgID))
				}
				logger.SetEcho(c, log)
			}

			return next(c)
		}
	}
}

func sessionFromHeaders(c echo.Context, cfg config.IdentityConfig) identity.Session {
	header := c.Request().Header
	return identity.Session{
		UserID: strings.TrimSpace(header.Get(cfg.UserHeader)),
		OrgID:  strings.TrimSpace(header.Get(cfg.OrgHeader)),
	}
}

func sessionFromToken(c echo.Context, tokens TokenValidator, log *zap.Logger) identity.Session {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return identity.Anonymous
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		log.Warn("Invalid Authorization header format")
		prometheus.RecordAuthError("invalid_auth_format")
		return identity.Anonymous
	}

	claims, err := tokens.ValidateToken(parts[1])
	if err != nil {
		log.Warn("Invalid JWT token", zap.Error(err))
		prometheus.RecordAuthError("invalid_token")
		return identity.Anonymous
	}

	return identity.Session{
		UserID:  claims.UserID,
		OrgID:   claims.OrgID,
		OrgName: claims.OrgName,
		Role:    claims.Role,
	}
}
