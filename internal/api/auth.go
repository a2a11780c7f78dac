package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"discipline-journal/internal/audit"
	"discipline-journal/internal/logging"
)

const userIDKey = "user_id"

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	// TTL applies to issued tokens.
	TTL time.Duration
}

// Claims are the verified token claims. Subject is the user ID; SessionID is
// carried through for clients that track logins.
type Claims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

var errMissingBearer = errors.New("missing or invalid Authorization header")

// Auth verifies an HS256 bearer token and stores its subject as the acting
// user. Rejections are written to the audit trail.
func Auth(cfg AuthConfig, auditLog *audit.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := ParseToken(cfg, c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				ctx := c.Request().Context()
				_ = auditLog.Rejected(ctx, audit.ActionAuthRejected, "", "", "UNAUTHORIZED", err)
				logger := logging.FromContext(ctx)
				logger.Debug().Err(err).Msg("Bearer token rejected")

				if errors.Is(err, errMissingBearer) {
					return UnauthorizedResponse(c, err.Error())
				}
				return UnauthorizedResponse(c, "invalid or expired token")
			}

			c.Set(userIDKey, claims.Subject)
			ctx := logging.WithLogger(c.Request().Context(),
				logging.WithUser(logging.FromContext(c.Request().Context()), claims.Subject))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// UserID returns the authenticated user of the request.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// ParseToken verifies an Authorization header value.
func ParseToken(cfg AuthConfig, header string) (*Claims, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errMissingBearer
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return nil, errMissingBearer
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token not valid")
	}
	if cfg.Issuer != "" && !claims.VerifyIssuer(cfg.Issuer, true) {
		return nil, errors.New("unexpected issuer")
	}
	if cfg.Audience != "" && !claims.VerifyAudience(cfg.Audience, true) {
		return nil, errors.New("unexpected audience")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// IssueToken signs a token for userID.
func IssueToken(cfg AuthConfig, userID string, now time.Time) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	if userID == "" {
		return "", errors.New("empty user id")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	claims := Claims{
		SessionID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
}
