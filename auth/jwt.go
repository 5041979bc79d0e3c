package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTCookieName is the global-keyed session cookie set after a
// WordPress-verified login. Distinct from the tenant-keyed SSO cookie.
const JWTCookieName = "auth-token"

// JWTSessionTTL is the lifetime of a WordPress-verified session.
const JWTSessionTTL = 7 * 24 * time.Hour

// SessionClaims are the claims carried by the global-keyed session
// token. ShopID is set when a shop record exists for the site origin.
type SessionClaims struct {
	Site   string `json:"site"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	ShopID string `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTCodec mints and reads HS256 session tokens under a single
// server-wide secret. Used only for the WordPress-verified login flow,
// where identity comes from a third-party verification call rather
// than a per-tenant secret.
type JWTCodec struct {
	secret []byte
	now    func() time.Time
}

// NewJWTCodec creates a codec signing with the given server secret.
func NewJWTCodec(secret string) *JWTCodec {
	return &JWTCodec{secret: []byte(secret), now: time.Now}
}

// WithClock overrides the codec clock. Test hook.
func (c *JWTCodec) WithClock(now func() time.Time) *JWTCodec {
	c.now = now
	return c
}

// Mint signs a session token with the given lifetime.
func (c *JWTCodec) Mint(claims SessionClaims, ttl time.Duration) (string, error) {
	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Read parses and validates a session token, rejecting any signing
// method other than HMAC before the signature is checked.
func (c *JWTCodec) Read(value string) (*SessionClaims, error) {
	if value == "" {
		return nil, ErrMissingCredential
	}
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		if claims.ExpiresAt != nil && !c.now().Before(claims.ExpiresAt.Time) {
			return nil, ErrExpiredCredential
		}
		return nil, ErrInvalidCredential
	}
	if !token.Valid {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// TenantID returns the tenant identity asserted by the claims: the
// provisioned shop id when present, otherwise the site origin.
func (sc *SessionClaims) TenantID() string {
	if sc.ShopID != "" {
		return sc.ShopID
	}
	return sc.Site
}
