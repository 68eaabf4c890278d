package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
)

var (
	// ErrInvalidToken indicates a token failed signature or claim validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates a correctly signed token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access and refresh tokens. The two token
// kinds use separate secrets so one can never be presented as the other.
type TokenIssuer struct {
	issuer        string
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	Issuer        string
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// NewTokenIssuer constructs a TokenIssuer from cfg.
func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		panic("auth: token secrets must not be empty")
	}
	return &TokenIssuer{
		issuer:        cfg.Issuer,
		accessSecret:  []byte(cfg.AccessSecret),
		accessTTL:     cfg.AccessTTL,
		refreshSecret: []byte(cfg.RefreshSecret),
		refreshTTL:    cfg.RefreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// IssueAccessToken signs a short-lived token carrying display claims.
func (t *TokenIssuer) IssueAccessToken(user models.User) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.accessTTL)
	claims := AccessClaims{
		UserID:           user.ID,
		Email:            user.Email,
		Username:         user.Username,
		FullName:         user.FullName,
		RegisteredClaims: t.registered(user.ID, now, expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires, nil
}

// IssueRefreshToken signs a long-lived token carrying only the user id.
func (t *TokenIssuer) IssueRefreshToken(user models.User) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.refreshTTL)
	claims := RefreshClaims{
		UserID:           user.ID,
		RegisteredClaims: t.registered(user.ID, now, expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, expires, nil
}

// ParseAccessToken validates an access token's signature and expiry.
func (t *TokenIssuer) ParseAccessToken(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := t.parse(token, &claims, t.accessSecret); err != nil {
		return AccessClaims{}, err
	}
	if claims.UserID == "" {
		return AccessClaims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// ParseRefreshToken validates a refresh token's signature and expiry. It does
// not check the token against the stored value; see Manager.VerifyRefreshToken.
func (t *TokenIssuer) ParseRefreshToken(token string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := t.parse(token, &claims, t.refreshSecret); err != nil {
		return RefreshClaims{}, err
	}
	if claims.UserID == "" {
		return RefreshClaims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func (t *TokenIssuer) registered(subject string, now, expires time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
