package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes the purpose a token was issued for.
type TokenKind string

const (
	TokenAccess        TokenKind = "access"
	TokenRefresh       TokenKind = "refresh"
	TokenPasswordReset TokenKind = "password_reset"
)

// ErrWrongTokenKind is returned when a valid token is presented for the wrong purpose.
var ErrWrongTokenKind = errors.New("token was issued for a different purpose")

// Claims is the JWT payload issued by JWTIssuer.
type Claims struct {
	UserID  string    `json:"user_id"`
	IsStaff bool      `json:"is_staff,omitempty"`
	Kind    TokenKind `json:"token_type"`
	jwt.RegisteredClaims
}

// UserUUID parses the embedded user ID.
func (c *Claims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// TokenPair is an access/refresh pair returned on login.
type TokenPair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// JWTIssuer signs and validates HS256 tokens.
type JWTIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

// NewJWTIssuer builds an issuer with the given lifetimes.
func NewJWTIssuer(secret string, accessTTL, refreshTTL, resetTTL time.Duration) *JWTIssuer {
	return &JWTIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source.
func (j *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	j.now = now
	return j
}

func (j *JWTIssuer) sign(userID uuid.UUID, isStaff bool, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	issued := j.now()
	expires := issued.Add(ttl)
	claims := &Claims{
		UserID:  userID.String(),
		IsStaff: isStaff,
		Kind:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(issued),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	return signed, expires, err
}

// IssuePair creates an access and a refresh token for the user.
func (j *JWTIssuer) IssuePair(userID uuid.UUID, isStaff bool) (TokenPair, error) {
	access, accessExp, err := j.sign(userID, isStaff, TokenAccess, j.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := j.sign(userID, isStaff, TokenRefresh, j.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh, AccessExpiresAt: accessExp, RefreshExpiresAt: refreshExp}, nil
}

// IssueReset creates a short-lived token authorizing one password reset.
func (j *JWTIssuer) IssueReset(userID uuid.UUID) (string, time.Time, error) {
	return j.sign(userID, false, TokenPasswordReset, j.resetTTL)
}

// Parse validates the token signature, expiry and purpose.
func (j *JWTIssuer) Parse(tokenString string, kind TokenKind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}
