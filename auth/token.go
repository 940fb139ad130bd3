package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaim mirrors the {"user": {"id": ...}} payload issued to web clients.
type UserClaim struct {
	ID string `json:"id"`
}

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	User UserClaim `json:"user"`
	jwt.RegisteredClaims
}

// Tokens issues and validates signed session credentials.
// The secret is injected from configuration, never hard-coded.
type Tokens struct {
	secret   []byte
	issuer   string
	duration time.Duration
	now      func() time.Time
}

func NewTokens(secret, issuer string, duration time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer, duration: duration, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now
	return t
}

// GenerateToken creates an HS256 signed JWT for a specific user.
func (t *Tokens) GenerateToken(userID string) (string, error) {
	issuedAt := t.now()
	claims := &CustomClaims{
		User: UserClaim{ID: userID},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    t.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateToken checks signature, algorithm, issuer and expiration of a JWT string.
func (t *Tokens) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
