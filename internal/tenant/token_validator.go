package tenant

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// TokenVerifier verifies a bearer token and returns the identity it carries
type TokenVerifier interface {
	ValidateJWT(tokenString string) (*types.UserClaims, error)
}

// AccessTokenClaims are the claims the identity provider puts in its access tokens.
// The subject is the user id.
type AccessTokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator implements HS256 access token validation
type TokenValidator struct {
	jwtSecret []byte
	audience  string
}

// NewTokenValidator creates a new token validator. An empty audience disables the audience check.
func NewTokenValidator(secret, audience string) *TokenValidator {
	return &TokenValidator{
		jwtSecret: []byte(secret),
		audience:  audience,
	}
}

// ValidateJWT validates signature, expiry and audience and returns the caller's identity
func (tv *TokenValidator) ValidateJWT(tokenString string) (*types.UserClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if tv.audience != "" {
		opts = append(opts, jwt.WithAudience(tv.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tv.jwtSecret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return &types.UserClaims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
