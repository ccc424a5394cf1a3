package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/jwsummers/techmetrix/internal/model"
)

// TokenClaims carries the full caller identity so every request can be
// authorized without a user lookup. The demo restriction travels as a
// claim, not a username comparison.
type TokenClaims struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	Demo     bool       `json:"demo"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, identity *model.Identity, dur time.Duration) (string, error) {
	claims := TokenClaims{
		Username: identity.Username,
		Role:     identity.Role,
		Demo:     identity.DemoRestricted,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(dur)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func VerifyToken(secret, tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Wrap(ErrInvalidSigningMethod, token.Header["alg"].(string))
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// IdentityFromToken verifies the token and rebuilds the caller identity.
func IdentityFromToken(secret, tokenString string) (*model.Identity, error) {
	claims, err := VerifyToken(secret, tokenString)
	if err != nil {
		return nil, err
	}
	return &model.Identity{
		ID:             claims.Subject,
		Username:       claims.Username,
		Role:           claims.Role,
		DemoRestricted: claims.Demo,
	}, nil
}
