package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwsummers/techmetrix/internal/model"
)

const testSecretKey = "test-secret-key-for-predictable-results"

func testIdentity() *model.Identity {
	return &model.Identity{
		ID:       "user-1",
		Username: "jsummers",
		Role:     model.RoleUser,
	}
}

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name     string
		identity *model.Identity
		duration time.Duration
	}{
		{
			name:     "success: generate valid user token",
			identity: testIdentity(),
			duration: time.Hour,
		},
		{
			name: "success: generate valid admin token",
			identity: &model.Identity{
				ID:       "admin-1",
				Username: "manager",
				Role:     model.RoleAdmin,
			},
			duration: 30 * time.Minute,
		},
		{
			name: "success: demo restriction survives the round trip",
			identity: &model.Identity{
				ID:             "demo-1",
				Username:       "demoadmin",
				Role:           model.RoleAdmin,
				DemoRestricted: true,
			},
			duration: time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenString, err := GenerateToken(testSecretKey, tt.identity, tt.duration)
			require.NoError(t, err)
			require.NotEmpty(t, tokenString)

			claims, err := VerifyToken(testSecretKey, tokenString)
			require.NoError(t, err)
			assert.Equal(t, tt.identity.ID, claims.Subject)
			assert.Equal(t, tt.identity.Username, claims.Username)
			assert.Equal(t, tt.identity.Role, claims.Role)
			assert.Equal(t, tt.identity.DemoRestricted, claims.Demo)
			assert.WithinDuration(t, time.Now().Add(tt.duration), claims.ExpiresAt.Time, time.Second*5)
		})
	}
}

func TestVerifyToken(t *testing.T) {
	validToken, _ := GenerateToken(testSecretKey, testIdentity(), time.Hour)

	expiredToken, _ := GenerateToken(testSecretKey, testIdentity(), -time.Hour)

	claimsWithWrongMethod := TokenClaims{
		Username: "jsummers",
		Role:     model.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tokenWithWrongMethod := jwt.NewWithClaims(jwt.SigningMethodNone, claimsWithWrongMethod)
	wrongMethodTokenString, _ := tokenWithWrongMethod.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name              string
		secret            string
		tokenString       string
		expectError       bool
		expectedErrorType error
	}{
		{
			name:        "success: verify valid token",
			secret:      testSecretKey,
			tokenString: validToken,
			expectError: false,
		},
		{
			name:              "failure: verify expired token",
			secret:            testSecretKey,
			tokenString:       expiredToken,
			expectError:       true,
			expectedErrorType: jwt.ErrTokenExpired,
		},
		{
			name:              "failure: verify token with invalid signature",
			secret:            "different-secret-key",
			tokenString:       validToken,
			expectError:       true,
			expectedErrorType: jwt.ErrTokenSignatureInvalid,
		},
		{
			name:              "failure: verify malformed token",
			secret:            testSecretKey,
			tokenString:       "not-a-valid-jwt-token",
			expectError:       true,
			expectedErrorType: jwt.ErrTokenMalformed,
		},
		{
			name:              "failure: verify token with wrong signing method",
			secret:            testSecretKey,
			tokenString:       wrongMethodTokenString,
			expectError:       true,
			expectedErrorType: ErrInvalidSigningMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := VerifyToken(tt.secret, tt.tokenString)

			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErrorType)
				assert.Nil(t, claims)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, claims)
			}
		})
	}
}

func TestIdentityFromToken(t *testing.T) {
	identity := &model.Identity{
		ID:             "demo-1",
		Username:       "demoadmin",
		Role:           model.RoleAdmin,
		DemoRestricted: true,
	}
	tokenString, err := GenerateToken(testSecretKey, identity, time.Hour)
	require.NoError(t, err)

	got, err := IdentityFromToken(testSecretKey, tokenString)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	_, err = IdentityFromToken(testSecretKey, "invalid-token")
	assert.Error(t, err)
}
