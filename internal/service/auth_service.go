package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwsummers/techmetrix/internal/auth"
	"github.com/jwsummers/techmetrix/internal/db"
	"github.com/jwsummers/techmetrix/internal/model"
	"github.com/jwsummers/techmetrix/internal/repository"
	"github.com/jwsummers/techmetrix/pkg/logger"
)

// AuthService is the credential/session provider: it turns username and
// password into a signed identity token the rest of the system authorizes
// against.
type AuthService struct {
	tx db.Transactor

	users repository.UserRepository

	tokenSecret string
	tokenTTL    time.Duration
	bcryptCost  int
}

func NewAuthService(tx db.Transactor, tokenSecret string, tokenTTL time.Duration, bcryptCost int) *AuthService {
	return &AuthService{
		tx:          tx,
		tokenSecret: tokenSecret,
		tokenTTL:    tokenTTL,
		bcryptCost:  bcryptCost,
	}
}

func (a *AuthService) Register(ctx context.Context, name, username, password string, role model.Role) (*model.User, *Error) {
	l := logger.FromContext(ctx)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		l.Error("failed to hash password", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to register")
	}

	user := &repository.User{
		ID:       uuid.NewString(),
		Name:     name,
		Username: username,
		Password: string(hash),
		Role:     string(role),
	}

	err = a.users.Create(ctx, user)
	if errors.Is(err, repository.ErrAlreadyExists) {
		l.Warn("username already taken", zap.String("username", username))
		return nil, NewError(ErrorCodeUserExists, "username already taken")
	}
	if err != nil {
		l.Error("failed to create user", zap.String("username", username), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to register")
	}

	l.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))

	return userFromRepo(user), nil
}

// Login verifies the credentials and issues a session token carrying the
// caller's identity, including the data-driven demo restriction flag.
func (a *AuthService) Login(ctx context.Context, username, password string) (string, *model.Identity, *Error) {
	l := logger.FromContext(ctx)

	user, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, NewError(ErrorCodeInvalidCredentials, "invalid username or password")
	}
	if err != nil {
		l.Error("failed to get user", zap.String("username", username), zap.Error(err))
		return "", nil, NewError(ErrorCodeUnspecified, "failed to log in")
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, NewError(ErrorCodeInvalidCredentials, "invalid username or password")
	}

	identity := &model.Identity{
		ID:             user.ID,
		Username:       user.Username,
		Role:           model.Role(user.Role),
		DemoRestricted: user.IsDemo,
	}

	token, err := auth.GenerateToken(a.tokenSecret, identity, a.tokenTTL)
	if err != nil {
		l.Error("failed to generate token", zap.String("user_id", user.ID), zap.Error(err))
		return "", nil, NewError(ErrorCodeUnspecified, "failed to log in")
	}

	l.Info("user logged in", zap.String("user_id", user.ID))

	return token, identity, nil
}

func (a *AuthService) WithUserRepo(r repository.UserRepository) *AuthService {
	a.users = r
	return a
}
