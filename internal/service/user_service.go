package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jwsummers/techmetrix/internal/db"
	"github.com/jwsummers/techmetrix/internal/model"
	"github.com/jwsummers/techmetrix/internal/repository"
	"github.com/jwsummers/techmetrix/pkg/logger"
)

type UserService struct {
	tx db.Transactor

	users repository.UserRepository
}

func NewUserService(tx db.Transactor) *UserService {
	return &UserService{tx: tx}
}

// SearchUsers matches usernames case-insensitively; an empty query matches
// everyone. Any authenticated caller may search, independent of team
// ownership.
func (u *UserService) SearchUsers(ctx context.Context, caller *model.Identity, query string) ([]*model.UserSummary, *Error) {
	l := logger.FromContext(ctx)

	if caller == nil || caller.ID == "" {
		return nil, NewError(ErrorCodeUnauthenticated, "authentication required")
	}

	users, err := u.users.Search(ctx, query)
	if err != nil {
		l.Error("failed to search users", zap.String("query", query), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to search users")
	}

	summaries := make([]*model.UserSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, &model.UserSummary{
			ID:       user.ID,
			Username: user.Username,
		})
	}

	return summaries, nil
}

func (u *UserService) WithUserRepo(r repository.UserRepository) *UserService {
	u.users = r
	return u
}
