package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jwsummers/techmetrix/internal/authz"
	"github.com/jwsummers/techmetrix/internal/db"
	"github.com/jwsummers/techmetrix/internal/model"
	"github.com/jwsummers/techmetrix/internal/repository"
	"github.com/jwsummers/techmetrix/pkg/logger"
)

type TeamService struct {
	tx db.Transactor

	users  repository.UserRepository
	teams  repository.TeamRepository
	orders repository.RepairOrderRepository
}

func NewTeamService(tx db.Transactor) *TeamService {
	return &TeamService{
		tx: tx,
	}
}

// guardedTeam loads the team and runs the guard against it. A missing team
// is denied exactly like someone else's team, so team IDs never leak.
func (t *TeamService) guardedTeam(ctx context.Context, caller *model.Identity, action authz.Action, teamID string) (*repository.Team, *Error) {
	l := logger.FromContext(ctx)

	team, err := t.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("team not found", zap.String("team_id", teamID))
		return nil, errorFromDecision(authz.Authorize(caller, action, authz.Resource{}))
	}
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	decision := authz.Authorize(caller, action, authz.TeamResource(&model.Team{
		ID:        team.ID,
		Name:      team.Name,
		ManagerID: team.ManagerID,
	}))
	if guardErr := errorFromDecision(decision); guardErr != nil {
		l.Warn("team action denied",
			zap.String("team_id", teamID),
			zap.String("action", string(action)),
			zap.String("kind", string(decision.Kind)))
		return nil, guardErr
	}

	return team, nil
}

// ListTeams returns the teams managed by the caller, members included. The
// store query is pre-filtered by manager, so no per-team guard is needed.
func (t *TeamService) ListTeams(ctx context.Context, caller *model.Identity) ([]*model.Team, *Error) {
	l := logger.FromContext(ctx)

	if caller == nil || caller.ID == "" {
		return nil, NewError(ErrorCodeUnauthenticated, "authentication required")
	}

	teamsRepo, err := t.teams.ListByManager(ctx, caller.ID)
	if err != nil {
		l.Error("failed to list teams", zap.String("manager_id", caller.ID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list teams")
	}

	teams := make([]*model.Team, 0, len(teamsRepo))
	for _, team := range teamsRepo {
		members, err := t.teams.GetTeamMembers(ctx, team.ID)
		if err != nil {
			l.Error("failed to get team members", zap.String("team_id", team.ID), zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to list teams")
		}
		teams = append(teams, teamFromRepo(team, members))
	}

	return teams, nil
}

// CreateTeam makes the caller the manager unconditionally: a caller can
// never create a team on another admin's behalf.
func (t *TeamService) CreateTeam(ctx context.Context, caller *model.Identity, name string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	if caller == nil || caller.ID == "" {
		return nil, NewError(ErrorCodeUnauthenticated, "authentication required")
	}

	team := &repository.Team{
		ID:        uuid.NewString(),
		Name:      name,
		ManagerID: caller.ID,
	}

	if err := t.teams.Create(ctx, team); err != nil {
		l.Error("failed to create team", zap.String("team_name", name), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create team")
	}

	l.Info("team created", zap.String("team_id", team.ID), zap.String("manager_id", caller.ID))

	return teamFromRepo(team, nil), nil
}

// DeleteTeam detaches every member and then deletes the team row, inside a
// single transaction. The ordering upholds the no-dangling-reference
// invariant: a failure can leave an orphaned member-less team, never a
// deleted team with members still pointing at it.
func (t *TeamService) DeleteTeam(ctx context.Context, caller *model.Identity, teamID string) *Error {
	l := logger.FromContext(ctx)

	if _, guardErr := t.guardedTeam(ctx, caller, authz.ActionDelete, teamID); guardErr != nil {
		return guardErr
	}

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := t.users.DetachTeamMembers(txCtx, teamID); err != nil {
			return errors.Wrap(err, "detach members")
		}
		if err := t.teams.Delete(txCtx, teamID); err != nil {
			return errors.Wrap(err, "delete team")
		}
		return nil
	})
	if err != nil {
		l.Error("failed to delete team", zap.String("team_id", teamID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to delete team")
	}

	l.Info("team deleted", zap.String("team_id", teamID))

	return nil
}

// AddUser sets the target user's team. Adding an existing member is a no-op
// success.
func (t *TeamService) AddUser(ctx context.Context, caller *model.Identity, teamID, userID string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	team, guardErr := t.guardedTeam(ctx, caller, authz.ActionAddMember, teamID)
	if guardErr != nil {
		return nil, guardErr
	}

	user, err := t.users.Get(ctx, userID)
	if err != nil {
		l.Error("failed to get user", zap.String("user_id", userID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to add user")
	}

	if user.TeamID == nil || *user.TeamID != teamID {
		if err = t.users.SetTeam(ctx, userID, &teamID); err != nil {
			l.Error("failed to add user to team",
				zap.String("team_id", teamID),
				zap.String("user_id", userID),
				zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to add user")
		}
		l.Info("user added to team", zap.String("team_id", teamID), zap.String("user_id", userID))
	}

	members, err := t.teams.GetTeamMembers(ctx, teamID)
	if err != nil {
		l.Error("failed to get team members", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to add user")
	}

	return teamFromRepo(team, members), nil
}

// RemoveUser clears the target's team only when it currently points at this
// team. Removing a non-member is a no-op success.
func (t *TeamService) RemoveUser(ctx context.Context, caller *model.Identity, teamID, userID string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	team, guardErr := t.guardedTeam(ctx, caller, authz.ActionRemoveMember, teamID)
	if guardErr != nil {
		return nil, guardErr
	}

	user, err := t.users.Get(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		l.Error("failed to get user", zap.String("user_id", userID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to remove user")
	}

	if user != nil && user.TeamID != nil && *user.TeamID == teamID {
		if err = t.users.SetTeam(ctx, userID, nil); err != nil {
			l.Error("failed to remove user from team",
				zap.String("team_id", teamID),
				zap.String("user_id", userID),
				zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to remove user")
		}
		l.Info("user removed from team", zap.String("team_id", teamID), zap.String("user_id", userID))
	}

	members, err := t.teams.GetTeamMembers(ctx, teamID)
	if err != nil {
		l.Error("failed to get team members", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to remove user")
	}

	return teamFromRepo(team, members), nil
}

// TeamMetrics pools the repair orders of every current member and runs the
// team-mode aggregation against now.
func (t *TeamService) TeamMetrics(ctx context.Context, caller *model.Identity, teamID string, now time.Time) (*model.TeamMetrics, *Error) {
	l := logger.FromContext(ctx)

	if _, guardErr := t.guardedTeam(ctx, caller, authz.ActionMetrics, teamID); guardErr != nil {
		return nil, guardErr
	}

	members, err := t.teams.GetTeamMembers(ctx, teamID)
	if err != nil {
		l.Error("failed to get team members", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to compute team metrics")
	}

	memberIDs := make([]string, 0, len(members))
	for _, member := range members {
		memberIDs = append(memberIDs, member.ID)
	}

	ordersRepo, err := t.orders.ListByUsers(ctx, memberIDs)
	if err != nil {
		l.Error("failed to list team orders", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to compute team metrics")
	}

	return ComputeTeamMetrics(ordersFromRepo(ordersRepo), now), nil
}

func (t *TeamService) WithUserRepo(r repository.UserRepository) *TeamService {
	t.users = r
	return t
}

func (t *TeamService) WithTeamRepo(r repository.TeamRepository) *TeamService {
	t.teams = r
	return t
}

func (t *TeamService) WithOrderRepo(r repository.RepairOrderRepository) *TeamService {
	t.orders = r
	return t
}
