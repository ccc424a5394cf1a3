package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwsummers/techmetrix/internal/model"
	"github.com/jwsummers/techmetrix/internal/repository"
)

func manager() *model.Identity {
	return &model.Identity{ID: "admin-1", Username: "boss", Role: model.RoleAdmin}
}

func demoManager() *model.Identity {
	return &model.Identity{ID: "admin-1", Username: "demoadmin", Role: model.RoleAdmin, DemoRestricted: true}
}

func repoTeam() *repository.Team {
	return &repository.Team{ID: "team-1", Name: "night shift", ManagerID: "admin-1"}
}

func strPtr(s string) *string { return &s }

func TestTeamService_CreateTeam(t *testing.T) {
	tests := []struct {
		name          string
		caller        *model.Identity
		teamName      string
		setupMocks    func(*MockTeamRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:     "success: manager is fixed to the caller",
			caller:   manager(),
			teamName: "night shift",
			setupMocks: func(tr *MockTeamRepository) {
				tr.On("Create", mock.Anything, mock.MatchedBy(func(team *repository.Team) bool {
					return team.Name == "night shift" && team.ManagerID == "admin-1" && team.ID != ""
				})).Return(nil)
			},
		},
		{
			name:          "failure: unauthenticated caller",
			caller:        nil,
			teamName:      "night shift",
			setupMocks:    func(tr *MockTeamRepository) {},
			expectedError: true,
			errorCode:     ErrorCodeUnauthenticated,
		},
		{
			name:     "failure: store error",
			caller:   manager(),
			teamName: "night shift",
			setupMocks: func(tr *MockTeamRepository) {
				tr.On("Create", mock.Anything, mock.Anything).Return(errors.New("db error"))
			},
			expectedError: true,
			errorCode:     ErrorCodeUnspecified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTeamRepo := new(MockTeamRepository)
			tt.setupMocks(mockTeamRepo)

			service := NewTeamService(new(MockTransactor)).WithTeamRepo(mockTeamRepo)

			got, err := service.CreateTeam(context.Background(), tt.caller, tt.teamName)

			if tt.expectedError {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, got)
			} else {
				require.Nil(t, err)
				assert.Equal(t, tt.teamName, got.Name)
				assert.Equal(t, tt.caller.ID, got.ManagerID)
				assert.Empty(t, got.Members)
			}

			mockTeamRepo.AssertExpectations(t)
		})
	}
}

func TestTeamService_DeleteTeam(t *testing.T) {
	tests := []struct {
		name          string
		caller        *model.Identity
		setupMocks    func(*MockTeamRepository, *MockUserRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:   "success: members detached before team delete",
			caller: manager(),
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
				ur.On("DetachTeamMembers", mock.Anything, "team-1").Return(nil)
				tr.On("Delete", mock.Anything, "team-1").Return(nil)
			},
		},
		{
			name:   "failure: non-manager admin is forbidden",
			caller: &model.Identity{ID: "admin-2", Role: model.RoleAdmin},
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeForbidden,
		},
		{
			name:   "failure: missing team is forbidden, not not-found",
			caller: manager(),
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeForbidden,
		},
		{
			name:   "failure: detach error aborts before the team row is touched",
			caller: manager(),
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
				ur.On("DetachTeamMembers", mock.Anything, "team-1").Return(errors.New("db error"))
			},
			expectedError: true,
			errorCode:     ErrorCodeUnspecified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTeamRepo := new(MockTeamRepository)
			mockUserRepo := new(MockUserRepository)
			tt.setupMocks(mockTeamRepo, mockUserRepo)

			service := NewTeamService(new(MockTransactor)).
				WithTeamRepo(mockTeamRepo).
				WithUserRepo(mockUserRepo)

			err := service.DeleteTeam(context.Background(), tt.caller, "team-1")

			if tt.expectedError {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
			} else {
				assert.Nil(t, err)
			}

			// "Delete" must never run without a successful detach first.
			mockTeamRepo.AssertExpectations(t)
			mockUserRepo.AssertExpectations(t)
		})
	}
}

func TestTeamService_DeleteTeamOrdering(t *testing.T) {
	mockTeamRepo := new(MockTeamRepository)
	mockUserRepo := new(MockUserRepository)

	var calls []string

	mockTeamRepo.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
	mockUserRepo.On("DetachTeamMembers", mock.Anything, "team-1").
		Run(func(mock.Arguments) { calls = append(calls, "detach") }).Return(nil)
	mockTeamRepo.On("Delete", mock.Anything, "team-1").
		Run(func(mock.Arguments) { calls = append(calls, "delete") }).Return(nil)

	service := NewTeamService(new(MockTransactor)).
		WithTeamRepo(mockTeamRepo).
		WithUserRepo(mockUserRepo)

	err := service.DeleteTeam(context.Background(), manager(), "team-1")

	require.Nil(t, err)
	assert.Equal(t, []string{"detach", "delete"}, calls)
}

func TestTeamService_AddUser(t *testing.T) {
	tests := []struct {
		name          string
		caller        *model.Identity
		setupMocks    func(*MockTeamRepository, *MockUserRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:   "success: user gains the team reference",
			caller: manager(),
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
				ur.On("Get", mock.Anything, "user-1").Return(&repository.User{ID: "user-1", Username: "jsummers", Role: "USER"}, nil)
				ur.On("SetTeam", mock.Anything, "user-1", mock.MatchedBy(func(teamID *string) bool {
					return teamID != nil && *teamID == "team-1"
				})).Return(nil)
				tr.On("GetTeamMembers", mock.Anything, "team-1").Return([]*repository.User{
					{ID: "user-1", Username: "jsummers", Role: "USER", TeamID: strPtr("team-1")},
				}, nil)
			},
		},
		{
			name:   "success: adding an existing member is a no-op",
			caller: manager(),
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
				ur.On("Get", mock.Anything, "user-1").Return(&repository.User{
					ID: "user-1", Username: "jsummers", Role: "USER", TeamID: strPtr("team-1"),
				}, nil)
				tr.On("GetTeamMembers", mock.Anything, "team-1").Return([]*repository.User{
					{ID: "user-1", Username: "jsummers", Role: "USER", TeamID: strPtr("team-1")},
				}, nil)
			},
		},
		{
			name:   "failure: demo manager is blocked before any write",
			caller: demoManager(),
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeDemoRestricted,
		},
		{
			name:   "failure: non-manager is forbidden",
			caller: &model.Identity{ID: "admin-2", Role: model.RoleAdmin},
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeForbidden,
		},
		{
			name:   "failure: store error on membership write",
			caller: manager(),
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
				ur.On("Get", mock.Anything, "user-1").Return(&repository.User{ID: "user-1", Role: "USER"}, nil)
				ur.On("SetTeam", mock.Anything, "user-1", mock.Anything).Return(errors.New("db error"))
			},
			expectedError: true,
			errorCode:     ErrorCodeUnspecified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTeamRepo := new(MockTeamRepository)
			mockUserRepo := new(MockUserRepository)
			tt.setupMocks(mockTeamRepo, mockUserRepo)

			service := NewTeamService(new(MockTransactor)).
				WithTeamRepo(mockTeamRepo).
				WithUserRepo(mockUserRepo)

			got, err := service.AddUser(context.Background(), tt.caller, "team-1", "user-1")

			if tt.expectedError {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, got)
			} else {
				require.Nil(t, err)
				require.Len(t, got.Members, 1)
				assert.Equal(t, "user-1", got.Members[0].ID)
			}

			mockTeamRepo.AssertExpectations(t)
			mockUserRepo.AssertExpectations(t)
		})
	}
}

func TestTeamService_RemoveUser(t *testing.T) {
	tests := []struct {
		name          string
		caller        *model.Identity
		setupMocks    func(*MockTeamRepository, *MockUserRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:   "success: member loses the team reference",
			caller: manager(),
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
				ur.On("Get", mock.Anything, "user-1").Return(&repository.User{
					ID: "user-1", Role: "USER", TeamID: strPtr("team-1"),
				}, nil)
				ur.On("SetTeam", mock.Anything, "user-1", (*string)(nil)).Return(nil)
				tr.On("GetTeamMembers", mock.Anything, "team-1").Return([]*repository.User{}, nil)
			},
		},
		{
			name:   "success: removing a non-member is a no-op",
			caller: manager(),
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
				ur.On("Get", mock.Anything, "user-1").Return(&repository.User{ID: "user-1", Role: "USER"}, nil)
				tr.On("GetTeamMembers", mock.Anything, "team-1").Return([]*repository.User{}, nil)
			},
		},
		{
			name:   "success: member of a different team is left alone",
			caller: manager(),
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
				ur.On("Get", mock.Anything, "user-1").Return(&repository.User{
					ID: "user-1", Role: "USER", TeamID: strPtr("team-2"),
				}, nil)
				tr.On("GetTeamMembers", mock.Anything, "team-1").Return([]*repository.User{}, nil)
			},
		},
		{
			name:   "failure: demo manager is blocked",
			caller: demoManager(),
			setupMocks: func(tr *MockTeamRepository, ur *MockUserRepository) {
				tr.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeDemoRestricted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTeamRepo := new(MockTeamRepository)
			mockUserRepo := new(MockUserRepository)
			tt.setupMocks(mockTeamRepo, mockUserRepo)

			service := NewTeamService(new(MockTransactor)).
				WithTeamRepo(mockTeamRepo).
				WithUserRepo(mockUserRepo)

			got, err := service.RemoveUser(context.Background(), tt.caller, "team-1", "user-1")

			if tt.expectedError {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, got)
			} else {
				require.Nil(t, err)
				assert.NotNil(t, got)
			}

			mockTeamRepo.AssertExpectations(t)
			mockUserRepo.AssertExpectations(t)
		})
	}
}

func TestTeamService_ListTeams(t *testing.T) {
	mockTeamRepo := new(MockTeamRepository)

	mockTeamRepo.On("ListByManager", mock.Anything, "admin-1").Return([]*repository.Team{repoTeam()}, nil)
	mockTeamRepo.On("GetTeamMembers", mock.Anything, "team-1").Return([]*repository.User{
		{ID: "user-1", Username: "jsummers", Role: "USER", TeamID: strPtr("team-1")},
	}, nil)

	service := NewTeamService(new(MockTransactor)).WithTeamRepo(mockTeamRepo)

	got, err := service.ListTeams(context.Background(), manager())

	require.Nil(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "team-1", got[0].ID)
	require.Len(t, got[0].Members, 1)
	assert.Equal(t, "jsummers", got[0].Members[0].Username)

	mockTeamRepo.AssertExpectations(t)
}

func TestTeamService_TeamMetrics(t *testing.T) {
	now := metricsNow

	mockTeamRepo := new(MockTeamRepository)
	mockOrderRepo := new(MockRepairOrderRepository)

	mockTeamRepo.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)
	mockTeamRepo.On("GetTeamMembers", mock.Anything, "team-1").Return([]*repository.User{
		{ID: "user-1", Role: "USER", TeamID: strPtr("team-1")},
		{ID: "user-2", Role: "USER", TeamID: strPtr("team-1")},
	}, nil)
	mockOrderRepo.On("ListByUsers", mock.Anything, []string{"user-1", "user-2"}).Return([]*repository.RepairOrder{
		{ID: "ro-1", UserID: "user-1", Labor: 5.0, CreatedAt: now.Add(-time.Hour)},
		{ID: "ro-2", UserID: "user-2", Labor: 6.2, CreatedAt: now.AddDate(0, -1, 0)},
	}, nil)

	service := NewTeamService(new(MockTransactor)).
		WithTeamRepo(mockTeamRepo).
		WithOrderRepo(mockOrderRepo)

	got, err := service.TeamMetrics(context.Background(), manager(), "team-1", now)

	require.Nil(t, err)
	assert.InDelta(t, 11.2, got.Efficiency, 1e-9)
	assert.Equal(t, 1, got.CountDay)
	assert.Equal(t, 2, got.CountWeek)
	assert.Equal(t, 2, got.CountMonth)

	mockTeamRepo.AssertExpectations(t)
	mockOrderRepo.AssertExpectations(t)
}

func TestTeamService_TeamMetricsDeniedForOtherAdmin(t *testing.T) {
	mockTeamRepo := new(MockTeamRepository)
	mockTeamRepo.On("Get", mock.Anything, "team-1").Return(repoTeam(), nil)

	service := NewTeamService(new(MockTransactor)).WithTeamRepo(mockTeamRepo)

	got, err := service.TeamMetrics(context.Background(), &model.Identity{ID: "admin-2", Role: model.RoleAdmin}, "team-1", metricsNow)

	require.Error(t, err)
	assert.Equal(t, ErrorCodeForbidden, err.Code)
	assert.Nil(t, got)
}
