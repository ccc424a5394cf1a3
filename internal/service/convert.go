package service

import (
	"github.com/jwsummers/techmetrix/internal/model"
	"github.com/jwsummers/techmetrix/internal/repository"
)

// userFromRepo never exposes the password hash outside the service layer.
func userFromRepo(u *repository.User) *model.User {
	return &model.User{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Role:     model.Role(u.Role),
		TeamID:   u.TeamID,
	}
}

func usersFromRepo(users []*repository.User) []*model.User {
	out := make([]*model.User, 0, len(users))
	for _, u := range users {
		out = append(out, userFromRepo(u))
	}
	return out
}

func teamFromRepo(t *repository.Team, members []*repository.User) *model.Team {
	return &model.Team{
		ID:        t.ID,
		Name:      t.Name,
		ManagerID: t.ManagerID,
		Members:   usersFromRepo(members),
	}
}

func orderFromRepo(o *repository.RepairOrder) *model.RepairOrder {
	return &model.RepairOrder{
		ID:        o.ID,
		UserID:    o.UserID,
		Year:      o.Year,
		Make:      o.Make,
		Model:     o.Model,
		RONumber:  o.RONumber,
		Labor:     o.Labor,
		CreatedAt: o.CreatedAt,
	}
}

func ordersFromRepo(orders []*repository.RepairOrder) []*model.RepairOrder {
	out := make([]*model.RepairOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderFromRepo(o))
	}
	return out
}
