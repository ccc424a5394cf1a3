package model

type Team struct {
	ID        string  `json:"id"`
	Name      string  `json:"name" validate:"required"`
	ManagerID string  `json:"managerId"`
	Members   []*User `json:"members"`
}
