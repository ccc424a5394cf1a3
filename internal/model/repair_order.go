package model

import "time"

type RepairOrder struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Year      string    `json:"year"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	RONumber  string    `json:"roNumber"`
	Labor     float64   `json:"labor"`
	CreatedAt time.Time `json:"createdAt"`
}

// RepairOrderPatch is a partial update; nil fields are left untouched.
// UserID and CreatedAt are deliberately absent: ownership never transfers
// and the creation timestamp is immutable.
type RepairOrderPatch struct {
	Year     *string  `json:"year"`
	Make     *string  `json:"make"`
	Model    *string  `json:"model"`
	RONumber *string  `json:"roNumber"`
	Labor    *float64 `json:"labor" validate:"omitempty,gte=0"`
}

// Empty reports whether the patch sets no fields at all.
func (p *RepairOrderPatch) Empty() bool {
	return p.Year == nil && p.Make == nil && p.Model == nil && p.RONumber == nil && p.Labor == nil
}
