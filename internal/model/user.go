package model

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type User struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Role     Role    `json:"role"`
	TeamID   *string `json:"teamId,omitempty"`
}

// UserSummary is the shape returned by user search: enough to pick a
// candidate for team membership, nothing more.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Identity is the authenticated caller of a request. It is threaded
// explicitly into every service call; there is no ambient session state.
// DemoRestricted marks callers that may read but never mutate team
// membership.
type Identity struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Role           Role   `json:"role"`
	DemoRestricted bool   `json:"demo_restricted"`
}
