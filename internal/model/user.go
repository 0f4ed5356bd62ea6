// Package model defines the data structures shared across the client.
package model

import "time"

// Role is a user's access level, mirroring the server's role enum.
//
// The server stores roles as uppercase strings ("ADMIN", "MANAGER", "MEMBER")
// and the client never invents new ones; an unrecognized role simply grants
// nothing in the authorization engine.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

// User represents an account fetched from the API.
//
// WHY int64 IDs?
// The server hands out integer primary keys. We keep them as int64 rather than
// re-wrapping in strings so that equality checks against Task.Assignee and
// Task.CreatedBy are direct comparisons, not string conversions.
//
// Display fields (FirstName, LastName, Username, Email) may each be empty;
// the server only guarantees at least one of them is present. Use
// metrics.UserDisplayName to pick the right one for rendering.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenPair carries the two bearer credentials issued at login/register.
// The access token expires quickly and is silently replaced via the refresh
// protocol; the refresh token lives until logout or server-side revocation.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
