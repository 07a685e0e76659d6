package model

import "time"

// Role controls which routes a session may reach.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is an account record. Provisioning happens outside this service;
// we only read users to resolve roles for authorization.
type User struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Role      Role      `json:"role" bson:"role"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// IsAdmin reports whether the user may approve, reject or delete records.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SessionData is the payload stored in Redis for an active session token.
type SessionData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
