// Package models contains the server-side data records and their explicit
// projections. Mappings are hand-written so the row-to-record translation
// stays auditable.
package models

// Roles stored in the users table. The core reads the role but attaches no
// authorization semantics to it.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the credential record as persisted in the users table.
type User struct {
	ID             int64
	Username       string
	Salt           string
	HashedPassword string
	Role           string
}

// PublicUser is the projection of a User that is safe to return to clients.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Public returns the client-facing projection of the user.
func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID, Username: u.Username}
}
