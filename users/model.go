package users

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Account states. A user registers as pending and becomes active once the
// verification mail is confirmed.
const (
	StatePendingVerification = 1
	StateActive              = 2
)

type User struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	FirstName    string    `bson:"first_name"`
	LastName     string    `bson:"last_name"`
	PasswordHash string    `bson:"password_hash"`
	RegisteredAt time.Time `bson:"registered_at"`
	State        int       `bson:"state"`
}

// IsActive reports whether the user has completed registration verification.
// Only active users may log in.
func (u *User) IsActive() bool {
	return u.State == StateActive
}

// PublicUser is the JSON view of a user. The password hash never leaves the
// database layer.
type PublicUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	RegisteredAt time.Time `json:"registered_at"`
	Verified     bool      `json:"verified"`
}

// Public returns the externally visible view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		RegisteredAt: u.RegisteredAt,
		Verified:     u.IsActive(),
	}
}

// IdentifierFilter builds the lookup filter for a login identifier: an email
// address when it contains "@", a username otherwise.
func IdentifierFilter(identifier string) bson.M {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return bson.M{"email": strings.ToLower(identifier)}
	}
	return bson.M{"username": identifier}
}
