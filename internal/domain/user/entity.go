package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a user entity in the system.
type User struct {
	ID               string    `json:"id"`                // ID is generated by the store and never reused
	Name             string    `json:"name"`              // Name is the display name of the user
	Surname          string    `json:"surname,omitempty"` // Surname is empty for self-registered accounts
	Email            string    `json:"email"`             // Email is unique across live users
	PasswordHash     string    `json:"-"`                 // PasswordHash never leaves the store
	Role             Role      `json:"role"`
	RegistrationDate time.Time `json:"registration_date"` // RegistrationDate is set once on creation
}

// PublicUser is the projection of User returned to callers.
type PublicUser struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Surname          string    `json:"surname,omitempty"`
	Email            string    `json:"email"`
	Role             Role      `json:"role"`
	RegistrationDate time.Time `json:"registration_date"`
}

// Public strips credential material from u.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:               u.ID,
		Name:             u.Name,
		Surname:          u.Surname,
		Email:            u.Email,
		Role:             u.Role,
		RegistrationDate: u.RegistrationDate,
	}
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name    *string
	Surname *string
	Email   *string
}

// IsEmpty reports whether the patch carries no field at all.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Surname == nil && p.Email == nil
}

// NormalizeEmail trims and lower-cases an address so that uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanonicalID parses any textual UUID form (upper case, braces, urn:uuid:) and
// returns the lower-case hyphenated form ids are stored and cached under.
func CanonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
