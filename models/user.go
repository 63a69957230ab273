package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/govoffice/docdesk/internal/permission"
)

// User represents an office staff account that can sign in.
type User struct {
	ID           uuid.UUID               `json:"id" db:"id"`
	Username     string                  `json:"username" db:"username"`
	Email        string                  `json:"email" db:"email"`
	FullName     string                  `json:"full_name" db:"full_name"`
	PasswordHash string                  `json:"-" db:"password_hash"`
	Role         permission.Role         `json:"role" db:"role"`
	Permissions  []permission.Permission `json:"permissions" db:"permissions"` // explicit grants on top of the role defaults
	Active       bool                    `json:"active" db:"active"`
	LastLoginAt  *time.Time              `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time               `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new active User instance
func NewUser(username, email, fullName, passwordHash string, role permission.Role) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		Role:         role,
		Permissions:  []permission.Permission{},
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsAdmin returns true for the administrative roles.
func (u *User) IsAdmin() bool {
	return u.Role == permission.RoleAdmin || u.Role == permission.RoleSuperuser
}

// GrantedPermissions returns the role defaults merged with the explicit grants.
func (u *User) GrantedPermissions() permission.Set {
	granted := permission.ExpandDefaults(u.Role)
	granted.Add(u.Permissions...)
	return granted
}

// CanSignIn reports whether the account may open a session.
func (u *User) CanSignIn() bool {
	return u.Active && u.Role != permission.RoleUnverified
}
