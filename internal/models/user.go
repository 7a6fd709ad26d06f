package models

import "time"

// Role values returned by the blog API.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the profile returned alongside a session token.
type User struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Website   string    `json:"website,omitempty"`
	Github    string    `json:"github,omitempty"`
	Twitter   string    `json:"twitter,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by both auth endpoints.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// ProfileInput is the payload for PUT /user/profile.
type ProfileInput struct {
	Avatar  string `json:"avatar,omitempty"`
	Bio     string `json:"bio,omitempty"`
	Website string `json:"website,omitempty"`
	Github  string `json:"github,omitempty"`
	Twitter string `json:"twitter,omitempty"`
}

// PasswordChange is the payload for PUT /user/password.
type PasswordChange struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}
