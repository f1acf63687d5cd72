package users

import (
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/google/uuid"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = auth.RoleAdmin
)

// ProviderCredential marks accounts that log in with email + password.
const ProviderCredential = "credential"

type User struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Password  *string    `json:"-"`
	Avatar    string     `json:"avatar"`
	Provider  string     `json:"provider"`
	Role      Role       `json:"role"`
	CartID    *uuid.UUID `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (u *User) Profile() auth.Profile {
	return auth.Profile{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
		Role:   string(u.Role),
		CartID: u.CartID,
	}
}

type RegisterInput struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	CartID   *uuid.UUID `json:"-"`
}

type LoginInput struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	CartID   *uuid.UUID `json:"-"`
}

// Session is the result of a successful login or refresh.
type Session struct {
	User         *User
	AccessToken  string
	RefreshToken string
	CartID       uuid.UUID
}
