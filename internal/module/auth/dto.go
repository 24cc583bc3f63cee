package auth

import (
	"time"

	"github.com/simp-lee/gymadmin/internal/domain"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=8"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" form:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=8,max=72"`
}

// Account is the public view of a back-office user.
type Account struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func newAccount(u *domain.User) Account {
	return Account{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// Session is returned by a successful login.
type Session struct {
	Token     string  `json:"token"`
	ExpiresAt int64   `json:"expiresAt"`
	Role      string  `json:"role"`
	Account   Account `json:"account"`
}
