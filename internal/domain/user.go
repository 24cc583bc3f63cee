package domain

import "context"

// Admin roles.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// Actions checked by an Authorizer. Resources are the REST resource names
// plus ResourceUsers.
const (
	ActionRead     = "read"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionActivate = "activate"
	ActionRegister = "register"

	ResourceUsers = "users"
)

// User is a back-office account that can sign in to the API and dashboard.
type User struct {
	BaseModel
	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role         string `gorm:"size:20;not null;default:editor" json:"role"`
	PasswordHash string `gorm:"size:255" json:"-"`
}

// UserRepository defines the data access interface for back-office accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Count(ctx context.Context) (int64, error)
}

// Principal identifies the caller of an authenticated request.
type Principal struct {
	UserID uint   `json:"userId"`
	Role   string `json:"role"`
}

// Authorizer decides whether who may perform action on resource.
type Authorizer interface {
	Allow(ctx context.Context, who Principal, resource, action string) (bool, error)
}
