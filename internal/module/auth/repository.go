package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/module/resource"
)

// userRepository implements domain.UserRepository on top of the generic
// GORM repository.
type userRepository struct {
	*resource.Repository[domain.User]
	db *gorm.DB
}

// NewUserRepository creates a UserRepository backed by db.
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepository{Repository: resource.NewRepository[domain.User](db), db: db}
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, resource.MapError(err)
	}
	return &user, nil
}
