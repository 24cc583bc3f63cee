package resource

import (
	"context"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

// Payload is a request body that can be applied to an entity. Bind tags on
// the payload struct do the field validation; Apply may add cross-field checks.
type Payload[T any] interface {
	Apply(entity *T) error
}

// Service implements the CRUD use cases for one entity type.
type Service[T any] struct {
	db    *gorm.DB
	repo  *Repository[T]
	query Query
}

// NewService creates a Service over db.
func NewService[T any](db *gorm.DB, q Query) *Service[T] {
	return &Service[T]{db: db, repo: NewRepository[T](db), query: q}
}

// Create builds a new entity from p and persists it.
func (s *Service[T]) Create(ctx context.Context, p Payload[T]) (*T, error) {
	entity := new(T)
	if err := p.Apply(entity); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// Get retrieves an entity by ID.
func (s *Service[T]) Get(ctx context.Context, id uint) (*T, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns one page of entities.
func (s *Service[T]) List(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[T], error) {
	return s.repo.List(ctx, req, s.query)
}

// Count returns the number of stored entities.
func (s *Service[T]) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Update loads the entity, applies p and saves it in one transaction.
func (s *Service[T]) Update(ctx context.Context, id uint, p Payload[T]) (*T, error) {
	var updated *T
	err := pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := s.repo.WithDB(tx)
		entity, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := p.Apply(entity); err != nil {
			return err
		}
		if err := repo.Update(ctx, entity); err != nil {
			return err
		}
		updated = entity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetActive flips the active flag of an entity.
func (s *Service[T]) SetActive(ctx context.Context, id uint, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// Delete removes an entity by ID.
func (s *Service[T]) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
