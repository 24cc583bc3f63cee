package resource

import (
	"context"
	"errors"
	"strings"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

// Query describes which columns a list request may touch. Request keys are
// the public JSON names; the maps translate them to database columns.
type Query struct {
	SortColumns   map[string]string
	FilterColumns map[string]string
	SearchColumns []string
}

// Repository is a GORM-backed store for one entity type.
type Repository[T any] struct {
	db *gorm.DB
}

// NewRepository creates a Repository backed by db.
func NewRepository[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

// WithDB returns a copy of the repository bound to db, typically a transaction.
func (r *Repository[T]) WithDB(db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

// Create inserts entity.
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return MapError(err)
	}
	return nil
}

// GetByID retrieves an entity by its primary key.
func (r *Repository[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		return nil, MapError(err)
	}
	return &entity, nil
}

// List returns one page of entities matching req.
func (r *Repository[T]) List(ctx context.Context, req domain.PageRequest, q Query) (*pagination.Pagination[T], error) {
	req = translate(req, q)

	var total int64
	base := r.db.WithContext(ctx).Model(new(T)).
		Scopes(
			pkg.Filter(req, columns(q.FilterColumns)),
			pkg.Search(req, q.SearchColumns),
		)

	if err := base.Count(&total).Error; err != nil {
		return nil, MapError(err)
	}

	page, err := pkg.Paginate(ctx, req, total, func(_ context.Context, offset, limit int) ([]T, error) {
		var items []T
		err := base.Scopes(
			pkg.Window(offset, limit),
			pkg.Sort(req, columns(q.SortColumns)),
		).Find(&items).Error
		return items, err
	})
	if err != nil {
		return nil, MapError(err)
	}
	return page, nil
}

// Count returns the number of stored entities.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&total).Error; err != nil {
		return 0, MapError(err)
	}
	return total, nil
}

// Update saves every field of entity.
func (r *Repository[T]) Update(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Save(entity).Error; err != nil {
		return MapError(err)
	}
	return nil
}

// SetActive updates the is_active column of one row.
func (r *Repository[T]) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return MapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an entity by ID.
func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(new(T), id)
	if result.Error != nil {
		return MapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// translate rewrites public sort and filter names to column names. Unknown
// filter keys are dropped; an unknown sort field is left for pkg.Sort to ignore.
func translate(req domain.PageRequest, q Query) domain.PageRequest {
	filters := make(map[string]string, len(req.Filter))
	for key, value := range req.Filter {
		name, like := strings.CutSuffix(key, "__like")
		col, ok := q.FilterColumns[name]
		if !ok {
			continue
		}
		if like {
			col += "__like"
		}
		filters[col] = value
	}
	req.Filter = filters

	if field, dir, ok := strings.Cut(req.Sort, ":"); ok {
		if col, known := q.SortColumns[strings.TrimSpace(field)]; known {
			req.Sort = col + ":" + dir
		}
	}
	return req
}

func columns(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, col := range m {
		out = append(out, col)
	}
	return out
}

// MapError converts GORM errors to domain errors. Other GORM-backed
// repositories use it to stay consistent with the generic one.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, "already exists", err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// isDuplicateKeyError detects unique constraint violations by examining the
// error message. This is needed because not all GORM dialectors translate
// driver-level errors to gorm.ErrDuplicatedKey (e.g. the pure-Go SQLite driver).
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
