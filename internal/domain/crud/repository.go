// Package crud is the generic persistence layer shared by the admin resources:
// paginated search listing, lookup by id, creation, partial update and delete.
package crud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"vitrine/internal/db"
	"vitrine/internal/params"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Page is the {data, meta} listing envelope.
type Page[T any] struct {
	Data []T              `json:"data"`
	Meta params.Pagination `json:"meta"`
}

type preload struct {
	name string
	args []any
}

type options struct {
	searchFields []string
	order        string
	preloads     []preload
}

type Option func(*options)

// WithSearch sets the text columns matched by the search term (OR-combined).
func WithSearch(columns ...string) Option {
	return func(o *options) { o.searchFields = columns }
}

// WithOrder overrides the default "created_at DESC" listing order.
func WithOrder(order string) Option {
	return func(o *options) { o.order = order }
}

// WithPreload eager-loads an association on every read.
func WithPreload(association string, args ...any) Option {
	return func(o *options) { o.preloads = append(o.preloads, preload{association, args}) }
}

type Repository[T any] struct {
	db   *gorm.DB
	opts options
}

func NewRepository[T any](gdb *gorm.DB, opts ...Option) *Repository[T] {
	o := options{order: "created_at DESC"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[T]{db: gdb, opts: o}
}

// WithTx returns a copy bound to tx.
func (r *Repository[T]) WithTx(tx *gorm.DB) *Repository[T] {
	return &Repository[T]{db: tx, opts: r.opts}
}

func (r *Repository[T]) read(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx).Model(new(T))
	for _, p := range r.opts.preloads {
		q = q.Preload(p.name, p.args...)
	}
	return q
}

// List returns one page of rows whose search columns contain p.Search.
// Extra scopes narrow the set before counting.
func (r *Repository[T]) List(ctx context.Context, p params.Pagination, scopes ...func(*gorm.DB) *gorm.DB) (*Page[T], error) {
	q := r.db.WithContext(ctx).Model(new(T)).Scopes(scopes...)
	if p.Search != "" && len(r.opts.searchFields) > 0 {
		q = q.Scopes(Search(p.Search, r.opts.searchFields...))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	rows := make([]T, 0, p.Limit)
	find := q
	for _, pl := range r.opts.preloads {
		find = find.Preload(pl.name, pl.args...)
	}
	if err := find.Order(r.opts.order).Offset(p.Offset).Limit(p.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	p.ComputeMeta(total)
	return &Page[T]{Data: rows, Meta: p}, nil
}

// All returns every row matching the scopes, in listing order.
func (r *Repository[T]) All(ctx context.Context, scopes ...func(*gorm.DB) *gorm.DB) ([]T, error) {
	rows := make([]T, 0)
	if err := r.read(ctx).Scopes(scopes...).Order(r.opts.order).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	return r.FindBy(ctx, "id", id)
}

// FindBy loads the first row where column equals value.
func (r *Repository[T]) FindBy(ctx context.Context, column string, value any) (*T, error) {
	row := new(T)
	err := r.read(ctx).Where(column+" = ?", value).First(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *Repository[T]) Create(ctx context.Context, row *T) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return err
	}
	return nil
}

// Update writes only the given columns and returns the fresh row.
func (r *Repository[T]) Update(ctx context.Context, id string, fields map[string]any) (*T, error) {
	row, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return row, nil
	}

	if err := r.db.WithContext(ctx).Model(row).Updates(fields).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether another row (not excludeID) has column = value.
func (r *Repository[T]) Exists(ctx context.Context, column string, value any, excludeID string) (bool, error) {
	q := r.db.WithContext(ctx).Model(new(T)).Where(column+" = ?", value)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Search matches term as a substring of any of the columns.
func Search(term string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if term == "" || len(columns) == 0 {
			return q
		}
		pattern := "%" + escapeLike(term) + "%"
		conds := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, c := range columns {
			conds[i] = c + ` LIKE ? ESCAPE '\'`
			args[i] = pattern
		}
		return q.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
}

// Active keeps rows with is_active = true.
func Active(q *gorm.DB) *gorm.DB {
	return q.Where("is_active = ?", true)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
