package banners

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"vitrine/internal/domain/crud"
)

var ErrNotFound = errors.New("banner not found")

type Store interface {
	WithTx(tx *gorm.DB) Store
	Banners() *crud.Repository[Banner]
	ListActive(ctx context.Context) ([]Banner, error)
	Delete(ctx context.Context, id string) (*Banner, error)
}

type Repository struct {
	db      *gorm.DB
	banners *crud.Repository[Banner]
}

func NewRepository(gdb *gorm.DB) Store {
	return &Repository{
		db:      gdb,
		banners: crud.NewRepository[Banner](gdb, crud.WithSearch("title", "subtitle")),
	}
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&Banner{})
}

func (r *Repository) WithTx(tx *gorm.DB) Store {
	return &Repository{db: tx, banners: r.banners.WithTx(tx)}
}

func (r *Repository) Banners() *crud.Repository[Banner] { return r.banners }

// ListActive returns the banners shown on the storefront, newest first.
func (r *Repository) ListActive(ctx context.Context) ([]Banner, error) {
	return r.banners.All(ctx, crud.Active)
}

// Delete removes the banner and returns the deleted row so its artwork can be cleaned up.
func (r *Repository) Delete(ctx context.Context, id string) (*Banner, error) {
	b, err := r.banners.Get(ctx, id)
	if errors.Is(err, crud.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.banners.Delete(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}
