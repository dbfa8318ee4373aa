package settings

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vitrine/internal/domain/crud"
)

type Store interface {
	GetOrCreate(ctx context.Context) (*StoreConfiguration, error)
	Update(ctx context.Context, fields map[string]any) (*StoreConfiguration, error)
	SocialMedia() *crud.Repository[SocialMedia]
}

type Repository struct {
	db     *gorm.DB
	social *crud.Repository[SocialMedia]
}

func NewRepository(gdb *gorm.DB) Store {
	return &Repository{
		db:     gdb,
		social: crud.NewRepository[SocialMedia](gdb, crud.WithSearch("platform", "url"), crud.WithOrder("platform ASC")),
	}
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&StoreConfiguration{}, &SocialMedia{})
}

func (r *Repository) SocialMedia() *crud.Repository[SocialMedia] { return r.social }

func defaults() *StoreConfiguration {
	return &StoreConfiguration{
		Model:              crud.Model{ID: SingletonID},
		StoreName:          DefaultStoreName,
		Email:              DefaultEmail,
		CNPJ:               DefaultCNPJ,
		MaintenanceMessage: DefaultMaintenanceMessage,
		LowStockThreshold:  DefaultLowStockThreshold,
	}
}

// GetOrCreate returns the configuration row, inserting the defaults first if
// it does not exist. Concurrent first calls converge on the same row.
func (r *Repository) GetOrCreate(ctx context.Context) (*StoreConfiguration, error) {
	cfg, err := r.load(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(defaults()).Error; err != nil {
		return nil, fmt.Errorf("create store configuration: %w", err)
	}
	return r.load(ctx)
}

// Update assigns the given columns on the singleton.
func (r *Repository) Update(ctx context.Context, fields map[string]any) (*StoreConfiguration, error) {
	cfg, err := r.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return cfg, nil
	}
	if err := r.db.WithContext(ctx).Model(cfg).Updates(fields).Error; err != nil {
		return nil, err
	}
	return r.load(ctx)
}

func (r *Repository) load(ctx context.Context) (*StoreConfiguration, error) {
	var cfg StoreConfiguration
	err := r.db.WithContext(ctx).
		Preload("SocialMedia", func(q *gorm.DB) *gorm.DB { return q.Order("platform ASC") }).
		First(&cfg, "id = ?", SingletonID).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
