package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vitrine/internal/domain/banners"
	"vitrine/internal/domain/catalog"
	"vitrine/internal/domain/filecleanup"
	"vitrine/internal/domain/settings"
	"vitrine/internal/domain/team"
)

type Container struct {
	db       *gorm.DB // IMPORTANT: set the db so WithTx works
	Catalog  catalog.Store
	Banners  banners.Store
	Team     team.Store
	Settings settings.Store
	Cleanup  filecleanup.Store
}

func NewContainer(gdb *gorm.DB) *Container {
	return &Container{
		db:       gdb,
		Catalog:  catalog.NewRepository(gdb),
		Banners:  banners.NewRepository(gdb),
		Team:     team.NewRepository(gdb),
		Settings: settings.NewRepository(gdb),
		Cleanup:  filecleanup.NewRepository(gdb),
	}
}

// Migrate creates or updates every table the service owns.
func Migrate(gdb *gorm.DB) error {
	for _, m := range []func(*gorm.DB) error{
		catalog.Migrate,
		banners.Migrate,
		team.Migrate,
		settings.Migrate,
		filecleanup.Migrate,
	} {
		if err := m(gdb); err != nil {
			return err
		}
	}
	return nil
}

// Tx is a tx-scoped set of repos for atomic units of work.
type Tx struct {
	Catalog catalog.Store
	Banners banners.Store
	Cleanup filecleanup.Store
}

// WithTx runs fn atomically; returning an error rolls everything back.
func (c *Container) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	if c.db == nil {
		return fmt.Errorf("storage container db is nil (did you forget to set db in NewContainer?)")
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Tx{
			Catalog: c.Catalog.WithTx(tx),
			Banners: c.Banners.WithTx(tx),
			Cleanup: c.Cleanup.WithTx(tx),
		})
	})
}

// Ping checks the database is reachable.
func (c *Container) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
