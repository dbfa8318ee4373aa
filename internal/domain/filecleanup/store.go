// Package filecleanup persists storage objects that must be removed once the
// rows pointing at them are gone. Paths are enqueued inside the transaction
// that orphans them and drained by a background sweeper.
package filecleanup

import (
	"context"
	"time"

	"gorm.io/gorm"

	"vitrine/internal/domain/crud"
)

type PendingDeletion struct {
	crud.Model
	Path      string `gorm:"size:512;not null" json:"path"`
	Attempts  int    `gorm:"not null" json:"attempts"`
	LastError string `json:"lastError"`
}

type Store interface {
	WithTx(tx *gorm.DB) Store
	Enqueue(ctx context.Context, paths ...string) error
	Due(ctx context.Context, limit, maxAttempts int) ([]PendingDeletion, error)
	Done(ctx context.Context, id string) error
	Failed(ctx context.Context, id string, cause error) error
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(gdb *gorm.DB) Store {
	return &Repository{db: gdb}
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&PendingDeletion{})
}

func (r *Repository) WithTx(tx *gorm.DB) Store {
	return &Repository{db: tx}
}

// Enqueue records non-empty paths for deletion.
func (r *Repository) Enqueue(ctx context.Context, paths ...string) error {
	rows := make([]PendingDeletion, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			rows = append(rows, PendingDeletion{Path: p})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// Due returns the oldest entries that have not exhausted their attempts.
func (r *Repository) Due(ctx context.Context, limit, maxAttempts int) ([]PendingDeletion, error) {
	var rows []PendingDeletion
	err := r.db.WithContext(ctx).
		Where("attempts < ?", maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Done(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&PendingDeletion{}).Error
}

func (r *Repository) Failed(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return r.db.WithContext(ctx).Model(&PendingDeletion{}).Where("id = ?", id).Updates(map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": msg,
		"updated_at": time.Now().UTC(),
	}).Error
}
