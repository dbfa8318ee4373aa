package team

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"vitrine/internal/domain/crud"
)

var (
	ErrNotFound           = errors.New("team member not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Store interface {
	Members() *crud.Repository[Member]
	GetByEmail(ctx context.Context, email string) (*Member, error)
	Authenticate(ctx context.Context, email, password string) (*Member, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
}

type Repository struct {
	members *crud.Repository[Member]
}

func NewRepository(gdb *gorm.DB) Store {
	return &Repository{
		members: crud.NewRepository[Member](gdb, crud.WithSearch("name", "last_name", "email")),
	}
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&Member{})
}

func (r *Repository) Members() *crud.Repository[Member] { return r.members }

// NormalizeEmail lowercases and trims an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Member, error) {
	m, err := r.members.FindBy(ctx, "email", NormalizeEmail(email))
	if errors.Is(err, crud.ErrNotFound) {
		return nil, ErrNotFound
	}
	return m, err
}

func (r *Repository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	return r.members.Exists(ctx, "email", NormalizeEmail(email), excludeID)
}

// Authenticate checks the credentials of an active member.
// Unknown email, inactive account and wrong password are indistinguishable.
func (r *Repository) Authenticate(ctx context.Context, email, password string) (*Member, error) {
	m, err := r.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !m.IsActive || m.ComparePassword(password) != nil {
		return nil, ErrInvalidCredentials
	}
	return m, nil
}
