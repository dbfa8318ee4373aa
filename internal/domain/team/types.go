package team

import (
	"golang.org/x/crypto/bcrypt"

	"vitrine/internal/domain/crud"
)

type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleCollaborator Role = "COLLABORATOR"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCollaborator
}

// Member is a back-office account.
type Member struct {
	crud.Model
	Name     string `gorm:"size:120;not null" json:"name"`
	LastName string `gorm:"size:120" json:"lastName"`
	Email    string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password string `gorm:"size:72;not null" json:"-"`
	Role     Role   `gorm:"size:16;not null" json:"role"`
	IsActive bool   `gorm:"not null" json:"isActive"`
}

func (Member) TableName() string { return "team" }

// SetPassword stores the bcrypt hash of text.
func (m *Member) SetPassword(text string) error {
	hash, err := HashPassword(text)
	if err != nil {
		return err
	}
	m.Password = hash
	return nil
}

// ComparePassword returns nil when text matches the stored hash.
func (m *Member) ComparePassword(text string) error {
	return bcrypt.CompareHashAndPassword([]byte(m.Password), []byte(text))
}

func (m *Member) FullName() string {
	if m.LastName == "" {
		return m.Name
	}
	return m.Name + " " + m.LastName
}

func HashPassword(text string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
