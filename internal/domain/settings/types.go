package settings

import "vitrine/internal/domain/crud"

// SingletonID is the fixed primary key of the only configuration row.
const SingletonID = "store"

const (
	DefaultStoreName = "Minha Loja"
	DefaultEmail     = "contato@minhaloja.com.br"
	DefaultCNPJ      = "00.000.000/0000-00"

	DefaultMaintenanceMessage = "Estamos em manutenção. Voltamos em breve!"
	DefaultLowStockThreshold  = 5
)

// StoreConfiguration holds the store identity, contact, SEO, maintenance and
// notification settings.
type StoreConfiguration struct {
	crud.Model
	StoreName   string `gorm:"size:120;not null" json:"storeName"`
	CNPJ        string `gorm:"column:cnpj;size:18" json:"cnpj"`
	Description string `json:"description"`
	Email       string `gorm:"size:255" json:"email"`
	Phone       string `gorm:"size:32" json:"phone"`
	WhatsApp    string `gorm:"column:whatsapp;size:32" json:"whatsapp"`

	Street       string `gorm:"size:255" json:"street"`
	Number       string `gorm:"size:16" json:"number"`
	Complement   string `gorm:"size:120" json:"complement"`
	Neighborhood string `gorm:"size:120" json:"neighborhood"`
	City         string `gorm:"size:120" json:"city"`
	State        string `gorm:"size:2" json:"state"`
	ZipCode      string `gorm:"size:9" json:"zipCode"`

	SeoTitle       string `gorm:"size:120" json:"seoTitle"`
	SeoDescription string `gorm:"size:320" json:"seoDescription"`
	SeoKeywords    string `gorm:"size:320" json:"seoKeywords"`

	MaintenanceMode    bool   `gorm:"not null" json:"maintenanceMode"`
	MaintenanceMessage string `json:"maintenanceMessage"`

	NotifyNewOrders     bool `gorm:"not null" json:"notifyNewOrders"`
	NotifyLowStock      bool `gorm:"not null" json:"notifyLowStock"`
	NotifyNewTeamMember bool `gorm:"not null" json:"notifyNewTeamMember"`
	LowStockThreshold   int  `gorm:"not null" json:"lowStockThreshold"`

	SocialMedia []SocialMedia `json:"socialMedia"`
}

// SocialMedia is a store profile link.
type SocialMedia struct {
	crud.Model
	Platform             string `gorm:"size:60;not null" json:"platform"`
	URL                  string `gorm:"size:512;not null" json:"url"`
	IsActive             bool   `gorm:"not null" json:"isActive"`
	StoreConfigurationID string `gorm:"size:36;not null;index" json:"storeConfigurationId"`
}

// PublicView is the subset of the configuration exposed to the storefront.
type PublicView struct {
	StoreName          string        `json:"storeName"`
	Description        string        `json:"description"`
	Email              string        `json:"email"`
	Phone              string        `json:"phone"`
	WhatsApp           string        `json:"whatsapp"`
	Street             string        `json:"street"`
	Number             string        `json:"number"`
	Complement         string        `json:"complement"`
	Neighborhood       string        `json:"neighborhood"`
	City               string        `json:"city"`
	State              string        `json:"state"`
	ZipCode            string        `json:"zipCode"`
	SeoTitle           string        `json:"seoTitle"`
	SeoDescription     string        `json:"seoDescription"`
	SeoKeywords        string        `json:"seoKeywords"`
	MaintenanceMode    bool          `json:"maintenanceMode"`
	MaintenanceMessage string        `json:"maintenanceMessage"`
	SocialMedia        []SocialMedia `json:"socialMedia"`
}

func (c *StoreConfiguration) Public() PublicView {
	social := make([]SocialMedia, 0, len(c.SocialMedia))
	for _, s := range c.SocialMedia {
		if s.IsActive {
			social = append(social, s)
		}
	}
	return PublicView{
		StoreName:          c.StoreName,
		Description:        c.Description,
		Email:              c.Email,
		Phone:              c.Phone,
		WhatsApp:           c.WhatsApp,
		Street:             c.Street,
		Number:             c.Number,
		Complement:         c.Complement,
		Neighborhood:       c.Neighborhood,
		City:               c.City,
		State:              c.State,
		ZipCode:            c.ZipCode,
		SeoTitle:           c.SeoTitle,
		SeoDescription:     c.SeoDescription,
		SeoKeywords:        c.SeoKeywords,
		MaintenanceMode:    c.MaintenanceMode,
		MaintenanceMessage: c.MaintenanceMessage,
		SocialMedia:        social,
	}
}
