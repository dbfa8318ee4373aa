package catalog

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vitrine/internal/domain/crud"
)

type Brand struct {
	crud.Model
	Name     string  `gorm:"size:120;not null;uniqueIndex" json:"name"`
	LogoURL  *string `gorm:"size:512" json:"logoUrl"`
	IsActive bool    `gorm:"not null" json:"isActive"`
}

type Category struct {
	crud.Model
	Name        string    `gorm:"size:120;not null;uniqueIndex" json:"name"`
	Description string    `json:"description"`
	ImageURL    *string   `gorm:"size:512" json:"imageUrl"`
	IsActive    bool      `gorm:"not null;index" json:"isActive"`
	IsHome      bool      `gorm:"not null" json:"isHome"`
	Products    []Product `gorm:"many2many:product_categories" json:"products,omitempty"`
}

type Product struct {
	crud.Model
	Title         string            `gorm:"size:255;not null" json:"title"`
	Slug          string            `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Description   string            `json:"description"`
	Price         decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"price"`
	DiscountPrice *decimal.Decimal  `gorm:"type:decimal(12,2)" json:"discountPrice"`
	Specs         datatypes.JSONMap `json:"specs"`
	IsActive      bool              `gorm:"not null;index" json:"isActive"`
	BrandID       *string           `gorm:"size:36;index" json:"brandId"`
	Brand         *Brand            `json:"brand,omitempty"`
	Categories    []Category        `gorm:"many2many:product_categories" json:"categories"`
	Images        []ProductImage    `json:"images"`
	Variants      []ProductVariant  `json:"variants"`

	DiscountPercent *int `gorm:"-" json:"discountPercent,omitempty"`
}

// AfterFind fills the computed discount percentage.
func (p *Product) AfterFind(tx *gorm.DB) error {
	p.DiscountPercent = DiscountPercent(p.Price, p.DiscountPrice)
	return nil
}

// ProductImage keeps an explicit ordinal; position 0 is the primary image.
type ProductImage struct {
	crud.Model
	ProductID string `gorm:"size:36;not null;index" json:"productId"`
	URL       string `gorm:"size:512;not null" json:"url"`
	Position  int    `gorm:"not null" json:"position"`
	IsPrimary bool   `gorm:"not null" json:"isPrimary"`
}

type ProductVariant struct {
	crud.Model
	ProductID string `gorm:"size:36;not null;index" json:"productId"`
	Name      string `gorm:"size:120;not null" json:"name"`
	Color     string `gorm:"size:16;not null" json:"color"`
	Quantity  int    `gorm:"not null" json:"quantity"`
}

// ProductCategory is the product ↔ category join row.
type ProductCategory struct {
	ProductID  string `gorm:"primaryKey;size:36"`
	CategoryID string `gorm:"primaryKey;size:36;index"`
}

func (ProductCategory) TableName() string { return "product_categories" }

// VariantInput is a variant as submitted by the back-office.
type VariantInput struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity"`
}

const (
	DefaultVariantName  = "Padrão"
	DefaultVariantColor = "#000000"
)

// ProductDraft carries everything needed to create a product.
type ProductDraft struct {
	Title         string
	Description   string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Specs         map[string]any
	IsActive      bool
	BrandID       *string
	CategoryIDs   []string
	Variants      []VariantInput
	ImagePaths    []string
}

// ProductPatch is a partial update; nil fields are left untouched.
// DiscountPrice with Valid=false clears the discount; an empty BrandID clears the brand.
// KeptImageURLs is ordered: the first kept image becomes the primary one.
type ProductPatch struct {
	Title         *string
	Description   *string
	Price         *decimal.Decimal
	DiscountPrice *decimal.NullDecimal
	Specs         *map[string]any
	IsActive      *bool
	BrandID       *string
	CategoryIDs   *[]string
	Variants      *[]VariantInput
	KeptImageURLs *[]string
	NewImagePaths []string
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	ActiveOnly bool
	CategoryID string
	BrandID    string
}

// CategoryQuery drives the storefront category listing.
type CategoryQuery struct {
	HomeOnly bool
	Skip     int
	Take     int
}

// DiscountPercent returns the rounded percentage off price, or nil when there is no valid discount.
func DiscountPercent(price decimal.Decimal, discount *decimal.Decimal) *int {
	if discount == nil || !price.IsPositive() || !discount.LessThan(price) {
		return nil
	}
	pct := int(price.Sub(*discount).Div(price).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	return &pct
}
