package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vitrine/internal/db"
	"vitrine/internal/domain/crud"
	"vitrine/internal/params"
)

const maxSlugAttempts = 3

// PriceScale matches the decimal(12,2) price columns.
const PriceScale = 2

var (
	ErrBrandNotFound    = errors.New("brand not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrTitleRequired    = errors.New("title is required")
	ErrInvalidPrice     = errors.New("price must be a non-negative number")
	ErrInvalidDiscount  = errors.New("discount price must be lower than price")
	ErrInvalidVariant   = errors.New("variant quantity must not be negative")
	ErrSlugConflict     = errors.New("could not allocate a unique slug")
)

// InUseError blocks deleting a brand or category that products still reference.
type InUseError struct {
	Count int64
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%d linked product(s)", e.Count)
}

// Store is the data access abstraction for the catalog domain.
type Store interface {
	WithTx(tx *gorm.DB) Store

	Brands() *crud.Repository[Brand]
	Categories() *crud.Repository[Category]
	Products() *crud.Repository[Product]

	// Brands & categories
	CountProductsByBrand(ctx context.Context, brandID string) (int64, error)
	CountProductsByCategory(ctx context.Context, categoryID string) (int64, error)
	DeleteBrand(ctx context.Context, id string) (*Brand, error)
	DeleteCategory(ctx context.Context, id string) (*Category, error)
	StorefrontCategories(ctx context.Context, q CategoryQuery) ([]Category, int64, error)
	CategoryProducts(ctx context.Context, categoryID string, limit int) ([]Product, error)

	// Products
	UniqueSlug(ctx context.Context, title, excludeID string) (string, error)
	CreateProduct(ctx context.Context, d ProductDraft) (*Product, error)
	UpdateProduct(ctx context.Context, id string, p ProductPatch) (*Product, []string, error)
	DeleteProduct(ctx context.Context, id string) ([]string, error)
	GetProductBySlug(ctx context.Context, slug string, activeOnly bool) (*Product, error)
	ListProducts(ctx context.Context, p params.Pagination, f ProductFilter) (*crud.Page[Product], error)
}

type Repository struct {
	db         *gorm.DB
	brands     *crud.Repository[Brand]
	categories *crud.Repository[Category]
	products   *crud.Repository[Product]
}

func orderedImages(q *gorm.DB) *gorm.DB { return q.Order("position ASC") }

func NewRepository(gdb *gorm.DB) Store {
	return &Repository{
		db:         gdb,
		brands:     crud.NewRepository[Brand](gdb, crud.WithSearch("name"), crud.WithOrder("name ASC")),
		categories: crud.NewRepository[Category](gdb, crud.WithSearch("name", "description"), crud.WithOrder("name ASC")),
		products: crud.NewRepository[Product](gdb,
			crud.WithSearch("title", "description", "slug"),
			crud.WithPreload("Brand"),
			crud.WithPreload("Categories"),
			crud.WithPreload("Images", orderedImages),
			crud.WithPreload("Variants", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC") }),
		),
	}
}

// Migrate creates or updates the catalog tables.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.SetupJoinTable(&Product{}, "Categories", &ProductCategory{}); err != nil {
		return err
	}
	if err := gdb.SetupJoinTable(&Category{}, "Products", &ProductCategory{}); err != nil {
		return err
	}
	return gdb.AutoMigrate(&Brand{}, &Category{}, &Product{}, &ProductImage{}, &ProductVariant{}, &ProductCategory{})
}

func (r *Repository) WithTx(tx *gorm.DB) Store {
	return &Repository{
		db:         tx,
		brands:     r.brands.WithTx(tx),
		categories: r.categories.WithTx(tx),
		products:   r.products.WithTx(tx),
	}
}

func (r *Repository) Brands() *crud.Repository[Brand]       { return r.brands }
func (r *Repository) Categories() *crud.Repository[Category] { return r.categories }
func (r *Repository) Products() *crud.Repository[Product]     { return r.products }

func (r *Repository) CountProductsByBrand(ctx context.Context, brandID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Product{}).Where("brand_id = ?", brandID).Count(&n).Error
	return n, err
}

func (r *Repository) CountProductsByCategory(ctx context.Context, categoryID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&ProductCategory{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

// DeleteBrand removes a brand no product references and returns the deleted row.
func (r *Repository) DeleteBrand(ctx context.Context, id string) (*Brand, error) {
	var deleted *Brand
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := r.WithTx(tx)
		b, err := s.Brands().Get(ctx, id)
		if errors.Is(err, crud.ErrNotFound) {
			return ErrBrandNotFound
		}
		if err != nil {
			return err
		}

		n, err := s.CountProductsByBrand(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &InUseError{Count: n}
		}

		if err := s.Brands().Delete(ctx, id); err != nil {
			return err
		}
		deleted = b
		return nil
	})
	return deleted, err
}

// DeleteCategory removes a category no product references and returns the deleted row.
func (r *Repository) DeleteCategory(ctx context.Context, id string) (*Category, error) {
	var deleted *Category
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := r.WithTx(tx)
		c, err := s.Categories().Get(ctx, id)
		if errors.Is(err, crud.ErrNotFound) {
			return ErrCategoryNotFound
		}
		if err != nil {
			return err
		}

		n, err := s.CountProductsByCategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &InUseError{Count: n}
		}

		if err := s.Categories().Delete(ctx, id); err != nil {
			return err
		}
		deleted = c
		return nil
	})
	return deleted, err
}

// StorefrontCategories lists active categories (optionally home-only) in name order.
// Take <= 0 returns every row after Skip.
func (r *Repository) StorefrontCategories(ctx context.Context, q CategoryQuery) ([]Category, int64, error) {
	base := r.db.WithContext(ctx).Model(&Category{}).Scopes(crud.Active)
	if q.HomeOnly {
		base = base.Where("is_home = ?", true)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := make([]Category, 0)
	find := base.Order("name ASC").Offset(q.Skip)
	if q.Take > 0 {
		find = find.Limit(q.Take)
	}
	if err := find.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CategoryProducts returns up to limit active products linked to the category, newest first.
func (r *Repository) CategoryProducts(ctx context.Context, categoryID string, limit int) ([]Product, error) {
	rows := make([]Product, 0)
	q := r.db.WithContext(ctx).
		Preload("Images", orderedImages).
		Joins("JOIN product_categories pc ON pc.product_id = products.id").
		Where("pc.category_id = ? AND products.is_active = ?", categoryID, true).
		Order("products.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) GetProductBySlug(ctx context.Context, slug string, activeOnly bool) (*Product, error) {
	p, err := r.products.FindBy(ctx, "slug", slug)
	if errors.Is(err, crud.ErrNotFound) || (err == nil && activeOnly && !p.IsActive) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (r *Repository) ListProducts(ctx context.Context, p params.Pagination, f ProductFilter) (*crud.Page[Product], error) {
	var scopes []func(*gorm.DB) *gorm.DB
	if f.ActiveOnly {
		scopes = append(scopes, crud.Active)
	}
	if f.BrandID != "" {
		scopes = append(scopes, func(q *gorm.DB) *gorm.DB { return q.Where("brand_id = ?", f.BrandID) })
	}
	if f.CategoryID != "" {
		sub := r.db.Session(&gorm.Session{NewDB: true}).
			Model(&ProductCategory{}).Select("product_id").Where("category_id = ?", f.CategoryID)
		scopes = append(scopes, func(q *gorm.DB) *gorm.DB { return q.Where("id IN (?)", sub) })
	}
	return r.products.List(ctx, p, scopes...)
}

// CreateProduct validates the draft and inserts the product, its variants,
// images and category links in one transaction. A slug taken by a concurrent
// insert retries the whole transaction with a fresh slug.
func (r *Repository) CreateProduct(ctx context.Context, d ProductDraft) (*Product, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return nil, ErrTitleRequired
	}
	d.Price = d.Price.Round(PriceScale)
	if d.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if d.DiscountPrice != nil {
		discount := d.DiscountPrice.Round(PriceScale)
		if discount.IsNegative() {
			return nil, ErrInvalidPrice
		}
		if !discount.LessThan(d.Price) {
			return nil, ErrInvalidDiscount
		}
		d.DiscountPrice = &discount
	}
	variants, err := buildVariants(d.Variants)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		var id string
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			s := r.WithTx(tx).(*Repository)

			if err := s.checkBrand(ctx, d.BrandID); err != nil {
				return err
			}
			if err := s.checkCategories(ctx, d.CategoryIDs); err != nil {
				return err
			}

			slug, err := s.UniqueSlug(ctx, d.Title, "")
			if err != nil {
				return err
			}

			p := &Product{
				Title:         d.Title,
				Slug:          slug,
				Description:   strings.TrimSpace(d.Description),
				Price:         d.Price,
				DiscountPrice: d.DiscountPrice,
				Specs:         datatypes.JSONMap(d.Specs),
				IsActive:      d.IsActive,
				BrandID:       emptyToNil(d.BrandID),
			}
			if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
				return err
			}

			if err := s.insertVariants(p.ID, variants); err != nil {
				return err
			}
			if err := s.insertImages(p.ID, d.ImagePaths, 0); err != nil {
				return err
			}
			if err := s.linkCategories(p.ID, d.CategoryIDs); err != nil {
				return err
			}

			id = p.ID
			return nil
		})
		if err == nil {
			return r.products.Get(ctx, id)
		}
		if !db.IsUniqueViolation(err) {
			return nil, err
		}
	}
	return nil, ErrSlugConflict
}

// UpdateProduct applies a partial update in one transaction and returns the
// fresh product plus the storage paths of images that were dropped.
func (r *Repository) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, []string, error) {
	var variants []ProductVariant
	if patch.Variants != nil {
		var err error
		if variants, err = buildVariants(*patch.Variants); err != nil {
			return nil, nil, err
		}
	}

	var removed []string
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		removed = nil
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			s := r.WithTx(tx).(*Repository)

			var current Product
			if err := tx.First(&current, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrProductNotFound
				}
				return err
			}

			fields, err := s.productFields(ctx, &current, patch)
			if err != nil {
				return err
			}
			fields["updated_at"] = tx.NowFunc()
			if err := tx.Model(&current).Updates(fields).Error; err != nil {
				return err
			}

			if patch.Variants != nil {
				if err := tx.Where("product_id = ?", id).Delete(&ProductVariant{}).Error; err != nil {
					return err
				}
				if err := s.insertVariants(id, variants); err != nil {
					return err
				}
			}

			if patch.CategoryIDs != nil {
				if err := s.checkCategories(ctx, *patch.CategoryIDs); err != nil {
					return err
				}
				if err := tx.Where("product_id = ?", id).Delete(&ProductCategory{}).Error; err != nil {
					return err
				}
				if err := s.linkCategories(id, *patch.CategoryIDs); err != nil {
					return err
				}
			}

			if patch.KeptImageURLs != nil || len(patch.NewImagePaths) > 0 {
				dropped, err := s.reconcileImages(id, patch.KeptImageURLs, patch.NewImagePaths)
				if err != nil {
					return err
				}
				removed = dropped
			}
			return nil
		})
		if err == nil {
			p, err := r.products.Get(ctx, id)
			return p, removed, err
		}
		if !db.IsUniqueViolation(err) || patch.Title == nil {
			return nil, nil, err
		}
	}
	return nil, nil, ErrSlugConflict
}

// productFields validates the scalar part of a patch against the stored row.
func (r *Repository) productFields(ctx context.Context, current *Product, patch ProductPatch) (map[string]any, error) {
	fields := map[string]any{}
	price := current.Price
	discount := current.DiscountPrice

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		fields["title"] = title
		if title != current.Title {
			slug, err := r.UniqueSlug(ctx, title, current.ID)
			if err != nil {
				return nil, err
			}
			fields["slug"] = slug
		}
	}
	if patch.Description != nil {
		fields["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		price = patch.Price.Round(PriceScale)
		if price.IsNegative() {
			return nil, ErrInvalidPrice
		}
		fields["price"] = price
	}
	if patch.DiscountPrice != nil {
		if patch.DiscountPrice.Valid {
			d := patch.DiscountPrice.Decimal.Round(PriceScale)
			if d.IsNegative() {
				return nil, ErrInvalidPrice
			}
			discount = &d
			fields["discount_price"] = d
		} else {
			discount = nil
			fields["discount_price"] = nil
		}
	}
	if discount != nil && !discount.LessThan(price) {
		return nil, ErrInvalidDiscount
	}
	if patch.Specs != nil {
		fields["specs"] = datatypes.JSONMap(*patch.Specs)
	}
	if patch.IsActive != nil {
		fields["is_active"] = *patch.IsActive
	}
	if patch.BrandID != nil {
		if err := r.checkBrand(ctx, patch.BrandID); err != nil {
			return nil, err
		}
		fields["brand_id"] = emptyToNil(patch.BrandID)
	}
	return fields, nil
}

// reconcileImages keeps the listed images in the given order, deletes the
// rest, appends new uploads and rewrites positions. Returns the dropped paths.
func (r *Repository) reconcileImages(productID string, kept *[]string, added []string) ([]string, error) {
	var current []ProductImage
	if err := r.db.Where("product_id = ?", productID).Order("position ASC").Find(&current).Error; err != nil {
		return nil, err
	}

	byURL := make(map[string]ProductImage, len(current))
	for _, img := range current {
		byURL[img.URL] = img
	}

	var keep []ProductImage
	if kept == nil {
		keep = current
	} else {
		seen := make(map[string]bool, len(*kept))
		for _, u := range *kept {
			if img, ok := byURL[u]; ok && !seen[u] {
				keep = append(keep, img)
				seen[u] = true
			}
		}
	}

	keepIDs := make(map[string]bool, len(keep))
	for _, img := range keep {
		keepIDs[img.ID] = true
	}

	var removed []string
	var removedIDs []string
	for _, img := range current {
		if !keepIDs[img.ID] {
			removed = append(removed, img.URL)
			removedIDs = append(removedIDs, img.ID)
		}
	}
	if len(removedIDs) > 0 {
		if err := r.db.Where("id IN ?", removedIDs).Delete(&ProductImage{}).Error; err != nil {
			return nil, err
		}
	}

	for i, img := range keep {
		if img.Position == i && img.IsPrimary == (i == 0) {
			continue
		}
		err := r.db.Model(&ProductImage{}).Where("id = ?", img.ID).
			Updates(map[string]any{"position": i, "is_primary": i == 0}).Error
		if err != nil {
			return nil, err
		}
	}

	if err := r.insertImages(productID, added, len(keep)); err != nil {
		return nil, err
	}
	return removed, nil
}

// DeleteProduct removes the product with its variants, images and category
// links, returning the image paths left to clean up.
func (r *Repository) DeleteProduct(ctx context.Context, id string) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Product
		if err := tx.Select("id").First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		if err := tx.Model(&ProductImage{}).Where("product_id = ?", id).Pluck("url", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&ProductVariant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&ProductCategory{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Product{}).Error
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (r *Repository) checkBrand(ctx context.Context, brandID *string) error {
	if brandID == nil || *brandID == "" {
		return nil
	}
	ok, err := r.brands.Exists(ctx, "id", *brandID, "")
	if err != nil {
		return err
	}
	if !ok {
		return ErrBrandNotFound
	}
	return nil
}

func (r *Repository) checkCategories(ctx context.Context, ids []string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&Category{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *Repository) linkCategories(productID string, ids []string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}
	links := make([]ProductCategory, len(ids))
	for i, cid := range ids {
		links[i] = ProductCategory{ProductID: productID, CategoryID: cid}
	}
	return r.db.Create(&links).Error
}

func (r *Repository) insertVariants(productID string, variants []ProductVariant) error {
	if len(variants) == 0 {
		return nil
	}
	rows := make([]ProductVariant, len(variants))
	for i, v := range variants {
		v.ProductID = productID
		rows[i] = v
	}
	return r.db.Create(&rows).Error
}

func (r *Repository) insertImages(productID string, paths []string, offset int) error {
	if len(paths) == 0 {
		return nil
	}
	rows := make([]ProductImage, len(paths))
	for i, p := range paths {
		pos := offset + i
		rows[i] = ProductImage{ProductID: productID, URL: p, Position: pos, IsPrimary: pos == 0}
	}
	return r.db.Create(&rows).Error
}

// buildVariants applies defaults and rejects negative stock.
func buildVariants(in []VariantInput) ([]ProductVariant, error) {
	out := make([]ProductVariant, 0, len(in))
	for _, v := range in {
		if v.Quantity < 0 {
			return nil, ErrInvalidVariant
		}
		name := strings.TrimSpace(v.Name)
		if name == "" {
			name = DefaultVariantName
		}
		color := strings.TrimSpace(v.Color)
		if color == "" {
			color = DefaultVariantColor
		}
		out = append(out, ProductVariant{Name: name, Color: color, Quantity: v.Quantity})
	}
	return out, nil
}

// LowStock returns the variants at or below threshold.
func LowStock(p *Product, threshold int) []ProductVariant {
	var low []ProductVariant
	for _, v := range p.Variants {
		if v.Quantity <= threshold {
			low = append(low, v)
		}
	}
	return low
}

// ParsePrice accepts "1234.56" as well as the Brazilian "1.234,56", rounded
// to cents.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Round(PriceScale), nil
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
