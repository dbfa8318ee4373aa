package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vitrine/internal/db/dbtest"
	"vitrine/internal/params"
)

func newTestStore(t *testing.T) (Store, *gorm.DB) {
	t.Helper()
	gdb := dbtest.New(t)
	require.NoError(t, Migrate(gdb))
	return NewRepository(gdb), gdb
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Anel de Prata":          "anel-de-prata",
		"  Colar   Dourado  ":    "colar-dourado",
		"Pingente Coração!":      "pingente-coracao",
		"Brinco -- Ágata / Ônix": "brinco-agata-onix",
		"Açaí & Maçã":            "acai-maca",
		"":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestCreateProductSlugCollision(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateProduct(ctx, ProductDraft{Title: "Anel de Prata", Price: dec("100")})
	require.NoError(t, err)
	assert.Equal(t, "anel-de-prata", first.Slug)

	second, err := store.CreateProduct(ctx, ProductDraft{Title: "Anel de Prata", Price: dec("100")})
	require.NoError(t, err)
	assert.Equal(t, "anel-de-prata-1", second.Slug)

	third, err := store.CreateProduct(ctx, ProductDraft{Title: "Anel de Prata", Price: dec("100")})
	require.NoError(t, err)
	assert.Equal(t, "anel-de-prata-2", third.Slug)
}

func TestCreateProductRejectsDiscountNotBelowPrice(t *testing.T) {
	store, gdb := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProduct(ctx, ProductDraft{Title: "Pulseira", Price: dec("80"), DiscountPrice: decPtr("120")})
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = store.CreateProduct(ctx, ProductDraft{Title: "Pulseira", Price: dec("80"), DiscountPrice: decPtr("80")})
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = store.CreateProduct(ctx, ProductDraft{Title: "Pulseira", Price: dec("100"), DiscountPrice: decPtr("-50")})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	// both round to 10.00 in a decimal(12,2) column
	_, err = store.CreateProduct(ctx, ProductDraft{Title: "Pulseira", Price: dec("10.004"), DiscountPrice: decPtr("10.001")})
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	var n int64
	require.NoError(t, gdb.Model(&Product{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateProductWithRelations(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	brand := &Brand{Name: "Acme", IsActive: true}
	require.NoError(t, store.Brands().Create(ctx, brand))
	cat := &Category{Name: "Anéis", IsActive: true}
	require.NoError(t, store.Categories().Create(ctx, cat))

	p, err := store.CreateProduct(ctx, ProductDraft{
		Title:         "Anel Solitário",
		Price:         dec("250.00"),
		DiscountPrice: decPtr("200.00"),
		Specs:         map[string]any{"material": "prata 925"},
		IsActive:      true,
		BrandID:       &brand.ID,
		CategoryIDs:   []string{cat.ID, cat.ID},
		Variants:      []VariantInput{{Quantity: 3}, {Name: "Aro 18", Color: "#c0c0c0", Quantity: 1}},
		ImagePaths:    []string{"products/a.jpg", "products/b.jpg"},
	})
	require.NoError(t, err)

	require.NotNil(t, p.Brand)
	assert.Equal(t, "Acme", p.Brand.Name)
	require.Len(t, p.Categories, 1)
	require.Len(t, p.Variants, 2)
	byName := map[string]ProductVariant{}
	for _, v := range p.Variants {
		byName[v.Name] = v
	}
	require.Contains(t, byName, DefaultVariantName)
	assert.Equal(t, DefaultVariantColor, byName[DefaultVariantName].Color)
	assert.Equal(t, 3, byName[DefaultVariantName].Quantity)
	assert.Equal(t, "#c0c0c0", byName["Aro 18"].Color)
	require.Len(t, p.Images, 2)
	assert.True(t, p.Images[0].IsPrimary)
	assert.Equal(t, "products/a.jpg", p.Images[0].URL)
	assert.False(t, p.Images[1].IsPrimary)
	assert.Equal(t, "prata 925", p.Specs["material"])
	require.NotNil(t, p.DiscountPercent)
	assert.Equal(t, 20, *p.DiscountPercent)
}

func TestCreateProductUnknownReferences(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	missing := "does-not-exist"
	_, err := store.CreateProduct(ctx, ProductDraft{Title: "X", Price: dec("1"), BrandID: &missing})
	assert.ErrorIs(t, err, ErrBrandNotFound)

	_, err = store.CreateProduct(ctx, ProductDraft{Title: "X", Price: dec("1"), CategoryIDs: []string{missing}})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCreateProductNegativeVariant(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.CreateProduct(context.Background(), ProductDraft{
		Title: "X", Price: dec("1"), Variants: []VariantInput{{Quantity: -1}},
	})
	assert.ErrorIs(t, err, ErrInvalidVariant)
}

func TestUpdateProductDiscountAgainstEffectivePrice(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	p, err := store.CreateProduct(ctx, ProductDraft{Title: "Colar", Price: dec("100"), DiscountPrice: decPtr("90")})
	require.NoError(t, err)

	lower := dec("85")
	_, _, err = store.UpdateProduct(ctx, p.ID, ProductPatch{Price: &lower})
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	cleared := decimal.NullDecimal{}
	updated, _, err := store.UpdateProduct(ctx, p.ID, ProductPatch{Price: &lower, DiscountPrice: &cleared})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(lower))
	assert.Nil(t, updated.DiscountPrice)
}

func TestUpdateProductTitleRegeneratesSlug(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProduct(ctx, ProductDraft{Title: "Brinco Gota", Price: dec("10")})
	require.NoError(t, err)
	other, err := store.CreateProduct(ctx, ProductDraft{Title: "Brinco Argola", Price: dec("10")})
	require.NoError(t, err)

	title := "Brinco Gota"
	updated, _, err := store.UpdateProduct(ctx, other.ID, ProductPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "brinco-gota-1", updated.Slug)

	// unchanged title keeps its slug
	again, _, err := store.UpdateProduct(ctx, other.ID, ProductPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "brinco-gota-1", again.Slug)
}

func TestUpdateProductVariantsReplacedWholesale(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	p, err := store.CreateProduct(ctx, ProductDraft{
		Title: "Tornozeleira", Price: dec("30"),
		Variants: []VariantInput{{Name: "P", Quantity: 1}, {Name: "M", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, p.Variants, 2)

	desc := "nova descrição"
	untouched, _, err := store.UpdateProduct(ctx, p.ID, ProductPatch{Description: &desc})
	require.NoError(t, err)
	assert.Len(t, untouched.Variants, 2)

	empty := []VariantInput{}
	cleared, _, err := store.UpdateProduct(ctx, p.ID, ProductPatch{Variants: &empty})
	require.NoError(t, err)
	assert.Empty(t, cleared.Variants)
}

func TestUpdateProductReconcilesImages(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	p, err := store.CreateProduct(ctx, ProductDraft{
		Title: "Relógio", Price: dec("500"),
		ImagePaths: []string{"products/1.jpg", "products/2.jpg", "products/3.jpg"},
	})
	require.NoError(t, err)

	kept := []string{"products/3.jpg", "products/1.jpg"}
	updated, removed, err := store.UpdateProduct(ctx, p.ID, ProductPatch{
		KeptImageURLs: &kept,
		NewImagePaths: []string{"products/4.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"products/2.jpg"}, removed)
	require.Len(t, updated.Images, 3)
	assert.Equal(t, "products/3.jpg", updated.Images[0].URL)
	assert.True(t, updated.Images[0].IsPrimary)
	assert.Equal(t, "products/1.jpg", updated.Images[1].URL)
	assert.False(t, updated.Images[1].IsPrimary)
	assert.Equal(t, "products/4.jpg", updated.Images[2].URL)
	assert.Equal(t, 2, updated.Images[2].Position)
}

func TestUpdateProductRollsBackOnFailure(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	p, err := store.CreateProduct(ctx, ProductDraft{
		Title: "Broche", Price: dec("40"), Variants: []VariantInput{{Name: "Único", Quantity: 5}},
	})
	require.NoError(t, err)

	variants := []VariantInput{}
	missing := []string{"nope"}
	_, _, err = store.UpdateProduct(ctx, p.ID, ProductPatch{Variants: &variants, CategoryIDs: &missing})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	fresh, err := store.Products().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.Variants, 1)
}

func TestDeleteProductReturnsImagePaths(t *testing.T) {
	store, gdb := newTestStore(t)
	ctx := context.Background()

	cat := &Category{Name: "Relógios", IsActive: true}
	require.NoError(t, store.Categories().Create(ctx, cat))
	p, err := store.CreateProduct(ctx, ProductDraft{
		Title: "Relógio", Price: dec("500"), CategoryIDs: []string{cat.ID},
		Variants:   []VariantInput{{Quantity: 1}},
		ImagePaths: []string{"products/x.jpg"},
	})
	require.NoError(t, err)

	paths, err := store.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"products/x.jpg"}, paths)

	for _, model := range []any{&Product{}, &ProductVariant{}, &ProductImage{}, &ProductCategory{}} {
		var n int64
		require.NoError(t, gdb.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}

	_, err = store.DeleteProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDeleteCategoryBlockedByProducts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	cat := &Category{Name: "Colares", IsActive: true}
	require.NoError(t, store.Categories().Create(ctx, cat))
	_, err := store.CreateProduct(ctx, ProductDraft{Title: "Colar", Price: dec("1"), CategoryIDs: []string{cat.ID}})
	require.NoError(t, err)

	_, err = store.DeleteCategory(ctx, cat.ID)
	var inUse *InUseError
	require.True(t, errors.As(err, &inUse))
	assert.Equal(t, int64(1), inUse.Count)

	_, err = store.Categories().Get(ctx, cat.ID)
	assert.NoError(t, err)
}

func TestDeleteBrandBlockedByProducts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	brand := &Brand{Name: "Vivara", IsActive: true}
	require.NoError(t, store.Brands().Create(ctx, brand))
	p, err := store.CreateProduct(ctx, ProductDraft{Title: "Anel", Price: dec("1"), BrandID: &brand.ID})
	require.NoError(t, err)

	_, err = store.DeleteBrand(ctx, brand.ID)
	var inUse *InUseError
	require.True(t, errors.As(err, &inUse))

	_, err = store.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)

	deleted, err := store.DeleteBrand(ctx, brand.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vivara", deleted.Name)

	_, err = store.DeleteBrand(ctx, brand.ID)
	assert.ErrorIs(t, err, ErrBrandNotFound)
}

func TestListProductsFilters(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	cat := &Category{Name: "Pulseiras", IsActive: true}
	require.NoError(t, store.Categories().Create(ctx, cat))

	_, err := store.CreateProduct(ctx, ProductDraft{Title: "Pulseira Ativa", Price: dec("1"), IsActive: true, CategoryIDs: []string{cat.ID}})
	require.NoError(t, err)
	_, err = store.CreateProduct(ctx, ProductDraft{Title: "Pulseira Inativa", Price: dec("1"), CategoryIDs: []string{cat.ID}})
	require.NoError(t, err)
	_, err = store.CreateProduct(ctx, ProductDraft{Title: "Anel Ativo", Price: dec("1"), IsActive: true})
	require.NoError(t, err)

	page, err := store.ListProducts(ctx, params.New(1, 10, ""), ProductFilter{ActiveOnly: true, CategoryID: cat.ID})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Pulseira Ativa", page.Data[0].Title)

	page, err = store.ListProducts(ctx, params.New(1, 10, "Pulseira"), ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Meta.Total)
}

func TestStorefrontCategories(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	home := &Category{Name: "Destaques", IsActive: true, IsHome: true}
	require.NoError(t, store.Categories().Create(ctx, home))
	require.NoError(t, store.Categories().Create(ctx, &Category{Name: "Outros", IsActive: true}))
	require.NoError(t, store.Categories().Create(ctx, &Category{Name: "Ocultos", IsActive: false, IsHome: true}))

	rows, total, err := store.StorefrontCategories(ctx, CategoryQuery{HomeOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "Destaques", rows[0].Name)

	rows, total, err = store.StorefrontCategories(ctx, CategoryQuery{Take: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rows, 1)

	_, err = store.CreateProduct(ctx, ProductDraft{Title: "Em destaque", Price: dec("1"), IsActive: true, CategoryIDs: []string{home.ID}})
	require.NoError(t, err)
	_, err = store.CreateProduct(ctx, ProductDraft{Title: "Rascunho", Price: dec("1"), CategoryIDs: []string{home.ID}})
	require.NoError(t, err)

	products, err := store.CategoryProducts(ctx, home.ID, 8)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Em destaque", products[0].Title)
}

func TestDiscountPercentAndParsePrice(t *testing.T) {
	assert.Nil(t, DiscountPercent(dec("100"), nil))
	assert.Nil(t, DiscountPercent(dec("0"), decPtr("0")))
	assert.Nil(t, DiscountPercent(dec("100"), decPtr("100")))
	assert.Equal(t, 33, *DiscountPercent(dec("150"), decPtr("100")))

	for in, want := range map[string]string{"1234.56": "1234.56", "1.234,56": "1234.56", "R$ 99,90": "99.9", "10": "10", "10.004": "10", "10,006": "10.01"} {
		got, err := ParsePrice(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(dec(want)), "%s → %s", in, got)
	}
	_, err := ParsePrice("abc")
	assert.Error(t, err)
}

func TestUpdateProductRejectsNegativeDiscount(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	p, err := store.CreateProduct(ctx, ProductDraft{Title: "Colar", Price: dec("100")})
	require.NoError(t, err)

	negative := decimal.NullDecimal{Decimal: dec("-1"), Valid: true}
	_, _, err = store.UpdateProduct(ctx, p.ID, ProductPatch{DiscountPrice: &negative})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	almost := decimal.NullDecimal{Decimal: dec("99.999"), Valid: true}
	_, _, err = store.UpdateProduct(ctx, p.ID, ProductPatch{DiscountPrice: &almost})
	assert.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestLowStock(t *testing.T) {
	p := &Product{Variants: []ProductVariant{{Name: "A", Quantity: 0}, {Name: "B", Quantity: 10}, {Name: "C", Quantity: 3}}}
	low := LowStock(p, 3)
	require.Len(t, low, 2)
	assert.Equal(t, "A", low[0].Name)
	assert.Equal(t, "C", low[1].Name)
}
