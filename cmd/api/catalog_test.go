package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/domain/banners"
	"vitrine/internal/domain/catalog"
	"vitrine/internal/domain/crud"
)

func TestBrandCreateDefaultsAndUniqueName(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/private/brand", env.adminToken, map[string]any{"name": "Acme"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	brand := decode[catalog.Brand](t, rr)
	assert.Equal(t, "Acme", brand.Name)
	assert.True(t, brand.IsActive)

	rr = env.request(t, http.MethodPost, "/api/private/brand", env.adminToken, map[string]any{"name": "Acme"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Já existe uma marca com este nome", errorMessage(t, rr))
}

func TestBrandValidationMessage(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/private/brand", env.adminToken, map[string]any{"name": "   "})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "O campo nome é obrigatório", errorMessage(t, rr))

	rr = env.request(t, http.MethodPost, "/api/private/brand", env.adminToken, map[string]any{"name": "X", "unknown": 1})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, invalidBodyMessage, errorMessage(t, rr))
}

func TestBrandListSearchAndPagination(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"Acme", "Acme Joias", "Bella", "Cora"} {
		rr := env.request(t, http.MethodPost, "/api/private/brand", env.adminToken, map[string]any{"name": name})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := env.request(t, http.MethodGet, "/api/private/brand?search=Acme", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[crud.Page[catalog.Brand]](t, rr)
	assert.Len(t, page.Data, 2)
	assert.EqualValues(t, 2, page.Meta.Total)

	// same query twice gives the same answer
	again := decode[crud.Page[catalog.Brand]](t, env.request(t, http.MethodGet, "/api/private/brand?search=Acme", env.adminToken, nil))
	assert.Equal(t, page.Meta, again.Meta)

	rr = env.request(t, http.MethodGet, "/api/private/brand?page=2&limit=3", env.adminToken, nil)
	page = decode[crud.Page[catalog.Brand]](t, rr)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Cora", page.Data[0].Name)
	assert.Equal(t, 2, page.Meta.TotalPages)
	assert.True(t, page.Meta.HasPrev)
	assert.False(t, page.Meta.HasNext)
}

func TestPrivateRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodGet, "/api/private/brand", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.request(t, http.MethodGet, "/api/private/brand", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCategoryPartialUpdate(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/private/category", env.adminToken, map[string]any{
		"name":        "Anéis",
		"description": "Anéis de prata",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[catalog.Category](t, rr)

	rr = env.request(t, http.MethodPatch, "/api/private/category/"+created.ID, env.adminToken, map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[catalog.Category](t, rr)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Anéis", updated.Name)
	assert.Equal(t, "Anéis de prata", updated.Description)

	rr = env.request(t, http.MethodPatch, "/api/private/category/missing", env.adminToken, map[string]any{"isActive": true})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Categoria não encontrada", errorMessage(t, rr))
}

func TestProductDiscountMustBeBelowPrice(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{
		"title":         "Colar",
		"price":         100,
		"discountPrice": 120,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "O preço promocional deve ser menor que o preço", errorMessage(t, rr))

	rr = env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{
		"title":         "Colar",
		"price":         100,
		"discountPrice": -50,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, invalidPriceMessage, errorMessage(t, rr))

	var n int64
	require.NoError(t, env.gdb.Model(&catalog.Product{}).Count(&n).Error)
	assert.Zero(t, n)

	rr = env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{
		"title":         "Colar",
		"price":         100,
		"discountPrice": 80,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	product := decode[catalog.Product](t, rr)
	assert.Equal(t, "colar", product.Slug)
	require.NotNil(t, product.DiscountPercent)
	assert.Equal(t, 20, *product.DiscountPercent)

	// the discount is checked against the stored price on update
	rr = env.request(t, http.MethodPatch, "/api/private/product/"+product.ID, env.adminToken, map[string]any{"price": 50})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "O preço promocional deve ser menor que o preço", errorMessage(t, rr))
}

func TestProductRequiresTitleAndPrice(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{"price": 10})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "O título é obrigatório", errorMessage(t, rr))

	rr = env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{"title": "Brinco"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "O preço é obrigatório", errorMessage(t, rr))

	rr = env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{"title": "Brinco", "price": "abc"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, invalidPriceMessage, errorMessage(t, rr))
}

func TestProductSlugsAreUnique(t *testing.T) {
	env := newTestEnv(t)

	var slugs []string
	for range 2 {
		rr := env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{
			"title": "Anel de Prata",
			"price": "89,90",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		slugs = append(slugs, decode[catalog.Product](t, rr).Slug)
	}
	assert.Equal(t, []string{"anel-de-prata", "anel-de-prata-1"}, slugs)
}

func TestCategoryDeleteBlockedByLinkedProduct(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/private/category", env.adminToken, map[string]any{"name": "Pulseiras"})
	require.Equal(t, http.StatusCreated, rr.Code)
	category := decode[catalog.Category](t, rr)

	rr = env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{
		"title":       "Pulseira",
		"price":       30,
		"categoryIds": []string{category.ID},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	product := decode[catalog.Product](t, rr)
	require.Len(t, product.Categories, 1)

	rr = env.request(t, http.MethodDelete, "/api/private/category/"+category.ID, env.adminToken, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, errorMessage(t, rr), "1 produto(s)")

	rr = env.request(t, http.MethodPatch, "/api/private/product/"+product.ID, env.adminToken, map[string]any{"categoryIds": []string{}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, decode[catalog.Product](t, rr).Categories)

	rr = env.request(t, http.MethodDelete, "/api/private/category/"+category.ID, env.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Categoria excluída com sucesso", decode[messageResponse](t, rr).Message)
}

func TestBrandDeleteBlockedByProduct(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/private/brand", env.adminToken, map[string]any{"name": "Acme"})
	require.Equal(t, http.StatusCreated, rr.Code)
	brand := decode[catalog.Brand](t, rr)

	rr = env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{
		"title": "Relógio", "price": 300, "brandId": brand.ID,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.request(t, http.MethodDelete, "/api/private/brand/"+brand.ID, env.adminToken, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Não é possível excluir a marca: existem 1 produto(s) vinculado(s)", errorMessage(t, rr))

	rr = env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{
		"title": "Relógio", "price": 300, "brandId": "missing",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, brandNotFoundMessage, errorMessage(t, rr))
}

func TestProductVariantsReplacedWithEmptyList(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{
		"title": "Camiseta",
		"price": 59.9,
		"variants": []map[string]any{
			{"name": "P", "color": "#ffffff", "quantity": 10},
			{"name": "M", "quantity": 12},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	product := decode[catalog.Product](t, rr)
	require.Len(t, product.Variants, 2)

	// fields absent from the body leave variants alone
	rr = env.request(t, http.MethodPatch, "/api/private/product/"+product.ID, env.adminToken, map[string]any{"title": "Camiseta Básica"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[catalog.Product](t, rr)
	assert.Len(t, updated.Variants, 2)
	assert.Equal(t, "camiseta-basica", updated.Slug)

	rr = env.request(t, http.MethodPatch, "/api/private/product/"+product.ID, env.adminToken, map[string]any{"variants": []any{}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, decode[catalog.Product](t, rr).Variants)

	var n int64
	require.NoError(t, env.gdb.Model(&catalog.ProductVariant{}).Where("product_id = ?", product.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestProductMultipartImagesLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rr := env.multipartRequest(t, http.MethodPost, "/api/private/product", env.adminToken,
		map[string]string{
			"title":         "Brinco Gota",
			"price":         "49,90",
			"discountPrice": "",
			"variants":      `[{"name":"Único","quantity":3}]`,
		},
		formFile{field: "files", name: "a.png", data: pngBytes},
		formFile{field: "files", name: "b.png", data: pngBytes},
	)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	product := decode[catalog.Product](t, rr)
	assert.Nil(t, product.DiscountPrice)
	assert.Equal(t, "49.9", product.Price.String())
	require.Len(t, product.Images, 2)
	assert.True(t, product.Images[0].IsPrimary)
	assert.False(t, product.Images[1].IsPrimary)
	assert.True(t, strings.HasPrefix(product.Images[0].URL, "products/"))

	first, second := product.Images[0].URL, product.Images[1].URL
	_, err := os.Stat(filepath.Join(env.uploads.Root(), filepath.FromSlash(first)))
	require.NoError(t, err)

	// keep only the second image, which becomes primary
	rr = env.request(t, http.MethodPatch, "/api/private/product/"+product.ID, env.adminToken, map[string]any{
		"keptImageUrls": []string{second},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[catalog.Product](t, rr)
	require.Len(t, updated.Images, 1)
	assert.Equal(t, second, updated.Images[0].URL)
	assert.True(t, updated.Images[0].IsPrimary)
	assert.Equal(t, 0, updated.Images[0].Position)

	due, err := env.app.store.Cleanup.Due(ctx, 10, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, first, due[0].Path)

	assert.Equal(t, 1, env.app.sweepPendingDeletions(ctx))
	_, err = os.Stat(filepath.Join(env.uploads.Root(), filepath.FromSlash(first)))
	assert.True(t, os.IsNotExist(err))

	// deleting the product queues the remaining photo
	rr = env.request(t, http.MethodDelete, "/api/private/product/"+product.ID, env.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	due, err = env.app.store.Cleanup.Due(ctx, 10, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, second, due[0].Path)

	rr = env.request(t, http.MethodGet, "/api/private/product/"+product.ID, env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestProductRejectsNonImageUpload(t *testing.T) {
	env := newTestEnv(t)

	rr := env.multipartRequest(t, http.MethodPost, "/api/private/product", env.adminToken,
		map[string]string{"title": "Anel", "price": "10"},
		formFile{field: "files", name: "notes.txt", data: []byte("just some text, not an image")},
	)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, unsupportedImageMessage, errorMessage(t, rr))
}

func TestBrandLogoReplacementQueuesOldFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rr := env.multipartRequest(t, http.MethodPost, "/api/private/brand", env.adminToken,
		map[string]string{"name": "Acme"},
		formFile{field: "logo", name: "logo.png", data: pngBytes},
	)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	brand := decode[catalog.Brand](t, rr)
	require.NotNil(t, brand.LogoURL)
	oldLogo := *brand.LogoURL
	assert.True(t, strings.HasPrefix(oldLogo, "brands/"))

	rr = env.multipartRequest(t, http.MethodPatch, "/api/private/brand/"+brand.ID, env.adminToken,
		nil,
		formFile{field: "logo", name: "novo.png", data: pngBytes},
	)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[catalog.Brand](t, rr)
	require.NotNil(t, updated.LogoURL)
	assert.NotEqual(t, oldLogo, *updated.LogoURL)
	assert.Equal(t, "Acme", updated.Name)

	due, err := env.app.store.Cleanup.Due(ctx, 10, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, oldLogo, due[0].Path)
}

func TestImagePathsComeOnlyFromUploads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rr := env.multipartRequest(t, http.MethodPost, "/api/private/banner", env.adminToken,
		map[string]string{"title": "Inverno"},
		formFile{field: "imageDesktop", name: "inverno.png", data: pngBytes},
	)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	first := decode[banners.Banner](t, rr)
	require.NotNil(t, first.ImageDesktop)
	owned := *first.ImageDesktop
	ownedFile := filepath.Join(env.uploads.Root(), filepath.FromSlash(owned))

	// another row cannot point at a stored file it did not upload
	rr = env.request(t, http.MethodPost, "/api/private/banner", env.adminToken, map[string]any{
		"title": "Verão", "imageDesktop": owned,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, imageNotUploadedMessage, errorMessage(t, rr))

	rr = env.request(t, http.MethodPost, "/api/private/category", env.adminToken, map[string]any{
		"name": "Colares", "imageUrl": owned,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, imageNotUploadedMessage, errorMessage(t, rr))

	rr = env.request(t, http.MethodPost, "/api/private/banner", env.adminToken, map[string]any{"title": "Verão"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	second := decode[banners.Banner](t, rr)

	rr = env.request(t, http.MethodPatch, "/api/private/banner/"+second.ID, env.adminToken, map[string]any{"imageDesktop": owned})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, imageNotUploadedMessage, errorMessage(t, rr))

	rr = env.request(t, http.MethodDelete, "/api/private/banner/"+second.ID, env.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	env.app.sweepPendingDeletions(ctx)
	_, err := os.Stat(ownedFile)
	require.NoError(t, err, "file of the first banner must survive")

	// repeating the current path is a no-op
	rr = env.request(t, http.MethodPatch, "/api/private/banner/"+first.ID, env.adminToken, map[string]any{
		"title": "Inverno 2026", "imageDesktop": owned,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[banners.Banner](t, rr)
	require.NotNil(t, updated.ImageDesktop)
	assert.Equal(t, owned, *updated.ImageDesktop)
	due, err := env.app.store.Cleanup.Due(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, due)

	// an empty value clears the image and queues the file
	rr = env.request(t, http.MethodPatch, "/api/private/banner/"+first.ID, env.adminToken, map[string]any{"imageDesktop": ""})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Nil(t, decode[banners.Banner](t, rr).ImageDesktop)
	due, err = env.app.store.Cleanup.Due(ctx, 10, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, owned, due[0].Path)
}
