package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"vitrine/internal/cache"
	"vitrine/internal/db"
	"vitrine/internal/domain/catalog"
	"vitrine/internal/domain/storage"
	"vitrine/internal/params"
	"vitrine/internal/upload"
)

const (
	productNotFoundMessage = "Produto não encontrado"
	invalidPriceMessage    = "Preço inválido"
)

// productImageFields are the multipart fields carrying new product photos.
var productImageFields = []string{"files", "files[]"}

// idField is an optional reference: absent, blank or null (cleared), or an id.
type idField struct {
	Set   bool
	Value string
}

func (f *idField) UnmarshalJSON(b []byte) error {
	f.Set = true
	if strings.TrimSpace(string(b)) == "null" {
		f.Value = ""
		return nil
	}
	if err := json.Unmarshal(b, &f.Value); err != nil {
		return err
	}
	f.Value = strings.TrimSpace(f.Value)
	return nil
}

func (f *idField) UnmarshalText(b []byte) error {
	f.Set = true
	f.Value = strings.TrimSpace(string(b))
	return nil
}

// ptr returns the id, an empty string when cleared, or nil when absent.
func (f idField) ptr() *string {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

// ProductPayload is shared by create and update. In multipart forms specs,
// variants, categoryIds and keptImageUrls are JSON encoded strings.
type ProductPayload struct {
	Title         *string                           `json:"title" validate:"omitnil,max=255"`
	Description   *string                           `json:"description" validate:"omitnil,max=5000"`
	Price         priceField                        `json:"price" swaggertype:"number"`
	DiscountPrice priceField                        `json:"discountPrice" swaggertype:"number"`
	Specs         jsonValue[map[string]any]         `json:"specs" swaggertype:"object"`
	IsActive      *bool                             `json:"isActive"`
	BrandID       idField                           `json:"brandId" swaggertype:"string"`
	CategoryIDs   jsonValue[[]string]               `json:"categoryIds" swaggertype:"array,string"`
	Variants      jsonValue[[]catalog.VariantInput] `json:"variants" swaggertype:"array,object"`
	KeptImageURLs jsonValue[[]string]               `json:"keptImageUrls" swaggertype:"array,string"`
}

// clearBlankFormFields treats a blank discountPrice or brandId form value as
// a request to clear it.
func (p *ProductPayload) clearBlankFormFields(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	blank := func(key string) bool {
		v, ok := r.MultipartForm.Value[key]
		return ok && (len(v) == 0 || strings.TrimSpace(v[len(v)-1]) == "")
	}
	if blank("discountPrice") {
		p.DiscountPrice = priceField{Set: true}
	}
	if blank("brandId") {
		p.BrandID = idField{Set: true}
	}
}

// patch converts the fields present in the payload.
func (p ProductPayload) patch() (catalog.ProductPatch, error) {
	patch := catalog.ProductPatch{
		Title:       p.Title,
		Description: p.Description,
		IsActive:    p.IsActive,
		BrandID:     p.BrandID.ptr(),
	}
	if p.Price.Set {
		if patch.Price = p.Price.ptr(); patch.Price == nil {
			return patch, catalog.ErrInvalidPrice
		}
	}
	if p.DiscountPrice.Set {
		d := p.DiscountPrice.Value
		patch.DiscountPrice = &d
	}
	if p.Specs.Set {
		specs := p.Specs.Value
		patch.Specs = &specs
	}
	if p.CategoryIDs.Set {
		ids := p.CategoryIDs.Value
		patch.CategoryIDs = &ids
	}
	if p.Variants.Set {
		variants := p.Variants.Value
		patch.Variants = &variants
	}
	if p.KeptImageURLs.Set {
		kept := p.KeptImageURLs.Value
		patch.KeptImageURLs = &kept
	}
	return patch, nil
}

// readProductPayload decodes and validates a product body, answering the
// request itself on failure.
func (app *application) readProductPayload(w http.ResponseWriter, r *http.Request) (*ProductPayload, bool) {
	var payload ProductPayload
	if err := readPayload(w, r, &payload); err != nil {
		if isInvalidPrice(err) {
			app.badRequestResponse(w, r, invalidPriceMessage)
			return nil, false
		}
		app.badRequestResponse(w, r, invalidBodyMessage)
		return nil, false
	}
	payload.clearBlankFormFields(r)
	payload.Title = trimPtr(payload.Title)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationMessage(err))
		return nil, false
	}
	return &payload, true
}

func isInvalidPrice(err error) bool {
	if errors.Is(err, errInvalidPrice) {
		return true
	}
	var multi schema.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			var conv schema.ConversionError
			if errors.As(e, &conv) && errors.Is(conv.Err, errInvalidPrice) {
				return true
			}
		}
	}
	return false
}

// productErrorResponse maps catalog errors to responses.
func (app *application) productErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrTitleRequired):
		app.badRequestResponse(w, r, "O título é obrigatório")
	case errors.Is(err, catalog.ErrInvalidPrice):
		app.badRequestResponse(w, r, invalidPriceMessage)
	case errors.Is(err, catalog.ErrInvalidDiscount):
		app.badRequestResponse(w, r, "O preço promocional deve ser menor que o preço")
	case errors.Is(err, catalog.ErrInvalidVariant):
		app.badRequestResponse(w, r, "A quantidade da variante não pode ser negativa")
	case errors.Is(err, catalog.ErrBrandNotFound):
		app.badRequestResponse(w, r, brandNotFoundMessage)
	case errors.Is(err, catalog.ErrCategoryNotFound):
		app.badRequestResponse(w, r, categoryNotFoundMessage)
	case errors.Is(err, catalog.ErrProductNotFound):
		app.notFoundResponse(w, r, productNotFoundMessage)
	case errors.Is(err, catalog.ErrSlugConflict), db.IsUniqueViolation(err):
		app.conflictResponse(w, r, "Já existe um produto com este título. Tente novamente")
	default:
		app.internalServerError(w, r, err)
	}
}

// listProductsHandler godoc
//
//	@Summary		List products
//	@Description	Back-office listing including inactive products.
//	@Tags			products
//	@Produce		json
//	@Param			page		query		int		false	"Page (default 1)"
//	@Param			limit		query		int		false	"Page size (default 10, max 100)"
//	@Param			search		query		string	false	"Matches title, description and slug"
//	@Param			category	query		string	false	"Category ID"
//	@Param			brand		query		string	false	"Brand ID"
//	@Success		200			{object}	crud.Page[catalog.Product]
//	@Security		ApiKeyAuth
//	@Router			/private/product [get]
func (app *application) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := app.store.Catalog.ListProducts(r.Context(), params.ParsePagination(q), catalog.ProductFilter{
		CategoryID: strings.TrimSpace(q.Get("category")),
		BrandID:    strings.TrimSpace(q.Get("brand")),
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, page); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) getProductHandler(w http.ResponseWriter, r *http.Request) {
	getResource(app, w, r, app.store.Catalog.Products(), productNotFoundMessage)
}

// createProductHandler godoc
//
//	@Summary		Create a product
//	@Description	Multipart (photos under "files") or JSON. The slug is derived from the title.
//	@Tags			products
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			payload	body		ProductPayload	true	"Product"
//	@Success		201		{object}	catalog.Product
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/product [post]
func (app *application) createProductHandler(w http.ResponseWriter, r *http.Request) {
	defer releaseForm(r)

	payload, ok := app.readProductPayload(w, r)
	if !ok {
		return
	}
	if payload.Title == nil || *payload.Title == "" {
		app.badRequestResponse(w, r, "O título é obrigatório")
		return
	}
	price := payload.Price.ptr()
	if price == nil {
		app.badRequestResponse(w, r, "O preço é obrigatório")
		return
	}

	ctx := r.Context()

	paths, err := app.saveFormImages(ctx, r, upload.FolderProducts, productImageFields...)
	if err != nil {
		app.uploadErrorResponse(w, r, err)
		return
	}

	draft := catalog.ProductDraft{
		Title:         *payload.Title,
		Price:         *price,
		DiscountPrice: payload.DiscountPrice.ptr(),
		Specs:         payload.Specs.Value,
		IsActive:      boolOr(payload.IsActive, true),
		BrandID:       payload.BrandID.ptr(),
		CategoryIDs:   payload.CategoryIDs.Value,
		Variants:      payload.Variants.Value,
		ImagePaths:    paths,
	}
	if payload.Description != nil {
		draft.Description = *payload.Description
	}

	product, err := app.store.Catalog.CreateProduct(ctx, draft)
	if err != nil {
		app.discardUploads(paths...)
		app.productErrorResponse(w, r, err)
		return
	}

	app.cache.Invalidate(cache.TagProducts, cache.TagCategories)
	app.notifyLowStock(product)

	if err := writeJSON(w, http.StatusCreated, product); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateProductHandler godoc
//
//	@Summary		Update a product
//	@Description	Partial update in one transaction. variants and categoryIds replace the
//	@Description	stored sets when present; keptImageUrls lists the images to keep, in order.
//	@Tags			products
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			id		path		string			true	"Product ID"
//	@Param			payload	body		ProductPayload	true	"Fields to change"
//	@Success		200		{object}	catalog.Product
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/product/{id} [patch]
func (app *application) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	defer releaseForm(r)

	payload, ok := app.readProductPayload(w, r)
	if !ok {
		return
	}
	patch, err := payload.patch()
	if err != nil {
		app.productErrorResponse(w, r, err)
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")

	paths, err := app.saveFormImages(ctx, r, upload.FolderProducts, productImageFields...)
	if err != nil {
		app.uploadErrorResponse(w, r, err)
		return
	}
	patch.NewImagePaths = paths

	var updated *catalog.Product
	err = app.store.WithTx(ctx, func(tx *storage.Tx) error {
		p, removed, err := tx.Catalog.UpdateProduct(ctx, id, patch)
		if err != nil {
			return err
		}
		updated = p
		return tx.Cleanup.Enqueue(ctx, removed...)
	})
	if err != nil {
		app.discardUploads(paths...)
		app.productErrorResponse(w, r, err)
		return
	}

	app.kickCleanup()
	app.cache.Invalidate(cache.TagProducts, cache.TagCategories)
	app.notifyLowStock(updated)

	if err := writeJSON(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteProductHandler godoc
//
//	@Summary		Delete a product
//	@Description	Removes variants, images and category links; photos are queued for deletion.
//	@Tags			products
//	@Produce		json
//	@Param			id	path		string	true	"Product ID"
//	@Success		200	{object}	messageResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/product/{id} [delete]
func (app *application) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	err := app.store.WithTx(ctx, func(tx *storage.Tx) error {
		paths, err := tx.Catalog.DeleteProduct(ctx, id)
		if err != nil {
			return err
		}
		return tx.Cleanup.Enqueue(ctx, paths...)
	})
	if err != nil {
		app.productErrorResponse(w, r, err)
		return
	}

	app.kickCleanup()
	app.cache.Invalidate(cache.TagProducts, cache.TagCategories)

	if err := writeJSON(w, http.StatusOK, messageResponse{Message: "Produto excluído com sucesso"}); err != nil {
		app.internalServerError(w, r, err)
	}
}
