package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vitrine/internal/cache"
	"vitrine/internal/domain/catalog"
	"vitrine/internal/domain/crud"
	"vitrine/internal/domain/storage"
	"vitrine/internal/upload"
)

const (
	brandExistsMessage   = "Já existe uma marca com este nome"
	brandNotFoundMessage = "Marca não encontrada"
)

type CreateBrandPayload struct {
	Name     string  `json:"name" validate:"required,max=120"`
	LogoURL  *string `json:"logoUrl" validate:"omitnil,max=512"`
	IsActive *bool   `json:"isActive"`
}

type UpdateBrandPayload struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=120"`
	LogoURL  *string `json:"logoUrl" validate:"omitnil,max=512"`
	IsActive *bool   `json:"isActive"`
}

// listBrandsHandler godoc
//
//	@Summary		List brands
//	@Description	Paginated brand listing; search matches the name.
//	@Tags			brands
//	@Produce		json
//	@Param			page	query		int		false	"Page (default 1)"
//	@Param			limit	query		int		false	"Page size (default 10, max 100)"
//	@Param			search	query		string	false	"Substring of the name"
//	@Success		200		{object}	crud.Page[catalog.Brand]
//	@Failure		401		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/brand [get]
func (app *application) listBrandsHandler(w http.ResponseWriter, r *http.Request) {
	listResource(app, w, r, app.store.Catalog.Brands())
}

func (app *application) getBrandHandler(w http.ResponseWriter, r *http.Request) {
	getResource(app, w, r, app.store.Catalog.Brands(), brandNotFoundMessage)
}

// createBrandHandler godoc
//
//	@Summary		Create a brand
//	@Description	JSON or multipart; a "logo" file replaces logoUrl. Names are unique.
//	@Tags			brands
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			payload	body		CreateBrandPayload	true	"Brand"
//	@Success		201		{object}	catalog.Brand
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/brand [post]
func (app *application) createBrandHandler(w http.ResponseWriter, r *http.Request) {
	defer releaseForm(r)

	var payload CreateBrandPayload
	if err := readPayload(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, invalidBodyMessage)
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationMessage(err))
		return
	}

	ctx := r.Context()
	brands := app.store.Catalog.Brands()

	taken, err := brands.Exists(ctx, "name", payload.Name, "")
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if taken {
		app.badRequestResponse(w, r, brandExistsMessage)
		return
	}

	logo, err := app.createImage(ctx, r, "logo", upload.FolderBrands, payload.LogoURL)
	if err != nil {
		app.uploadErrorResponse(w, r, err)
		return
	}

	brand := &catalog.Brand{
		Name:     payload.Name,
		LogoURL:  logo,
		IsActive: boolOr(payload.IsActive, true),
	}
	if err := brands.Create(ctx, brand); err != nil {
		if logo != nil {
			app.discardUploads(*logo)
		}
		if errors.Is(err, crud.ErrDuplicate) {
			app.conflictResponse(w, r, brandExistsMessage)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.cache.Invalidate(cache.TagProducts)

	if err := writeJSON(w, http.StatusCreated, brand); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateBrandHandler godoc
//
//	@Summary		Update a brand
//	@Description	Partial update. A new logo is stored before the old one is queued for deletion.
//	@Tags			brands
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			id		path		string				true	"Brand ID"
//	@Param			payload	body		UpdateBrandPayload	true	"Fields to change"
//	@Success		200		{object}	catalog.Brand
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/brand/{id} [patch]
func (app *application) updateBrandHandler(w http.ResponseWriter, r *http.Request) {
	defer releaseForm(r)

	var payload UpdateBrandPayload
	if err := readPayload(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, invalidBodyMessage)
		return
	}
	payload.Name = trimPtr(payload.Name)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationMessage(err))
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")
	brands := app.store.Catalog.Brands()

	current, err := brands.Get(ctx, id)
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			app.notFoundResponse(w, r, brandNotFoundMessage)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	fields := map[string]any{}
	if payload.Name != nil && *payload.Name != current.Name {
		taken, err := brands.Exists(ctx, "name", *payload.Name, id)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if taken {
			app.badRequestResponse(w, r, brandExistsMessage)
			return
		}
		fields["name"] = *payload.Name
	}
	if payload.IsActive != nil {
		fields["is_active"] = *payload.IsActive
	}

	logo, err := app.imageUpdate(ctx, r, "logo", upload.FolderBrands, payload.LogoURL, current.LogoURL)
	if err != nil {
		app.uploadErrorResponse(w, r, err)
		return
	}
	logo.apply(fields, "logo_url")

	var updated *catalog.Brand
	err = app.store.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		if updated, err = tx.Catalog.Brands().Update(ctx, id, fields); err != nil {
			return err
		}
		return tx.Cleanup.Enqueue(ctx, logo.replaced()...)
	})
	if err != nil {
		app.discardUploads(logo.saved)
		switch {
		case errors.Is(err, crud.ErrDuplicate):
			app.conflictResponse(w, r, brandExistsMessage)
		case errors.Is(err, crud.ErrNotFound):
			app.notFoundResponse(w, r, brandNotFoundMessage)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.kickCleanup()
	app.cache.Invalidate(cache.TagProducts)

	if err := writeJSON(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteBrandHandler godoc
//
//	@Summary		Delete a brand
//	@Description	Rejected while products reference the brand.
//	@Tags			brands
//	@Produce		json
//	@Param			id	path		string	true	"Brand ID"
//	@Success		200	{object}	messageResponse
//	@Failure		400	{object}	ErrorResponse	"Brand has linked products"
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/brand/{id} [delete]
func (app *application) deleteBrandHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	err := app.store.WithTx(ctx, func(tx *storage.Tx) error {
		brand, err := tx.Catalog.DeleteBrand(ctx, id)
		if err != nil {
			return err
		}
		if brand.LogoURL != nil {
			return tx.Cleanup.Enqueue(ctx, *brand.LogoURL)
		}
		return nil
	})
	if err != nil {
		var inUse *catalog.InUseError
		switch {
		case errors.As(err, &inUse):
			app.badRequestResponse(w, r, fmt.Sprintf("Não é possível excluir a marca: existem %d produto(s) vinculado(s)", inUse.Count))
		case errors.Is(err, catalog.ErrBrandNotFound):
			app.notFoundResponse(w, r, brandNotFoundMessage)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.kickCleanup()
	app.cache.Invalidate(cache.TagProducts)

	if err := writeJSON(w, http.StatusOK, messageResponse{Message: "Marca excluída com sucesso"}); err != nil {
		app.internalServerError(w, r, err)
	}
}
