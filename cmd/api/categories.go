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
	categoryExistsMessage   = "Já existe uma categoria com este nome"
	categoryNotFoundMessage = "Categoria não encontrada"
)

type CreateCategoryPayload struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description string  `json:"description" validate:"max=2000"`
	ImageURL    *string `json:"imageUrl" validate:"omitnil,max=512"`
	IsActive    *bool   `json:"isActive"`
	IsHome      *bool   `json:"isHome"`
}

type UpdateCategoryPayload struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=120"`
	Description *string `json:"description" validate:"omitnil,max=2000"`
	ImageURL    *string `json:"imageUrl" validate:"omitnil,max=512"`
	IsActive    *bool   `json:"isActive"`
	IsHome      *bool   `json:"isHome"`
}

func (app *application) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	listResource(app, w, r, app.store.Catalog.Categories())
}

func (app *application) getCategoryHandler(w http.ResponseWriter, r *http.Request) {
	getResource(app, w, r, app.store.Catalog.Categories(), categoryNotFoundMessage)
}

// createCategoryHandler godoc
//
//	@Summary		Create a category
//	@Description	JSON or multipart; an "image" file replaces imageUrl. Names are unique.
//	@Tags			categories
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			payload	body		CreateCategoryPayload	true	"Category"
//	@Success		201		{object}	catalog.Category
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/category [post]
func (app *application) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	defer releaseForm(r)

	var payload CreateCategoryPayload
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
	categories := app.store.Catalog.Categories()

	taken, err := categories.Exists(ctx, "name", payload.Name, "")
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if taken {
		app.badRequestResponse(w, r, categoryExistsMessage)
		return
	}

	image, err := app.createImage(ctx, r, "image", upload.FolderCategories, payload.ImageURL)
	if err != nil {
		app.uploadErrorResponse(w, r, err)
		return
	}

	category := &catalog.Category{
		Name:        payload.Name,
		Description: strings.TrimSpace(payload.Description),
		ImageURL:    image,
		IsActive:    boolOr(payload.IsActive, true),
		IsHome:      boolOr(payload.IsHome, false),
	}
	if err := categories.Create(ctx, category); err != nil {
		if image != nil {
			app.discardUploads(*image)
		}
		if errors.Is(err, crud.ErrDuplicate) {
			app.conflictResponse(w, r, categoryExistsMessage)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.cache.Invalidate(cache.TagCategories)

	if err := writeJSON(w, http.StatusCreated, category); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateCategoryHandler godoc
//
//	@Summary		Update a category
//	@Description	Partial update: fields absent from the body are left unchanged.
//	@Tags			categories
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			id		path		string					true	"Category ID"
//	@Param			payload	body		UpdateCategoryPayload	true	"Fields to change"
//	@Success		200		{object}	catalog.Category
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/category/{id} [patch]
func (app *application) updateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	defer releaseForm(r)

	var payload UpdateCategoryPayload
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
	categories := app.store.Catalog.Categories()

	current, err := categories.Get(ctx, id)
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			app.notFoundResponse(w, r, categoryNotFoundMessage)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	fields := map[string]any{}
	if payload.Name != nil && *payload.Name != current.Name {
		taken, err := categories.Exists(ctx, "name", *payload.Name, id)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if taken {
			app.badRequestResponse(w, r, categoryExistsMessage)
			return
		}
		fields["name"] = *payload.Name
	}
	if payload.Description != nil {
		fields["description"] = strings.TrimSpace(*payload.Description)
	}
	if payload.IsActive != nil {
		fields["is_active"] = *payload.IsActive
	}
	if payload.IsHome != nil {
		fields["is_home"] = *payload.IsHome
	}

	image, err := app.imageUpdate(ctx, r, "image", upload.FolderCategories, payload.ImageURL, current.ImageURL)
	if err != nil {
		app.uploadErrorResponse(w, r, err)
		return
	}
	image.apply(fields, "image_url")

	var updated *catalog.Category
	err = app.store.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		if updated, err = tx.Catalog.Categories().Update(ctx, id, fields); err != nil {
			return err
		}
		return tx.Cleanup.Enqueue(ctx, image.replaced()...)
	})
	if err != nil {
		app.discardUploads(image.saved)
		switch {
		case errors.Is(err, crud.ErrDuplicate):
			app.conflictResponse(w, r, categoryExistsMessage)
		case errors.Is(err, crud.ErrNotFound):
			app.notFoundResponse(w, r, categoryNotFoundMessage)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.kickCleanup()
	app.cache.Invalidate(cache.TagCategories, cache.TagProducts)

	if err := writeJSON(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteCategoryHandler godoc
//
//	@Summary		Delete a category
//	@Description	Rejected while products are linked to the category.
//	@Tags			categories
//	@Produce		json
//	@Param			id	path		string	true	"Category ID"
//	@Success		200	{object}	messageResponse
//	@Failure		400	{object}	ErrorResponse	"Category has linked products"
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/category/{id} [delete]
func (app *application) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	err := app.store.WithTx(ctx, func(tx *storage.Tx) error {
		category, err := tx.Catalog.DeleteCategory(ctx, id)
		if err != nil {
			return err
		}
		if category.ImageURL != nil {
			return tx.Cleanup.Enqueue(ctx, *category.ImageURL)
		}
		return nil
	})
	if err != nil {
		var inUse *catalog.InUseError
		switch {
		case errors.As(err, &inUse):
			app.badRequestResponse(w, r, fmt.Sprintf("Não é possível excluir a categoria: existem %d produto(s) vinculado(s)", inUse.Count))
		case errors.Is(err, catalog.ErrCategoryNotFound):
			app.notFoundResponse(w, r, categoryNotFoundMessage)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.kickCleanup()
	app.cache.Invalidate(cache.TagCategories)

	if err := writeJSON(w, http.StatusOK, messageResponse{Message: "Categoria excluída com sucesso"}); err != nil {
		app.internalServerError(w, r, err)
	}
}
