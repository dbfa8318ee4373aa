package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vitrine/internal/cache"
	"vitrine/internal/domain/banners"
	"vitrine/internal/domain/crud"
	"vitrine/internal/domain/storage"
	"vitrine/internal/upload"
)

const bannerNotFoundMessage = "Banner não encontrado"

type CreateBannerPayload struct {
	Title             string  `json:"title" validate:"required,max=255"`
	Subtitle          string  `json:"subtitle" validate:"max=255"`
	LinkURL           *string `json:"linkUrl" validate:"omitnil,max=512"`
	ResolutionDesktop string  `json:"resolutionDesktop" validate:"max=32"`
	ResolutionMobile  string  `json:"resolutionMobile" validate:"max=32"`
	ImageDesktop      *string `json:"imageDesktop" validate:"omitnil,max=512"`
	ImageMobile       *string `json:"imageMobile" validate:"omitnil,max=512"`
	IsActive          *bool   `json:"isActive"`
}

type UpdateBannerPayload struct {
	Title             *string `json:"title" validate:"omitnil,min=1,max=255"`
	Subtitle          *string `json:"subtitle" validate:"omitnil,max=255"`
	LinkURL           *string `json:"linkUrl" validate:"omitnil,max=512"`
	ResolutionDesktop *string `json:"resolutionDesktop" validate:"omitnil,max=32"`
	ResolutionMobile  *string `json:"resolutionMobile" validate:"omitnil,max=32"`
	ImageDesktop      *string `json:"imageDesktop" validate:"omitnil,max=512"`
	ImageMobile       *string `json:"imageMobile" validate:"omitnil,max=512"`
	IsActive          *bool   `json:"isActive"`
}

func (app *application) listBannersHandler(w http.ResponseWriter, r *http.Request) {
	listResource(app, w, r, app.store.Banners.Banners())
}

func (app *application) getBannerHandler(w http.ResponseWriter, r *http.Request) {
	getResource(app, w, r, app.store.Banners.Banners(), bannerNotFoundMessage)
}

// createBannerHandler godoc
//
//	@Summary		Create a banner
//	@Description	Multipart files "imageDesktop" and "imageMobile" are stored under banners/.
//	@Tags			banners
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			payload	body		CreateBannerPayload	true	"Banner"
//	@Success		201		{object}	banners.Banner
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/banner [post]
func (app *application) createBannerHandler(w http.ResponseWriter, r *http.Request) {
	defer releaseForm(r)

	var payload CreateBannerPayload
	if err := readPayload(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, invalidBodyMessage)
		return
	}
	payload.Title = strings.TrimSpace(payload.Title)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationMessage(err))
		return
	}

	ctx := r.Context()

	desktop, err := app.createImage(ctx, r, "imageDesktop", upload.FolderBanners, payload.ImageDesktop)
	if err != nil {
		app.uploadErrorResponse(w, r, err)
		return
	}
	mobile, err := app.createImage(ctx, r, "imageMobile", upload.FolderBanners, payload.ImageMobile)
	if err != nil {
		app.discardUploads(uploaded(desktop)...)
		app.uploadErrorResponse(w, r, err)
		return
	}

	banner := &banners.Banner{
		Title:             payload.Title,
		Subtitle:          strings.TrimSpace(payload.Subtitle),
		LinkURL:           blankToNil(payload.LinkURL),
		ResolutionDesktop: strings.TrimSpace(payload.ResolutionDesktop),
		ResolutionMobile:  strings.TrimSpace(payload.ResolutionMobile),
		ImageDesktop:      desktop,
		ImageMobile:       mobile,
		IsActive:          boolOr(payload.IsActive, true),
	}
	if err := app.store.Banners.Banners().Create(ctx, banner); err != nil {
		app.discardUploads(uploaded(desktop, mobile)...)
		app.internalServerError(w, r, err)
		return
	}

	app.cache.Invalidate(cache.TagBanners)

	if err := writeJSON(w, http.StatusCreated, banner); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) updateBannerHandler(w http.ResponseWriter, r *http.Request) {
	defer releaseForm(r)

	var payload UpdateBannerPayload
	if err := readPayload(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, invalidBodyMessage)
		return
	}
	payload.Title = trimPtr(payload.Title)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationMessage(err))
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")

	current, err := app.store.Banners.Banners().Get(ctx, id)
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			app.notFoundResponse(w, r, bannerNotFoundMessage)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	fields := map[string]any{}
	for column, v := range map[string]*string{
		"title":              payload.Title,
		"subtitle":           payload.Subtitle,
		"resolution_desktop": payload.ResolutionDesktop,
		"resolution_mobile":  payload.ResolutionMobile,
	} {
		if v != nil {
			fields[column] = strings.TrimSpace(*v)
		}
	}
	if payload.LinkURL != nil {
		fields["link_url"] = blankToNil(payload.LinkURL)
	}
	if payload.IsActive != nil {
		fields["is_active"] = *payload.IsActive
	}

	desktop, err := app.imageUpdate(ctx, r, "imageDesktop", upload.FolderBanners, payload.ImageDesktop, current.ImageDesktop)
	if err != nil {
		app.uploadErrorResponse(w, r, err)
		return
	}
	mobile, err := app.imageUpdate(ctx, r, "imageMobile", upload.FolderBanners, payload.ImageMobile, current.ImageMobile)
	if err != nil {
		app.discardUploads(desktop.saved)
		app.uploadErrorResponse(w, r, err)
		return
	}
	desktop.apply(fields, "image_desktop")
	mobile.apply(fields, "image_mobile")

	var updated *banners.Banner
	err = app.store.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		if updated, err = tx.Banners.Banners().Update(ctx, id, fields); err != nil {
			return err
		}
		return tx.Cleanup.Enqueue(ctx, append(desktop.replaced(), mobile.replaced()...)...)
	})
	if err != nil {
		app.discardUploads(desktop.saved, mobile.saved)
		if errors.Is(err, crud.ErrNotFound) {
			app.notFoundResponse(w, r, bannerNotFoundMessage)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.kickCleanup()
	app.cache.Invalidate(cache.TagBanners)

	if err := writeJSON(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteBannerHandler godoc
//
//	@Summary		Delete a banner
//	@Description	The stored artwork is queued for deletion with the row.
//	@Tags			banners
//	@Produce		json
//	@Param			id	path		string	true	"Banner ID"
//	@Success		200	{object}	messageResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/banner/{id} [delete]
func (app *application) deleteBannerHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	err := app.store.WithTx(ctx, func(tx *storage.Tx) error {
		banner, err := tx.Banners.Delete(ctx, id)
		if err != nil {
			return err
		}
		return tx.Cleanup.Enqueue(ctx, banner.Images()...)
	})
	if err != nil {
		if errors.Is(err, banners.ErrNotFound) {
			app.notFoundResponse(w, r, bannerNotFoundMessage)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.kickCleanup()
	app.cache.Invalidate(cache.TagBanners)

	if err := writeJSON(w, http.StatusOK, messageResponse{Message: "Banner excluído com sucesso"}); err != nil {
		app.internalServerError(w, r, err)
	}
}
