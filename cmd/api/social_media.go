package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vitrine/internal/cache"
	"vitrine/internal/domain/crud"
	"vitrine/internal/domain/settings"
)

const socialMediaNotFoundMessage = "Rede social não encontrada"

type CreateSocialMediaPayload struct {
	Platform string `json:"platform" validate:"required,max=60"`
	URL      string `json:"url" validate:"required,url,max=512"`
	IsActive *bool  `json:"isActive"`
}

type UpdateSocialMediaPayload struct {
	Platform *string `json:"platform" validate:"omitnil,min=1,max=60"`
	URL      *string `json:"url" validate:"omitnil,url,max=512"`
	IsActive *bool   `json:"isActive"`
}

func (app *application) listSocialMediaHandler(w http.ResponseWriter, r *http.Request) {
	listResource(app, w, r, app.store.Settings.SocialMedia())
}

func (app *application) getSocialMediaHandler(w http.ResponseWriter, r *http.Request) {
	getResource(app, w, r, app.store.Settings.SocialMedia(), socialMediaNotFoundMessage)
}

// createSocialMediaHandler godoc
//
//	@Summary		Add a social media link
//	@Description	Links are attached to the store configuration.
//	@Tags			social-media
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateSocialMediaPayload	true	"Link"
//	@Success		201		{object}	settings.SocialMedia
//	@Failure		400		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/social-media [post]
func (app *application) createSocialMediaHandler(w http.ResponseWriter, r *http.Request) {
	defer releaseForm(r)

	var payload CreateSocialMediaPayload
	if err := readPayload(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, invalidBodyMessage)
		return
	}
	payload.Platform = strings.TrimSpace(payload.Platform)
	payload.URL = strings.TrimSpace(payload.URL)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationMessage(err))
		return
	}

	ctx := r.Context()

	cfg, err := app.store.Settings.GetOrCreate(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	link := &settings.SocialMedia{
		Platform:             payload.Platform,
		URL:                  payload.URL,
		IsActive:             boolOr(payload.IsActive, true),
		StoreConfigurationID: cfg.ID,
	}
	if err := app.store.Settings.SocialMedia().Create(ctx, link); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.cache.Invalidate(cache.TagSettings)

	if err := writeJSON(w, http.StatusCreated, link); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) updateSocialMediaHandler(w http.ResponseWriter, r *http.Request) {
	defer releaseForm(r)

	var payload UpdateSocialMediaPayload
	if err := readPayload(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, invalidBodyMessage)
		return
	}
	payload.Platform = trimPtr(payload.Platform)
	payload.URL = trimPtr(payload.URL)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationMessage(err))
		return
	}

	fields := map[string]any{}
	if payload.Platform != nil {
		fields["platform"] = *payload.Platform
	}
	if payload.URL != nil {
		fields["url"] = *payload.URL
	}
	if payload.IsActive != nil {
		fields["is_active"] = *payload.IsActive
	}

	updated, err := app.store.Settings.SocialMedia().Update(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			app.notFoundResponse(w, r, socialMediaNotFoundMessage)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.cache.Invalidate(cache.TagSettings)

	if err := writeJSON(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) deleteSocialMediaHandler(w http.ResponseWriter, r *http.Request) {
	if deleteResource(app, w, r, app.store.Settings.SocialMedia(), socialMediaNotFoundMessage, "Rede social excluída com sucesso") {
		app.cache.Invalidate(cache.TagSettings)
	}
}
