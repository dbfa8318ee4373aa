package main

import (
	"net/http"

	"vitrine/internal/cache"
)

type UpdateSettingsPayload struct {
	StoreName   *string `json:"storeName" validate:"omitnil,min=1,max=120"`
	CNPJ        *string `json:"cnpj" validate:"omitnil,cnpj"`
	Description *string `json:"description" validate:"omitnil,max=2000"`
	Email       *string `json:"email" validate:"omitnil,email,max=255"`
	Phone       *string `json:"phone" validate:"omitnil,max=32"`
	WhatsApp    *string `json:"whatsapp" validate:"omitnil,max=32"`

	Street       *string `json:"street" validate:"omitnil,max=255"`
	Number       *string `json:"number" validate:"omitnil,max=16"`
	Complement   *string `json:"complement" validate:"omitnil,max=120"`
	Neighborhood *string `json:"neighborhood" validate:"omitnil,max=120"`
	City         *string `json:"city" validate:"omitnil,max=120"`
	State        *string `json:"state" validate:"omitnil,max=2"`
	ZipCode      *string `json:"zipCode" validate:"omitnil,max=9"`

	SeoTitle       *string `json:"seoTitle" validate:"omitnil,max=120"`
	SeoDescription *string `json:"seoDescription" validate:"omitnil,max=320"`
	SeoKeywords    *string `json:"seoKeywords" validate:"omitnil,max=320"`

	MaintenanceMode    *bool   `json:"maintenanceMode"`
	MaintenanceMessage *string `json:"maintenanceMessage" validate:"omitnil,max=500"`

	NotifyNewOrders     *bool `json:"notifyNewOrders"`
	NotifyLowStock      *bool `json:"notifyLowStock"`
	NotifyNewTeamMember *bool `json:"notifyNewTeamMember"`
	LowStockThreshold   *int  `json:"lowStockThreshold" validate:"omitnil,gte=0"`
}

// columns maps every present field to its database column.
func (p UpdateSettingsPayload) columns() map[string]any {
	fields := map[string]any{}
	for _, f := range []struct {
		column string
		value  *string
	}{
		{"store_name", p.StoreName},
		{"cnpj", p.CNPJ},
		{"description", p.Description},
		{"email", p.Email},
		{"phone", p.Phone},
		{"whatsapp", p.WhatsApp},
		{"street", p.Street},
		{"number", p.Number},
		{"complement", p.Complement},
		{"neighborhood", p.Neighborhood},
		{"city", p.City},
		{"state", p.State},
		{"zip_code", p.ZipCode},
		{"seo_title", p.SeoTitle},
		{"seo_description", p.SeoDescription},
		{"seo_keywords", p.SeoKeywords},
		{"maintenance_message", p.MaintenanceMessage},
	} {
		if f.value != nil {
			fields[f.column] = *f.value
		}
	}
	for _, f := range []struct {
		column string
		value  *bool
	}{
		{"maintenance_mode", p.MaintenanceMode},
		{"notify_new_orders", p.NotifyNewOrders},
		{"notify_low_stock", p.NotifyLowStock},
		{"notify_new_team_member", p.NotifyNewTeamMember},
	} {
		if f.value != nil {
			fields[f.column] = *f.value
		}
	}
	if p.LowStockThreshold != nil {
		fields["low_stock_threshold"] = *p.LowStockThreshold
	}
	return fields
}

// getSettingsHandler godoc
//
//	@Summary		Store configuration
//	@Description	Returns the configuration, creating it with defaults on first access.
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	settings.StoreConfiguration
//	@Security		ApiKeyAuth
//	@Router			/private/settings [get]
func (app *application) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := app.store.Settings.GetOrCreate(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, cfg); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateSettingsHandler godoc
//
//	@Summary		Update the store configuration
//	@Description	ADMIN only. Partial update; the CNPJ check digits are validated.
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		UpdateSettingsPayload	true	"Fields to change"
//	@Success		200		{object}	settings.StoreConfiguration
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/settings [patch]
func (app *application) updateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var payload UpdateSettingsPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, invalidBodyMessage)
		return
	}
	payload.StoreName = trimPtr(payload.StoreName)
	payload.Email = trimPtr(payload.Email)
	payload.CNPJ = trimPtr(payload.CNPJ)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationMessage(err))
		return
	}

	cfg, err := app.store.Settings.Update(r.Context(), payload.columns())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.cache.Invalidate(cache.TagSettings)

	if err := writeJSON(w, http.StatusOK, cfg); err != nil {
		app.internalServerError(w, r, err)
	}
}
