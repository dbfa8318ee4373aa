package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vitrine/internal/domain/crud"
	"vitrine/internal/domain/team"
)

const (
	memberExistsMessage   = "Já existe um membro com este e-mail"
	memberNotFoundMessage = "Membro não encontrado"
)

type CreateTeamMemberPayload struct {
	Name     string    `json:"name" validate:"required,max=120"`
	LastName string    `json:"lastName" validate:"max=120"`
	Email    string    `json:"email" validate:"required,email,max=255"`
	Password string    `json:"password" validate:"required,min=6,max=72"`
	Role     team.Role `json:"role" validate:"required,oneof=ADMIN COLLABORATOR"`
	IsActive *bool     `json:"isActive"`
}

type UpdateTeamMemberPayload struct {
	Name     *string    `json:"name" validate:"omitnil,min=1,max=120"`
	LastName *string    `json:"lastName" validate:"omitnil,max=120"`
	Email    *string    `json:"email" validate:"omitnil,email,max=255"`
	Password *string    `json:"password" validate:"omitnil,min=6,max=72"`
	Role     *team.Role `json:"role" validate:"omitnil,oneof=ADMIN COLLABORATOR"`
	IsActive *bool      `json:"isActive"`
}

// listTeamHandler godoc
//
//	@Summary		List team members
//	@Description	Search matches name, last name and e-mail. Password hashes are never returned.
//	@Tags			team
//	@Produce		json
//	@Param			page	query		int		false	"Page (default 1)"
//	@Param			limit	query		int		false	"Page size (default 10, max 100)"
//	@Param			search	query		string	false	"Search term"
//	@Success		200		{object}	crud.Page[team.Member]
//	@Security		ApiKeyAuth
//	@Router			/private/team [get]
func (app *application) listTeamHandler(w http.ResponseWriter, r *http.Request) {
	listResource(app, w, r, app.store.Team.Members())
}

func (app *application) getTeamMemberHandler(w http.ResponseWriter, r *http.Request) {
	getResource(app, w, r, app.store.Team.Members(), memberNotFoundMessage)
}

// createTeamMemberHandler godoc
//
//	@Summary		Create a team member
//	@Description	ADMIN only. E-mails are unique (case-insensitive).
//	@Tags			team
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateTeamMemberPayload	true	"Member"
//	@Success		201		{object}	team.Member
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/team [post]
func (app *application) createTeamMemberHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateTeamMemberPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, invalidBodyMessage)
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.LastName = strings.TrimSpace(payload.LastName)
	payload.Email = team.NormalizeEmail(payload.Email)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationMessage(err))
		return
	}

	ctx := r.Context()

	taken, err := app.store.Team.EmailTaken(ctx, payload.Email, "")
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if taken {
		app.badRequestResponse(w, r, memberExistsMessage)
		return
	}

	member := &team.Member{
		Name:     payload.Name,
		LastName: payload.LastName,
		Email:    payload.Email,
		Role:     payload.Role,
		IsActive: boolOr(payload.IsActive, true),
	}
	if err := member.SetPassword(payload.Password); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if err := app.store.Team.Members().Create(ctx, member); err != nil {
		if errors.Is(err, crud.ErrDuplicate) {
			app.conflictResponse(w, r, memberExistsMessage)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.notifyNewTeamMember(member)

	if err := writeJSON(w, http.StatusCreated, member); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateTeamMemberHandler godoc
//
//	@Summary		Update a team member
//	@Description	ADMIN only. A password is re-hashed only when sent.
//	@Tags			team
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Member ID"
//	@Param			payload	body		UpdateTeamMemberPayload	true	"Fields to change"
//	@Success		200		{object}	team.Member
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/team/{id} [patch]
func (app *application) updateTeamMemberHandler(w http.ResponseWriter, r *http.Request) {
	var payload UpdateTeamMemberPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, invalidBodyMessage)
		return
	}
	payload.Name = trimPtr(payload.Name)
	payload.LastName = trimPtr(payload.LastName)
	if payload.Email != nil {
		email := team.NormalizeEmail(*payload.Email)
		payload.Email = &email
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationMessage(err))
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")
	members := app.store.Team.Members()

	current, err := members.Get(ctx, id)
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			app.notFoundResponse(w, r, memberNotFoundMessage)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	fields := map[string]any{}
	if payload.Email != nil && *payload.Email != current.Email {
		taken, err := app.store.Team.EmailTaken(ctx, *payload.Email, id)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if taken {
			app.badRequestResponse(w, r, memberExistsMessage)
			return
		}
		fields["email"] = *payload.Email
	}
	if payload.Name != nil {
		fields["name"] = *payload.Name
	}
	if payload.LastName != nil {
		fields["last_name"] = *payload.LastName
	}
	if payload.Role != nil {
		fields["role"] = *payload.Role
	}
	if payload.IsActive != nil {
		fields["is_active"] = *payload.IsActive
	}
	if payload.Password != nil {
		hash, err := team.HashPassword(*payload.Password)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		fields["password"] = hash
	}

	updated, err := members.Update(ctx, id, fields)
	if err != nil {
		switch {
		case errors.Is(err, crud.ErrDuplicate):
			app.conflictResponse(w, r, memberExistsMessage)
		case errors.Is(err, crud.ErrNotFound):
			app.notFoundResponse(w, r, memberNotFoundMessage)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := writeJSON(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteTeamMemberHandler godoc
//
//	@Summary		Delete a team member
//	@Description	ADMIN only. Members cannot delete their own account.
//	@Tags			team
//	@Produce		json
//	@Param			id	path		string	true	"Member ID"
//	@Success		200	{object}	messageResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/private/team/{id} [delete]
func (app *application) deleteTeamMemberHandler(w http.ResponseWriter, r *http.Request) {
	if session := getSessionFromContext(r); session != nil && session.ID == chi.URLParam(r, "id") {
		app.badRequestResponse(w, r, "Você não pode excluir a própria conta")
		return
	}
	deleteResource(app, w, r, app.store.Team.Members(), memberNotFoundMessage, "Membro excluído com sucesso")
}
