package main

import (
	"errors"
	"net/http"
	"time"

	"vitrine/internal/auth"
	"vitrine/internal/domain/team"
)

type LoginPayload struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      auth.Session `json:"user"`
}

func (app *application) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   app.config.env == "production",
		SameSite: http.SameSiteLaxMode,
	})
}

// loginHandler godoc
//
//	@Summary		Sign in to the back-office
//	@Description	Checks the credentials of an active team member and issues a session token.
//	@Description	The token is also set as the HttpOnly "session_token" cookie.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		LoginPayload	true	"Credentials"
//	@Success		200		{object}	LoginResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Router			/auth/login [post]
func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, invalidBodyMessage)
		return
	}
	payload.Email = team.NormalizeEmail(payload.Email)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationMessage(err))
		return
	}

	member, err := app.store.Team.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, team.ErrInvalidCredentials) {
			app.logger.Warnw("login failed", "email", payload.Email)
			writeJSONError(w, http.StatusUnauthorized, "Credenciais inválidas")
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	session := auth.Session{
		ID:    member.ID,
		Name:  member.FullName(),
		Email: member.Email,
		Role:  string(member.Role),
	}
	token, expiresAt, err := app.authenticator.GenerateToken(session)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.setSessionCookie(w, token, expiresAt)

	if err := writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt, User: session}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// logoutHandler godoc
//
//	@Summary	Sign out
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	messageResponse
//	@Router		/auth/logout [post]
func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   app.config.env == "production",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	if err := writeJSON(w, http.StatusOK, messageResponse{Message: "Sessão encerrada"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// sessionHandler godoc
//
//	@Summary	Current session
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	auth.Session
//	@Failure	401	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/auth/session [get]
func (app *application) sessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, getSessionFromContext(r)); err != nil {
		app.internalServerError(w, r, err)
	}
}
