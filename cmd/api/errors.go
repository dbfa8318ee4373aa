package main

import (
	"net/http"
)

const internalErrorMessage = "Erro interno do servidor"

// ErrorResponse is the body of every failed request.
//
//	@name			ErrorResponse
//	@description	Human readable message, safe to show to the user
type ErrorResponse struct {
	Error string `json:"error" example:"Já existe uma marca com este nome"`
}

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, internalErrorMessage)
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", message)

	writeJSONError(w, http.StatusBadRequest, message)
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.logger.Warnw("not found", "method", r.Method, "path", r.URL.Path, "error", message)

	writeJSONError(w, http.StatusNotFound, message)
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.logger.Warnw("conflict", "method", r.Method, "path", r.URL.Path, "error", message)

	writeJSONError(w, http.StatusConflict, message)
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusUnauthorized, "Não autorizado")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSONError(w, http.StatusUnauthorized, "Não autorizado")
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	app.logger.Warnw("forbidden", "method", r.Method, "path", r.URL.Path)

	writeJSONError(w, http.StatusForbidden, "Acesso negado")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter string) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Retry-After", retryAfter)

	writeJSONError(w, http.StatusTooManyRequests, "Muitas requisições, tente novamente em "+retryAfter+"s")
}

func (app *application) serviceUnavailableResponse(w http.ResponseWriter, r *http.Request, message string) {
	writeJSONError(w, http.StatusServiceUnavailable, message)
}
