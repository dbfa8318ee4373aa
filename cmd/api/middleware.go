package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"vitrine/internal/auth"
	"vitrine/internal/domain/crud"
	"vitrine/internal/domain/settings"
	"vitrine/internal/domain/team"
)

type sessionKey string

const sessionCtx sessionKey = "session"

const sessionCookie = "session_token"

func (app *application) BasicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// read the auth header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
				return
			}

			// parse it -> get the base64
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Basic" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
				return
			}

			// decode it
			decoded, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				app.unauthorizedBasicErrorResponse(w, r, err)
				return
			}

			// check the credentials
			username := app.config.auth.basic.user
			pass := app.config.auth.basic.pass

			creds := strings.SplitN(string(decoded), ":", 2)
			if username == "" || len(creds) != 2 || creds[0] != username || creds[1] != pass {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("invalid credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// sessionToken reads the session cookie, falling back to a Bearer header.
func sessionToken(r *http.Request) (string, error) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("session token is missing")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("authorization header is malformed")
	}
	return parts[1], nil
}

func (app *application) AuthTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := sessionToken(r)
		if err != nil {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}

		claims, err := app.authenticator.ValidateToken(token)
		if err != nil {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}

		ctx := r.Context()

		// the account may have been disabled or demoted since the token was issued
		member, err := app.store.Team.Members().Get(ctx, claims.Subject)
		if err != nil {
			if !errors.Is(err, crud.ErrNotFound) {
				app.internalServerError(w, r, err)
				return
			}
			app.unauthorizedErrorResponse(w, r, err)
			return
		}
		if !member.IsActive {
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("member %s is inactive", member.ID))
			return
		}

		session := &auth.Session{
			ID:    member.ID,
			Name:  member.FullName(),
			Email: member.Email,
			Role:  string(member.Role),
		}
		ctx = context.WithValue(ctx, sessionCtx, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getSessionFromContext(r *http.Request) *auth.Session {
	if s, ok := r.Context().Value(sessionCtx).(*auth.Session); ok {
		return s
	}
	return nil
}

// RequireAdmin lets only ADMIN members through. Must run after AuthTokenMiddleware.
func (app *application) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := getSessionFromContext(r)
		if session == nil || team.Role(session.Role) != team.RoleAdmin {
			app.forbiddenResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allow, retryAfter := app.rateLimiter.Allow(r.RemoteAddr); !allow {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			app.rateLimitExceededResponse(w, r, strconv.Itoa(seconds))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MaintenanceMiddleware answers 503 with the configured message while the
// store is in maintenance mode.
func (app *application) MaintenanceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg, err := app.loadSettings(r.Context())
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if cfg.MaintenanceMode {
			msg := cfg.MaintenanceMessage
			if msg == "" {
				msg = settings.DefaultMaintenanceMessage
			}
			app.serviceUnavailableResponse(w, r, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}
