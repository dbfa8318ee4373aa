package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/auth"
	"vitrine/internal/domain/banners"
	"vitrine/internal/domain/catalog"
	"vitrine/internal/domain/settings"
	"vitrine/internal/domain/team"
	"vitrine/internal/mailer"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "admin@loja.com", "password": "errada",
	})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Credenciais inválidas", errorMessage(t, rr))

	rr = env.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "  ADMIN@loja.com ", "password": "segredo123",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[LoginResponse](t, rr)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, env.adminID, resp.User.ID)
	assert.Equal(t, "ADMIN", resp.User.Role)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, resp.Token, cookie.Value)

	rr = env.request(t, http.MethodGet, "/api/auth/session", resp.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "admin@loja.com", decode[auth.Session](t, rr).Email)

	rr = env.request(t, http.MethodGet, "/api/auth/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginRejectsInactiveMember(t *testing.T) {
	env := newTestEnv(t)

	m := env.createMember(t, "ana@loja.com", "segredo123", team.RoleCollaborator)
	token := env.tokenFor(t, m)

	rr := env.request(t, http.MethodPatch, "/api/private/team/"+m.ID, env.adminToken, map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "ana@loja.com", "password": "segredo123",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// tokens issued before the change stop working too
	rr = env.request(t, http.MethodGet, "/api/private/brand", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTeamAdminOnlyMutations(t *testing.T) {
	env := newTestEnv(t)

	collaborator := env.createMember(t, "ana@loja.com", "segredo123", team.RoleCollaborator)
	token := env.tokenFor(t, collaborator)

	rr := env.request(t, http.MethodGet, "/api/private/team", token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.request(t, http.MethodPost, "/api/private/team", token, map[string]any{
		"name": "João", "email": "joao@loja.com", "password": "segredo123", "role": "COLLABORATOR",
	})
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Acesso negado", errorMessage(t, rr))

	rr = env.request(t, http.MethodDelete, "/api/private/team/"+env.adminID, env.adminToken, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Você não pode excluir a própria conta", errorMessage(t, rr))

	rr = env.request(t, http.MethodDelete, "/api/private/team/"+collaborator.ID, env.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Membro excluído com sucesso", decode[messageResponse](t, rr).Message)
}

func TestTeamCreateChecksEmailAndWelcomes(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/private/team", env.adminToken, map[string]any{
		"name": "João", "email": "Admin@Loja.com", "password": "segredo123", "role": "COLLABORATOR",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Já existe um membro com este e-mail", errorMessage(t, rr))

	rr = env.request(t, http.MethodPost, "/api/private/team", env.adminToken, map[string]any{
		"name": "João", "email": "joao@loja.com", "password": "segredo123", "role": "GUEST",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.True(t, strings.HasPrefix(errorMessage(t, rr), "O campo perfil"))

	rr = env.request(t, http.MethodPatch, "/api/private/settings", env.adminToken, map[string]any{"notifyNewTeamMember": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.request(t, http.MethodPost, "/api/private/team", env.adminToken, map[string]any{
		"name": "João", "email": "joao@loja.com", "password": "segredo123", "role": "COLLABORATOR",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	member := decode[team.Member](t, rr)
	assert.Equal(t, team.RoleCollaborator, member.Role)
	assert.NotContains(t, rr.Body.String(), "segredo123")

	env.app.wg.Wait()
	sent := env.mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, mailer.TeamWelcomeTemplate, sent[0].template)
	assert.Equal(t, "joao@loja.com", sent[0].email)

	rr = env.request(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "joao@loja.com", "password": "segredo123",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSettingsCNPJValidation(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodGet, "/api/private/settings", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cfg := decode[settings.StoreConfiguration](t, rr)
	assert.Equal(t, settings.DefaultStoreName, cfg.StoreName)
	assert.Equal(t, settings.DefaultLowStockThreshold, cfg.LowStockThreshold)

	rr = env.request(t, http.MethodPatch, "/api/private/settings", env.adminToken, map[string]any{"cnpj": "11.111.111/1111-11"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "CNPJ inválido", errorMessage(t, rr))

	rr = env.request(t, http.MethodPatch, "/api/private/settings", env.adminToken, map[string]any{"cnpj": "11.222.333/0001-81"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "11.222.333/0001-81", decode[settings.StoreConfiguration](t, rr).CNPJ)

	collaborator := env.createMember(t, "ana@loja.com", "segredo123", team.RoleCollaborator)
	rr = env.request(t, http.MethodPatch, "/api/private/settings", env.tokenFor(t, collaborator), map[string]any{"storeName": "Outra"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestMaintenanceModeBlocksStorefront(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodGet, "/api/public/product", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.request(t, http.MethodPatch, "/api/private/settings", env.adminToken, map[string]any{
		"maintenanceMode":    true,
		"maintenanceMessage": "Voltamos às 18h",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.request(t, http.MethodGet, "/api/public/product", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "Voltamos às 18h", errorMessage(t, rr))

	rr = env.request(t, http.MethodGet, "/api/public/settings", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[settings.PublicView](t, rr)
	assert.True(t, view.MaintenanceMode)
	assert.NotContains(t, rr.Body.String(), "cnpj")
}

func TestPublicBannersCache(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodGet, "/api/public/banner", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))

	rr = env.request(t, http.MethodGet, "/api/public/banner", "", nil)
	assert.Equal(t, "HIT", rr.Header().Get("X-Cache"))

	rr = env.request(t, http.MethodPost, "/api/private/banner", env.adminToken, map[string]any{"title": "Promoção de Verão"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.request(t, http.MethodGet, "/api/public/banner", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	list := decode[[]banners.Banner](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "Promoção de Verão", list[0].Title)
}

func TestPublicProductUsesPublicImageURLs(t *testing.T) {
	env := newTestEnv(t)

	rr := env.multipartRequest(t, http.MethodPost, "/api/private/product", env.adminToken,
		map[string]string{"title": "Anel Solitário", "price": "199"},
		formFile{field: "files", name: "anel.png", data: pngBytes},
	)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.request(t, http.MethodGet, "/api/public/product/anel-solitario", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	product := decode[catalog.Product](t, rr)
	require.Len(t, product.Images, 1)
	assert.True(t, strings.HasPrefix(product.Images[0].URL, "http://localhost:8080/uploads/products/"))

	rr = env.request(t, http.MethodGet, "/api/public/product/nao-existe", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, productNotFoundMessage, errorMessage(t, rr))
}

func TestPublicProductHidesInactive(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{
		"title": "Tornozeleira", "price": 25, "isActive": false,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.request(t, http.MethodGet, "/api/public/product/tornozeleira", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.request(t, http.MethodGet, "/api/private/product?search=Tornozeleira", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "tornozeleira")
}

func TestLowStockNotification(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPatch, "/api/private/settings", env.adminToken, map[string]any{
		"notifyLowStock":    true,
		"lowStockThreshold": 5,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{
		"title": "Pingente", "price": 40,
		"variants": []map[string]any{{"name": "Ouro", "quantity": 2}, {"name": "Prata", "quantity": 20}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	env.app.wg.Wait()
	sent := env.mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, mailer.LowStockTemplate, sent[0].template)
	assert.Equal(t, settings.DefaultEmail, sent[0].email)
}

func TestNegativeVariantQuantityRejected(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/private/product", env.adminToken, map[string]any{
		"title": "Pingente", "price": 40,
		"variants": []map[string]any{{"name": "Ouro", "quantity": -1}},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "A quantidade da variante não pode ser negativa", errorMessage(t, rr))
}

func TestCORSCredentialsOnlyForConfiguredOrigins(t *testing.T) {
	env := newTestEnv(t)

	get := func(h http.Handler, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", origin)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	rr := get(env.handler, "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	rr = get(env.handler, "http://example.com")
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))

	env.app.config.frontendURL = ""
	rr = get(env.app.mount(), "http://example.com")
	assert.Equal(t, "http://example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
}
