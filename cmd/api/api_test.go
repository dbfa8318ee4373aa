package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vitrine/internal/auth"
	"vitrine/internal/cache"
	"vitrine/internal/db/dbtest"
	"vitrine/internal/domain/storage"
	"vitrine/internal/domain/team"
	"vitrine/internal/ratelimiter"
	"vitrine/internal/upload"
)

// smallest valid PNG header + IHDR chunk prefix
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89,
}

type sentMail struct {
	template string
	email    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(templateFile, username, email string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{template: templateFile, email: email})
	return nil
}

func (m *recordingMailer) messages() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type testEnv struct {
	app     *application
	gdb     *gorm.DB
	mailer  *recordingMailer
	uploads *upload.Local
	handler http.Handler

	adminID    string
	adminToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := dbtest.New(t)
	require.NoError(t, storage.Migrate(gdb))

	uploads, err := upload.NewLocal(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)

	publicCache, err := cache.New(context.Background(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = publicCache.Close() })

	mail := &recordingMailer{}
	app := &application{
		config: config{
			env:         "test",
			frontendURL: "http://localhost:3000",
			auth: authConfig{
				token: tokenConfig{secret: "test-secret", exp: time.Hour, iss: "vitrine"},
			},
			cleanup: cleanupConfig{interval: time.Minute, batchSize: 50, maxAttempts: 5},
		},
		store:         storage.NewContainer(gdb),
		logger:        zap.NewNop().Sugar(),
		uploads:       uploads,
		cache:         publicCache,
		mailer:        mail,
		authenticator: auth.NewJWTAuthenticator("test-secret", "vitrine", "vitrine", time.Hour),
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(1000, time.Minute),
		cleanupKick:   make(chan struct{}, 1),
	}
	// notifications must finish before the database goes away
	t.Cleanup(app.wg.Wait)

	env := &testEnv{app: app, gdb: gdb, mailer: mail, uploads: uploads, handler: app.mount()}
	admin := env.createMember(t, "admin@loja.com", "segredo123", team.RoleAdmin)
	env.adminID = admin.ID
	env.adminToken = env.tokenFor(t, admin)
	return env
}

func (e *testEnv) createMember(t *testing.T, email, password string, role team.Role) *team.Member {
	t.Helper()
	m := &team.Member{Name: "Maria", LastName: "Silva", Email: email, Role: role, IsActive: true}
	require.NoError(t, m.SetPassword(password))
	require.NoError(t, e.app.store.Team.Members().Create(context.Background(), m))
	return m
}

func (e *testEnv) tokenFor(t *testing.T, m *team.Member) string {
	t.Helper()
	token, _, err := e.app.authenticator.GenerateToken(auth.Session{
		ID: m.ID, Name: m.FullName(), Email: m.Email, Role: string(m.Role),
	})
	require.NoError(t, err)
	return token
}

// request sends body as JSON (nil for none) with an optional Bearer token.
func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

type formFile struct {
	field string
	name  string
	data  []byte
}

func (e *testEnv) multipartRequest(t *testing.T, method, path, token string, fields map[string]string, files ...formFile) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, rr).Error
}
