package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skvortsovm/storefront/internal/broadcast"
	"github.com/skvortsovm/storefront/internal/config"
	"github.com/skvortsovm/storefront/internal/handlers"
	"github.com/skvortsovm/storefront/internal/hash"
	"github.com/skvortsovm/storefront/internal/httpserver"
	"github.com/skvortsovm/storefront/internal/models"
	"github.com/skvortsovm/storefront/internal/service/token"
)

type publishedMsg struct {
	Channel string
	Payload interface{}
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []publishedMsg
}

func (f *fakeBroadcaster) Publish(channel string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, publishedMsg{Channel: channel, Payload: payload})
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func (f *fakeBroadcaster) last(t *testing.T) publishedMsg {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.msgs, "expected at least one broadcast")
	return f.msgs[len(f.msgs)-1]
}

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakePublisher) Publish(ctx context.Context, topic, key string, event interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, _ := event.(map[string]interface{})
	f.events = append(f.events, recordedEvent{Topic: topic, Key: key, Event: m})
	return nil
}

type testEnv struct {
	t         *testing.T
	e         *echo.Echo
	db        *gorm.DB
	hub       *fakeBroadcaster
	producer  *fakePublisher
	jwtSecret []byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))

	env := &testEnv{
		t:         t,
		e:         echo.New(),
		db:        db,
		hub:       &fakeBroadcaster{},
		producer:  &fakePublisher{},
		jwtSecret: []byte("test_secret"),
	}

	httpserver.Register(env.e, &httpserver.Deps{
		JWTSecret:       env.jwtSecret,
		Hub:             broadcast.NewHub(slog.Default()),
		AuthHandler:     &handlers.AuthHandler{DB: db, JWTSecret: env.jwtSecret, Producer: env.producer},
		ProductHandler:  &handlers.ProductHandler{DB: db, Hub: env.hub, Producer: env.producer},
		CartHandler:     &handlers.CartHandler{DB: db, Hub: env.hub, Producer: env.producer},
		WishlistHandler: &handlers.WishlistHandler{DB: db, Hub: env.hub, Producer: env.producer},
		SearchHandler:   &handlers.SearchHandler{},
	})

	t.Cleanup(func() { _ = sqlDB.Close() })

	return env
}

func (env *testEnv) request(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	env.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// registerUser goes through the real endpoint and returns the issued token.
func (env *testEnv) registerUser(username, email string) string {
	env.t.Helper()

	rec := env.request(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": "secret1",
	}, "")
	require.Equal(env.t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[struct {
		Token string `json:"token"`
	}](env.t, rec)
	require.NotEmpty(env.t, resp.Token)
	return resp.Token
}

func (env *testEnv) adminToken() string {
	env.t.Helper()

	pwHash, err := hash.HashPassword("admin_password")
	require.NoError(env.t, err)
	admin := models.User{
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: pwHash,
		Role:         models.RoleAdmin,
	}
	require.NoError(env.t, env.db.Create(&admin).Error)

	tok, err := token.SignAccessToken(admin.ID, admin.Role, env.jwtSecret)
	require.NoError(env.t, err)
	return tok
}

func (env *testEnv) seedProduct(name string, price float64, image string) models.Product {
	env.t.Helper()

	var cat models.Category
	require.NoError(env.t, env.db.FirstOrCreate(&cat, models.Category{Name: "laptops"}).Error)
	var brand models.Brand
	require.NoError(env.t, env.db.FirstOrCreate(&brand, models.Brand{Name: "acme"}).Error)

	prod := models.Product{
		Name:       name,
		Price:      price,
		Image:      image,
		Stock:      10,
		CategoryID: cat.ID,
		BrandID:    brand.ID,
	}
	require.NoError(env.t, env.db.Create(&prod).Error)
	return prod
}

func (env *testEnv) seedVariant(productID uint, name string, price float64) models.ProductVariant {
	env.t.Helper()

	v := models.ProductVariant{ProductID: productID, Name: name, Price: price}
	require.NoError(env.t, env.db.Create(&v).Error)
	return v
}
