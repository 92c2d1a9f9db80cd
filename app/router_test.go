package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"jobber/auth-api/db"
	"jobber/auth-api/internal"
	"jobber/auth-api/internal/search"
	"jobber/auth-api/internal/service"
	"jobber/auth-api/internal/store"
	"jobber/auth-api/pkg/security"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sentEvent struct {
	routingKey string
	payload    any
}

type eventLog struct {
	mu     sync.Mutex
	events []sentEvent
}

func (l *eventLog) Publish(ctx context.Context, exchange, routingKey string, payload any, logMessage string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, sentEvent{routingKey, payload})
}

func (l *eventLog) lastEmail() any {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].routingKey == service.RoutingKeyAuthEmail {
			return l.events[i].payload
		}
	}
	return nil
}

type fastHasher struct{}

func (fastHasher) Hash(p string) (string, error) { return "h:" + p, nil }

func (fastHasher) Compare(p, encoded string) (bool, error) { return encoded == "h:"+p, nil }

type stubEngine struct {
	searches int
	err      error
}

func (s *stubEngine) Search(ctx context.Context, index string, body map[string]any) (*search.Hits, error) {
	s.searches++
	if s.err != nil {
		return nil, s.err
	}

	out := &search.Hits{}
	out.Total.Value = 2
	for _, id := range []int64{9, 8} {
		src := json.RawMessage(fmt.Sprintf(`{"id":"%d","sortId":%d,"ratingsCount":0}`, id, id))
		out.Hits = append(out.Hits, struct {
			Source json.RawMessage `json:"_source"`
		}{src})
	}
	return out, nil
}

func (s *stubEngine) Get(ctx context.Context, index, id string) (json.RawMessage, error) {
	if id == "g1" {
		return json.RawMessage(`{"id":"g1","title":"Logo design"}`), nil
	}
	return nil, errors.New("connection reset")
}

func (s *stubEngine) Health(ctx context.Context) (string, error) { return "green", nil }
func (s *stubEngine) IndexExists(ctx context.Context, index string) (bool, error) { return true, nil }
func (s *stubEngine) CreateIndex(ctx context.Context, index string) error { return nil }

type harness struct {
	router *gin.Engine
	events *eventLog
	engine *stubEngine
}

func newHarness(t *testing.T, seed bool) *harness {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("security.rate_limit", 1000)
	viper.Set("upload.max_size", 1<<20)
	viper.Set("host.cors", []string{"http://localhost:3000"})
	viper.Set("app.seed_enabled", seed)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	gdb, err := db.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	h := &harness{events: &eventLog{}, engine: &stubEngine{}}
	sessions := security.NewSessionSigner("router-test")

	d := &internal.Deps{
		DB:       gdb,
		Sessions: sessions,
		Search:   search.NewPaginator(h.engine, "gigs"),
		Cache:    persist.NewMemoryStore(time.Minute),
		Lifecycle: service.NewLifecycle(service.LifecycleDeps{
			Store:     store.New(gdb),
			Hasher:    fastHasher{},
			Sessions:  sessions,
			Events:    h.events,
			ClientURL: "http://client.test",
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h.router = NewRouter(ctx, d)
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func (h *harness) signup(t *testing.T, username, email string) (string, map[string]any) {
	t.Helper()

	code, res := h.do(t, http.MethodPost, "/api/v1/signup", "", gin.H{
		"username":       username,
		"email":          email,
		"password":       "qwerty",
		"country":        "Germany",
		"profilePicture": "https://cdn.test/p.png",
	})
	require.Equal(t, http.StatusCreated, code, res)

	return res["token"].(string), res["user"].(map[string]any)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, false)

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth-health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Auth service is healthy and OK.", w.Body.String())
}

func TestSignupAndSignIn(t *testing.T) {
	h := newHarness(t, false)

	_, user := h.signup(t, "manny", "manny@test.com")
	assert.Equal(t, "Manny", user["username"])
	assert.EqualValues(t, 0, user["emailVerified"])
	assert.NotContains(t, user, "password")

	code, res := h.do(t, http.MethodPost, "/api/v1/signin", "", gin.H{"username": "manny@test.com", "password": "qwerty"})
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, res["token"])

	code, res = h.do(t, http.MethodPost, "/api/v1/signin", "", gin.H{"username": "manny", "password": "nope1"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid username or password", res["error"])
	assert.NotEmpty(t, res["requestID"])

	code, res = h.do(t, http.MethodPost, "/api/v1/signup", "", gin.H{
		"username":       "MANNY",
		"email":          "other@test.com",
		"password":       "qwerty",
		"country":        "Germany",
		"profilePicture": "pic",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid credentials. Email or Username", res["error"])
}

func TestSignupValidation(t *testing.T) {
	h := newHarness(t, false)

	code, res := h.do(t, http.MethodPost, "/api/v1/signup", "", gin.H{
		"username":       "manny",
		"email":          "not-an-email",
		"password":       "qwerty",
		"country":        "Germany",
		"profilePicture": "pic",
	})

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid email", res["error"])
	assert.Empty(t, h.events.events)
}

func TestVerifyEmailRoute(t *testing.T) {
	h := newHarness(t, false)

	_, user := h.signup(t, "manny", "manny@test.com")
	token := user["emailVerificationToken"].(string)

	code, res := h.do(t, http.MethodPut, "/api/v1/verify-email", "", gin.H{"token": token})
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, res["user"].(map[string]any)["emailVerified"])

	code, res = h.do(t, http.MethodPut, "/api/v1/verify-email", "", gin.H{"token": token})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Verification token is either invalid or is already used.", res["error"])
}

func TestPasswordResetRoutes(t *testing.T) {
	h := newHarness(t, false)
	h.signup(t, "manny", "manny@test.com")

	code, _ := h.do(t, http.MethodPut, "/api/v1/forgot-password", "", gin.H{"email": "manny@test.com"})
	require.Equal(t, http.StatusOK, code)

	link := h.events.lastEmail().(service.PasswordResetRequested).ResetLink
	token := strings.TrimPrefix(link, "http://client.test/reset_password?token=")

	code, res := h.do(t, http.MethodPut, "/api/v1/reset-password/"+token, "", gin.H{"password": "fresh", "confirmPassword": "other"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Passwords do not match", res["error"])

	code, _ = h.do(t, http.MethodPut, "/api/v1/reset-password/"+token, "", gin.H{"password": "fresh", "confirmPassword": "fresh"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = h.do(t, http.MethodPost, "/api/v1/signin", "", gin.H{"username": "manny", "password": "fresh"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = h.do(t, http.MethodPut, "/api/v1/forgot-password", "", gin.H{"email": "ghost@test.com"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSessionRoutes(t *testing.T) {
	h := newHarness(t, false)
	token, user := h.signup(t, "manny", "manny@test.com")

	code, _ := h.do(t, http.MethodGet, "/api/v1/currentuser", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, res := h.do(t, http.MethodGet, "/api/v1/currentuser", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, user["id"], res["user"].(map[string]any)["id"])

	code, res = h.do(t, http.MethodPost, "/api/v1/resend-email", token, gin.H{"email": "manny@test.com"})
	assert.Equal(t, http.StatusOK, code)
	assert.NotEqual(t, user["emailVerificationToken"], res["user"].(map[string]any)["emailVerificationToken"])

	code, _ = h.do(t, http.MethodPut, "/api/v1/change-password", token, gin.H{"currentPassword": "qwerty", "newPassword": "qwerty"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(t, http.MethodPut, "/api/v1/change-password", token, gin.H{"currentPassword": "qwerty", "newPassword": "better"})
	assert.Equal(t, http.StatusOK, code)

	code, res = h.do(t, http.MethodGet, "/api/v1/refresh-token/manny", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, res["token"])
}

func TestSearchRoutes(t *testing.T) {
	h := newHarness(t, false)

	code, res := h.do(t, http.MethodGet, "/api/v1/search/gig/0/2/backward?query=logo&minPrice=5", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, res["total"])

	gigs := res["gigs"].([]any)
	require.Len(t, gigs, 2)
	assert.EqualValues(t, 8, gigs[0].(map[string]any)["sortId"])
	assert.EqualValues(t, 9, gigs[1].(map[string]any)["sortId"])
	assert.Contains(t, gigs[0].(map[string]any), "ratingsCount", "zero values reach the client")

	// Served from cache the second time
	h.do(t, http.MethodGet, "/api/v1/search/gig/0/2/backward?query=logo&minPrice=5", "", nil)
	assert.Equal(t, 1, h.engine.searches)

	code, res = h.do(t, http.MethodGet, "/api/v1/search/gig/g1", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Logo design", res["gig"].(map[string]any)["title"])

	code, res = h.do(t, http.MethodGet, "/api/v1/search/gig/broken", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, res["gig"])

	code, _ = h.do(t, http.MethodGet, "/api/v1/search/gig/0/many/forward", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSearchEngineFaultIs500(t *testing.T) {
	h := newHarness(t, false)
	h.engine.err = errors.New("cluster red")

	code, res := h.do(t, http.MethodGet, "/api/v1/search/gig/0/5/forward", "", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", res["error"])
}

func TestSeedRouteOnlyWhenEnabled(t *testing.T) {
	h := newHarness(t, false)
	code, _ := h.do(t, http.MethodPut, "/api/v1/seed/3", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	h = newHarness(t, true)
	code, res := h.do(t, http.MethodPut, "/api/v1/seed/3", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, res["created"])

	code, _ = h.do(t, http.MethodPut, "/api/v1/seed/zero", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
