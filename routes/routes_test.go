package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MindMateGo/config"
	"MindMateGo/middleware"
	"MindMateGo/models"
	"MindMateGo/services"
	"MindMateGo/store"
	"MindMateGo/utils"
)

const (
	testSecret    = "test-jwt-secret"
	webhookSecret = "whsec_test"
)

type testServer struct {
	engine *gin.Engine
	store  *store.MemoryStore
}

func newTestServer(t *testing.T, conf config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if conf.GeneralRateLimit == 0 {
		conf.GeneralRateLimit = 100
	}
	if conf.AIRateLimit == 0 {
		conf.AIRateLimit = 10
	}

	verifier, err := utils.NewTokenVerifier(testSecret, "", "")
	require.NoError(t, err)

	st := store.NewMemoryStore()
	locker := services.NewMemoryLocker()
	ai := services.NewAIService(services.NewMockGenerator(), time.Second)

	r := gin.New()
	middleware.SetupMiddleware(r, conf)
	RegisterRoutes(r, Dependencies{
		Config:        conf,
		Verifier:      verifier,
		Limiter:       middleware.NewMemoryRateLimiter(),
		Users:         services.NewUserService(st),
		Moods:         services.NewMoodService(st, st, locker, time.UTC),
		Tasks:         services.NewTaskService(st, st, st, ai, locker, time.UTC),
		Chats:         services.NewChatService(st, st, st, ai, locker),
		Onboarding:    services.NewOnboardingService(st, locker),
		Subscriptions: services.NewSubscriptionService(st, st, webhookSecret, locker),
		Analytics:     services.NewAnalyticsService(st, st, st, ai, nil, time.UTC),
	})
	return &testServer{engine: r, store: st}
}

func token(t *testing.T, subject string) string {
	t.Helper()
	tok, err := utils.GenerateToken(testSecret, subject, "Test User", subject+"@example.com", time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (s *testServer) do(method, path, auth string, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, config.Config{})

	w := s.do(http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "OK", body["status"])
	assert.Contains(t, body, "uptime")
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, config.Config{})

	w := s.do(http.MethodGet, "/api/nope", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Route not found", body["message"])
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, config.Config{})

	w := s.do(http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No token provided, authorization denied", decode(t, w)["message"])

	w = s.do(http.MethodGet, "/api/auth/me", "Bearer not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token is not valid", decode(t, w)["message"])
}

func TestMeCreatesUser(t *testing.T) {
	s := newTestServer(t, config.Config{})

	w := s.do(http.MethodGet, "/api/auth/me", token(t, "user-1"), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "user-1", data["id"])

	user, err := s.store.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Test User", user.Name)
}

func TestMoodCheckIn(t *testing.T) {
	s := newTestServer(t, config.Config{})
	auth := token(t, "user-1")

	w := s.do(http.MethodPost, "/api/mood/check-in", auth, `{"mood":"happy","factors":["sleep"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Mood checked in successfully", body["message"])
	assert.EqualValues(t, 4, body["data"].(map[string]any)["moodScore"])

	w = s.do(http.MethodPost, "/api/mood/check-in", auth, `{"mood":"sad"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["data"].(map[string]any)["moodScore"])

	w = s.do(http.MethodPost, "/api/mood/check-in", auth, `{"mood":"ecstatic"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = s.do(http.MethodGet, "/api/mood/today", auth, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sad", decode(t, w)["data"].(map[string]any)["mood"])
}

func TestPremiumRequiredForChat(t *testing.T) {
	s := newTestServer(t, config.Config{})

	w := s.do(http.MethodGet, "/api/chat/history", token(t, "free-user"), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Premium subscription required", decode(t, w)["message"])

	expires := time.Now().Add(24 * time.Hour)
	premium := models.NewUser("premium-user", "Premium", "p@example.com", time.Now())
	premium.IsPremium = true
	premium.PremiumPlan = "monthly"
	premium.PremiumExpiresAt = &expires
	require.NoError(t, s.store.SaveUser(context.Background(), premium))

	w = s.do(http.MethodGet, "/api/chat/history", token(t, "premium-user"), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []any{}, decode(t, w)["data"])
}

func TestWebhook(t *testing.T) {
	s := newTestServer(t, config.Config{})
	payload := `{"id":"evt_1","type":"subscription.activated","data":{"userId":"user-9","plan":"yearly"}}`

	w := s.do(http.MethodPost, "/api/payment/webhook", "", payload, "X-Webhook-Signature", "deadbeef")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Webhook Error: "))

	sig := "sha256=" + services.Sign([]byte(webhookSecret), []byte(payload))
	w = s.do(http.MethodPost, "/api/payment/webhook", "", payload, "X-Webhook-Signature", sig)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"received": true, "duplicate": false}, decode(t, w))

	w = s.do(http.MethodPost, "/api/payment/webhook", "", payload, "X-Webhook-Signature", sig)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["duplicate"])

	w = s.do(http.MethodGet, "/api/payment/status", token(t, "user-9"), "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "active", data["status"])
	assert.Equal(t, true, data["isPremium"])
}

func TestGeneralRateLimit(t *testing.T) {
	s := newTestServer(t, config.Config{GeneralRateLimit: 2})

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/api/payment/webhook", "", `{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "2", w.Header().Get("RateLimit-Limit"))
	}

	w := s.do(http.MethodPost, "/api/payment/webhook", "", `{}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, "Too many requests, please try again later.", decode(t, w)["message"])
}

func TestDailyTaskIdempotent(t *testing.T) {
	s := newTestServer(t, config.Config{})
	auth := token(t, "user-1")

	w := s.do(http.MethodPost, "/api/task/daily", auth, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode(t, w)["data"].(map[string]any)

	w = s.do(http.MethodPost, "/api/task/daily", auth, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, first["id"], decode(t, w)["data"].(map[string]any)["id"])

	w = s.do(http.MethodGet, "/api/task/not-a-date", auth, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
