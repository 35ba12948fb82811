package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/api/handler"
	"github.com/qs3c/namma_kumta_server/internal/model"
	"github.com/qs3c/namma_kumta_server/internal/pkg/jwt"
	"github.com/qs3c/namma_kumta_server/internal/pkg/payment"
	"github.com/qs3c/namma_kumta_server/internal/pkg/response"
	"github.com/qs3c/namma_kumta_server/internal/pkg/ws"
	"github.com/qs3c/namma_kumta_server/internal/repository"
	"github.com/qs3c/namma_kumta_server/internal/service"
	"github.com/qs3c/namma_kumta_server/internal/testutil"
)

const routerSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupEngine(t *testing.T) *gin.Engine {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		JWT:       config.JWTConfig{Secret: routerSecret, ExpireHours: 1},
		Ads:       config.AdsConfig{Plans: []config.AdPlan{{Days: 7, Price: 99}}, MaxImages: 3},
		Payment:   config.PaymentConfig{SaltKey: "salt", SaltIndex: "1", SuccessCode: "PAYMENT_SUCCESS"},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1},
	}

	userRepo := repository.NewUserRepository(db)
	adRepo := repository.NewAdvertisementRepository(db)
	media := service.NewMediaService(nil, nil, cfg.Upload, nil)
	ads := service.NewAdService(adRepo, nil, media, cfg, nil)
	payments := service.NewPaymentService(repository.NewPaymentRepository(db), adRepo, ads, payment.NewGateway(cfg.Payment), cfg, nil)

	router := NewRouter(
		handler.NewAuthHandler(service.NewAuthService(userRepo, cfg)),
		handler.NewAdHandler(ads, payments),
		handler.NewAdminHandler(ads, nil),
		handler.NewPaymentHandler(payments),
		handler.NewMediaHandler(media),
		handler.NewWebSocketHandler(ws.NewHub(nil), routerSecret, nil, nil),
		handler.NewHealthHandler(db, nil),
		cfg,
		nil,
	)
	return router.Setup()
}

func call(t *testing.T, engine *gin.Engine, method, path, token string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp response.Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestRouter_Access(t *testing.T) {
	engine := setupEngine(t)

	userToken, err := jwt.GenerateToken(10, model.RoleUser, routerSecret, 1)
	require.NoError(t, err)
	adminToken, err := jwt.GenerateToken(1, model.RoleAdmin, routerSecret, 1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		code   int
	}{
		{name: "public list", method: "GET", path: "/api/v1/public/ads", code: response.CodeSuccess},
		{name: "public plans", method: "GET", path: "/api/v1/public/plans", code: response.CodeSuccess},
		{name: "mine needs login", method: "GET", path: "/api/v1/ads/mine", code: response.CodeAuthFailed},
		{name: "mine", method: "GET", path: "/api/v1/ads/mine", token: userToken, code: response.CodeSuccess},
		{name: "admin needs login", method: "GET", path: "/api/v1/admin/ads", code: response.CodeAuthFailed},
		{name: "admin needs role", method: "GET", path: "/api/v1/admin/ads", token: userToken, code: response.CodePermissionDenied},
		{name: "admin", method: "GET", path: "/api/v1/admin/ads", token: adminToken, code: response.CodeSuccess},
		{name: "sweep needs role", method: "POST", path: "/api/v1/admin/sweep", token: userToken, code: response.CodePermissionDenied},
		{name: "sweep", method: "POST", path: "/api/v1/admin/sweep", token: adminToken, code: response.CodeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := call(t, engine, tt.method, tt.path, tt.token)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	engine := setupEngine(t)

	w, _ := call(t, engine, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, engine, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "namma_kumta_http_request_duration_seconds")
}

func TestRouter_CallbackRateLimited(t *testing.T) {
	engine := setupEngine(t)

	_, resp := call(t, engine, "POST", "/api/v1/payments/callback", "")
	// 未签名，但没有被限流
	assert.Equal(t, response.CodeAuthFailed, resp.Code)

	w, resp := call(t, engine, "POST", "/api/v1/payments/callback", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, response.CodeRateLimited, resp.Code)
}
