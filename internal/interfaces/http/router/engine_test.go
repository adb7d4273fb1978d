package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/cashflow/backend/docs"
	cashflowapp "github.com/cashflow/backend/internal/application/cashflow"
	appidentity "github.com/cashflow/backend/internal/application/identity"
	"github.com/cashflow/backend/internal/domain/cashflow"
	"github.com/cashflow/backend/internal/infrastructure/auth"
	"github.com/cashflow/backend/internal/infrastructure/config"
	"github.com/cashflow/backend/internal/infrastructure/credentials"
	"github.com/cashflow/backend/internal/infrastructure/fixture"
	"github.com/cashflow/backend/internal/interfaces/http/dto"
	"github.com/cashflow/backend/internal/interfaces/http/handler"
	"github.com/cashflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

func newTestEngine(t *testing.T, limiter *middleware.RateLimiter, opts ...func(*config.HTTPConfig)) *gin.Engine {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("abc12345"), bcrypt.MinCost)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	body := fmt.Sprintf("credentials:\n  usernames:\n    jsmith:\n      name: John Smith\n      password: \"%s\"\n", hash)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	store, err := credentials.Load(path, nil)
	require.NoError(t, err)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "engine-test-secret-32-characters",
		RefreshSecret:          "engine-test-refresh-32-characters",
		AccessTokenExpiration:  time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "engine-test",
		MaxRefreshCount:        3,
	})
	authService := appidentity.NewAuthService(store, jwtService, auth.NewInMemoryTokenBlacklist(),
		appidentity.DefaultAuthServiceConfig(), nil)

	defaultRange, err := cashflow.ParseDateRange("2024-09-01", "2024-10-31")
	require.NoError(t, err)
	loader := fixture.NewLoader()
	dashboard := cashflowapp.NewDashboardService(loader, defaultRange, nil, nil)

	httpCfg := config.HTTPConfig{
		CORSAllowOrigins: []string{"http://dashboard.local"},
		CORSAllowMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowHeaders: []string{"Authorization", "Content-Type"},
		MaxBodySize:      1 << 10,
	}
	for _, opt := range opts {
		opt(&httpCfg)
	}

	return NewEngine(EngineConfig{
		HTTP:         httpCfg,
		Validator:    authService,
		LoginLimiter: limiter,
	}, Handlers{
		System:   handler.NewSystemHandler("test", loader.Name(), nil),
		Auth:     handler.NewAuthHandler(authService, handler.CookieConfig{Name: "cashflow_session", MaxAge: 60}),
		Cashflow: handler.NewCashflowHandler(dashboard),
	})
}

func postLogin(engine *gin.Engine, password string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(map[string]string{"username": "jsmith", "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func accessToken(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	w := postLogin(engine, "abc12345")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var envelope struct {
		Data handler.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data.Token.AccessToken
}

func authedGet(engine *gin.Engine, token, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestNewEngine_PublicRoutes(t *testing.T) {
	engine := newTestEngine(t, nil)

	w := serve(engine, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/system/info").Code)
}

func TestNewEngine_DashboardRequiresLogin(t *testing.T) {
	engine := newTestEngine(t, nil)

	for _, path := range []string{"/api/v1/cashflow/dashboard", "/api/v1/cashflow/records", "/api/v1/cashflow/weekly", "/api/v1/auth/me"} {
		w := serve(engine, http.MethodGet, path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, dto.ErrCodeUnauthorized, errorCode(t, w), path)
	}
}

func TestNewEngine_Dashboard(t *testing.T) {
	engine := newTestEngine(t, nil)
	token := accessToken(t, engine)

	q := url.Values{"initial_balance": {"R$ 195.584,85"}, "start_date": {"2024-09-01"}, "end_date": {"2024-10-31"}}
	w := authedGet(engine, token, "/api/v1/cashflow/dashboard?"+q.Encode())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var envelope struct {
		Data struct {
			Summary struct {
				FinalBalance struct {
					Formatted string `json:"formatted"`
				} `json:"final_balance"`
			} `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "R$ 195.412,52", envelope.Data.Summary.FinalBalance.Formatted)

	w = authedGet(engine, token, "/api/v1/cashflow/dashboard?initial_balance=oops")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidBalance, errorCode(t, w))
}

func TestNewEngine_LoginRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Close)
	engine := newTestEngine(t, limiter)

	assert.Equal(t, http.StatusUnauthorized, postLogin(engine, "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, postLogin(engine, "wrong").Code)

	w := postLogin(engine, "abc12345")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, errorCode(t, w))
}

func TestNewEngine_BodyLimit(t *testing.T) {
	engine := newTestEngine(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(make([]byte, 4<<10)))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = 4 << 10
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNewEngine_CORSPreflight(t *testing.T) {
	engine := newTestEngine(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cashflow/dashboard", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://dashboard.local", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewEngine_Swagger(t *testing.T) {
	t.Run("not served when disabled", func(t *testing.T) {
		engine := newTestEngine(t, nil)
		w := serve(engine, http.MethodGet, "/swagger/doc.json")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("serves the document", func(t *testing.T) {
		engine := newTestEngine(t, nil, func(c *config.HTTPConfig) {
			c.SwaggerEnabled = true
		})
		w := serve(engine, http.MethodGet, "/swagger/doc.json")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/cashflow/dashboard")
		assert.Contains(t, w.Body.String(), "Cashflow Dashboard API")
	})

	t.Run("requires a token when configured", func(t *testing.T) {
		engine := newTestEngine(t, nil, func(c *config.HTTPConfig) {
			c.SwaggerEnabled = true
			c.SwaggerRequireAuth = true
		})
		w := serve(engine, http.MethodGet, "/swagger/doc.json")
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = authedGet(engine, accessToken(t, engine), "/swagger/doc.json")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects clients outside the allow list", func(t *testing.T) {
		engine := newTestEngine(t, nil, func(c *config.HTTPConfig) {
			c.SwaggerEnabled = true
			c.SwaggerAllowedIPs = []string{"10.1.0.0/16"}
		})
		w := serve(engine, http.MethodGet, "/swagger/doc.json")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, w))
	})
}
