package httptransport_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edumarket/storefront/internal/apiclient"
	"github.com/edumarket/storefront/internal/backend"
	"github.com/edumarket/storefront/internal/infrastructure/memory"
	"github.com/edumarket/storefront/internal/session"
	httptransport "github.com/edumarket/storefront/internal/transport/http"
	"github.com/edumarket/storefront/internal/transport/http/handler"
	"github.com/edumarket/storefront/internal/transport/http/middleware"
	"github.com/edumarket/storefront/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newGateway wires the full gateway against a fake marketplace API.
func newGateway(t *testing.T, upstream http.HandlerFunc, otpPerMinute int) *gin.Engine {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := apiclient.New(srv.URL,
		session.NewCookieStore(session.CookieConfig{Name: "accessToken", RefreshName: "refreshToken"}),
		session.JarNavigator{},
		apiclient.WithLogger(logger),
	)
	uc := usecase.NewIdentityUsecase(backend.New(api), logger)

	return httptransport.NewRouter(logger,
		httptransport.RouterConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			CookieName:     "accessToken",
			LoginPath:      "/login",
		},
		middleware.NewRateLimiter(otpPerMinute),
		handler.NewSessionHandler(uc, logger),
		handler.NewFlowHandler(uc, memory.NewFlowStore(15*time.Minute), logger),
	)
}

func envelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "code": status, "message": "", "data": data})
}

func send(r http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	return w
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin_SetsHttpOnlyCookie(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u1",
		"role": "buyer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("upstream-secret"))
	if err != nil {
		t.Fatal(err)
	}

	r := newGateway(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/auth/login" {
			t.Errorf("unexpected upstream call %s", req.URL.Path)
		}
		envelope(w, http.StatusOK, map[string]any{"access_token": token, "user": map[string]string{"role": "buyer"}})
	}, 5)

	w := send(r, http.MethodPost, "/auth/login", `{"email":"an@example.com","password":"secret1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	c := findCookie(w, "accessToken")
	if c == nil || c.Value != token || !c.HttpOnly || c.MaxAge <= 0 {
		t.Errorf("cookie = %+v", c)
	}
	if strings.Contains(w.Body.String(), token) {
		t.Error("token leaked into the body")
	}
}

func TestMe_SignedOutDoesNotRedirect(t *testing.T) {
	r := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, 5)

	w := send(r, http.MethodGet, "/auth/me", "", &http.Cookie{Name: "accessToken", Value: "stale"})
	if w.Code != http.StatusOK || w.Header().Get("Location") != "" {
		t.Fatalf("status %d location %q", w.Code, w.Header().Get("Location"))
	}
	if c := findCookie(w, "accessToken"); c == nil || c.MaxAge >= 0 {
		t.Errorf("stale token not evicted: %+v", c)
	}
}

func TestUpdateProfile_UpstreamUnauthorizedRedirectsToLogin(t *testing.T) {
	r := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, 5)

	w := send(r, http.MethodPatch, "/users/profile", `{"fullName":"An Nguyen"}`, &http.Cookie{Name: "accessToken", Value: "stale"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q", loc)
	}
	if c := findCookie(w, "refreshToken"); c == nil || c.MaxAge >= 0 {
		t.Errorf("refresh cookie not evicted: %+v", c)
	}
}

func TestUpdateProfile_WithoutCookieNeverCallsUpstream(t *testing.T) {
	r := newGateway(t, func(w http.ResponseWriter, req *http.Request) {
		t.Errorf("unexpected upstream call %s", req.URL.Path)
	}, 5)

	if w := send(r, http.MethodPatch, "/users/profile", `{"fullName":"An Nguyen"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestForgotPassword_OTPSendsAreRateLimited(t *testing.T) {
	r := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		envelope(w, http.StatusOK, map[string]int{"expiresIn": 120})
	}, 2)

	for i := 0; i < 2; i++ {
		if w := send(r, http.MethodPost, "/flows/forgot-password", `{"phone":"0912345678"}`); w.Code != http.StatusCreated {
			t.Fatalf("send %d: %d %s", i, w.Code, w.Body.String())
		}
	}
	if w := send(r, http.MethodPost, "/flows/forgot-password", `{"phone":"0912345678"}`); w.Code != http.StatusTooManyRequests {
		t.Errorf("third send = %d, want 429", w.Code)
	}
}

func TestCORS_AllowsConfiguredOriginWithCredentials(t *testing.T) {
	r := newGateway(t, func(http.ResponseWriter, *http.Request) {}, 5)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("credentials not allowed")
	}
}
