package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/edumarket/storefront/internal/apiclient"
	"github.com/edumarket/storefront/internal/backend"
	"github.com/edumarket/storefront/internal/domain"
	"github.com/edumarket/storefront/internal/session"
)

type route struct {
	method string
	path   string
}

type capture struct {
	query url.Values
	body  map[string]any
	auth  string
}

type recorder struct {
	mu sync.Mutex
	m  map[route]*capture
}

func (r *recorder) get(k route) *capture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[k]
}

// newBackend serves canned envelopes per route and records what each
// route received.
func newBackend(t *testing.T, replies map[route]reply) (*backend.Client, *session.MemoryStore, *session.MemoryNavigator, *recorder) {
	t.Helper()
	seen := &recorder{m: map[route]*capture{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := route{r.Method, r.URL.Path}
		rep, ok := replies[key]
		if !ok {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		c := &capture{query: r.URL.Query(), auth: r.Header.Get("Authorization")}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &c.body)
		}
		seen.mu.Lock()
		seen.m[key] = c
		seen.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		_, _ = io.WriteString(w, rep.body)
	}))
	t.Cleanup(srv.Close)

	tokens := session.NewMemoryStore()
	nav := session.NewMemoryNavigator("/profile")
	return backend.New(apiclient.New(srv.URL, tokens, nav)), tokens, nav, seen
}

type reply struct {
	status int
	body   string
}

func ok(data string) reply {
	return reply{status: http.StatusOK, body: `{"success":true,"code":200,"message":"ok","data":` + data + `}`}
}

// ---- OTP ----

func TestSendOTP_DefaultsExpiryWhenAbsent(t *testing.T) {
	c, _, _, seen := newBackend(t, map[route]reply{
		{http.MethodPost, "/auth/verify_otp"}: ok(`{}`),
	})

	d, err := c.SendOTP(context.Background(), "0987654321")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ExpiresIn != domain.DefaultOTPExpiry {
		t.Errorf("ExpiresIn = %d, want %d", d.ExpiresIn, domain.DefaultOTPExpiry)
	}
	if got := seen.get(route{http.MethodPost, "/auth/verify_otp"}).body["phone"]; got != "0987654321" {
		t.Errorf("phone sent = %v", got)
	}
}

func TestSendOTP_UsesServerExpiry(t *testing.T) {
	c, _, _, _ := newBackend(t, map[route]reply{
		{http.MethodPost, "/auth/verify_otp"}: ok(`{"expiresIn":60}`),
	})

	d, err := c.SendOTP(context.Background(), "0987654321")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ExpiresIn != 60 {
		t.Errorf("ExpiresIn = %d, want 60", d.ExpiresIn)
	}
}

func TestVerifyOTP_SendsQueryAndReturnsSignKey(t *testing.T) {
	c, _, _, seen := newBackend(t, map[route]reply{
		{http.MethodGet, "/auth/verify_otp"}: ok(`{"sign_key":"abc"}`),
	})

	key, err := c.VerifyOTP(context.Background(), "0987654321", "123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "abc" {
		t.Errorf("sign key = %q, want abc", key)
	}
	q := seen.get(route{http.MethodGet, "/auth/verify_otp"}).query
	if q.Get("phone") != "0987654321" || q.Get("code") != "123456" {
		t.Errorf("query = %v", q)
	}
}

func TestVerifyOTP_WrongCodeCarriesServerMessage(t *testing.T) {
	c, _, _, _ := newBackend(t, map[route]reply{
		{http.MethodGet, "/auth/verify_otp"}: {status: http.StatusBadRequest, body: `{"success":false,"message":"Mã OTP không đúng"}`},
	})

	_, err := c.VerifyOTP(context.Background(), "0987654321", "000000")
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) || apiErr.Message != "Mã OTP không đúng" {
		t.Fatalf("want server message, got %v", err)
	}
}

func TestVerifyOTP_EmptySignKeyIsAnError(t *testing.T) {
	c, _, _, _ := newBackend(t, map[route]reply{
		{http.MethodGet, "/auth/verify_otp"}: ok(`{}`),
	})

	if _, err := c.VerifyOTP(context.Background(), "0987654321", "123456"); err == nil {
		t.Fatal("expected error for missing sign key")
	}
}

func TestResetPassword_SendsSignKeyAndPassword(t *testing.T) {
	c, _, _, seen := newBackend(t, map[route]reply{
		{http.MethodPost, "/auth/reset_password"}: ok(`null`),
	})

	if err := c.ResetPassword(context.Background(), "abc", "secret1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := seen.get(route{http.MethodPost, "/auth/reset_password"}).body
	if body["sign_key"] != "abc" || body["new_password"] != "secret1" {
		t.Errorf("body = %v", body)
	}
}

func TestRegister_ReportsVerifiedAccount(t *testing.T) {
	c, _, _, seen := newBackend(t, map[route]reply{
		{http.MethodPost, "/auth/register"}: ok(`{"verified":true}`),
	})

	status, err := c.Register(context.Background(), domain.Registration{Email: "a@b.vn", Phone: "0912345678", Password: "secret1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Verified {
		t.Error("Verified = false, want true")
	}
	body := seen.get(route{http.MethodPost, "/auth/register"}).body
	if len(body) != 3 || body["email"] != "a@b.vn" {
		t.Errorf("body = %v, want exactly email, phone, password", body)
	}
}

// ---- session ----

func TestLogin_StoresTokenAndReturnsRole(t *testing.T) {
	c, tokens, _, _ := newBackend(t, map[route]reply{
		{http.MethodPost, "/auth/login"}: ok(`{"access_token":"tok-1","user":{"role":"vendor"}}`),
	})

	s, err := c.Login(context.Background(), "a@b.vn", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Role != domain.RoleVendor || s.AccessToken != "tok-1" {
		t.Errorf("session = %+v", s)
	}
	if tokens.Token(context.Background()) != "tok-1" {
		t.Error("token not stored")
	}
}

func TestLogin_BadCredentialsOnLoginPageDoNotRedirect(t *testing.T) {
	c, _, nav, _ := newBackend(t, map[route]reply{
		{http.MethodPost, "/auth/login"}: {status: http.StatusUnauthorized, body: `{"message":"Sai mật khẩu"}`},
	})
	nav.SetPath("/login")
	var redirects int
	nav.OnNavigate = func(string) { redirects++ }

	_, err := c.Login(context.Background(), "a@b.vn", "wrong1")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if redirects != 0 {
		t.Errorf("redirects = %d, want 0", redirects)
	}
}

func TestLogout_EvictsTokenEvenWhenServerFails(t *testing.T) {
	c, tokens, _, _ := newBackend(t, map[route]reply{
		{http.MethodPost, "/auth/logout"}: {status: http.StatusInternalServerError, body: `{}`},
	})
	_ = tokens.SetToken(context.Background(), "tok-1")

	if err := c.Logout(context.Background()); err == nil {
		t.Error("expected upstream error to be reported")
	}
	if tokens.Token(context.Background()) != "" {
		t.Error("token not evicted")
	}
}

func TestProfile_SilentLookupDoesNotNavigate(t *testing.T) {
	c, tokens, nav, _ := newBackend(t, map[route]reply{
		{http.MethodGet, "/auth/profile"}: {status: http.StatusUnauthorized},
	})
	_ = tokens.SetToken(context.Background(), "expired")
	var redirects int
	nav.OnNavigate = func(string) { redirects++ }

	_, err := c.Profile(context.Background(), false)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if redirects != 0 {
		t.Errorf("redirects = %d, want 0", redirects)
	}
	if tokens.Token(context.Background()) != "" {
		t.Error("token not evicted")
	}
}

func TestProfile_SendsBearerToken(t *testing.T) {
	c, tokens, _, seen := newBackend(t, map[route]reply{
		{http.MethodGet, "/auth/profile"}: ok(`{"fullName":"Nguyễn An","email":"a@b.vn","role":"buyer","phone":"0912345678"}`),
	})
	_ = tokens.SetToken(context.Background(), "tok-1")

	p, err := c.Profile(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Phone != "0912345678" || p.FullName != "Nguyễn An" {
		t.Errorf("profile = %+v", p)
	}
	if seen.get(route{http.MethodGet, "/auth/profile"}).auth != "Bearer tok-1" {
		t.Error("bearer token not sent")
	}
}

func TestUpdateProfile_SendsOnlyGivenFields(t *testing.T) {
	c, _, _, seen := newBackend(t, map[route]reply{
		{http.MethodPatch, "/users/profile"}: ok(`{"fullName":"Trần Bình","phone":"0912345678"}`),
	})
	name := "Trần Bình"

	p, err := c.UpdateProfile(context.Background(), domain.ProfileUpdate{FullName: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FullName != name {
		t.Errorf("profile = %+v", p)
	}
	body := seen.get(route{http.MethodPatch, "/users/profile"}).body
	if _, has := body["phone"]; has || body["fullName"] != name {
		t.Errorf("body = %v", body)
	}
}
