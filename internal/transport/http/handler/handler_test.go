package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edumarket/storefront/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	return doJSONAs(r, "", method, path, body)
}

// doJSONAs sends the request with token as the access token cookie.
func doJSONAs(r http.Handler, token, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	}
	r.ServeHTTP(w, req)
	return w
}

func makeJWT(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": subject, "exp": time.Now().Add(time.Hour).Unix()}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-key-the-gateway-never-checks"))
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return s
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return m
}

// fakeAuthAPI stands in for the marketplace API behind the usecase.
type fakeAuthAPI struct {
	register      func(ctx context.Context, reg domain.Registration) (domain.RegistrationStatus, error)
	sendOTP       func(ctx context.Context, phone string) (domain.OTPDispatch, error)
	verifyOTP     func(ctx context.Context, phone, code string) (string, error)
	resetPassword func(ctx context.Context, signKey, newPassword string) error
	profile       func(ctx context.Context, redirectOn401 bool) (*domain.Profile, error)
}

func (f *fakeAuthAPI) Register(ctx context.Context, reg domain.Registration) (domain.RegistrationStatus, error) {
	return f.register(ctx, reg)
}

func (f *fakeAuthAPI) SendOTP(ctx context.Context, phone string) (domain.OTPDispatch, error) {
	if f.sendOTP == nil {
		return domain.OTPDispatch{ExpiresIn: 180}, nil
	}
	return f.sendOTP(ctx, phone)
}

func (f *fakeAuthAPI) VerifyOTP(ctx context.Context, phone, code string) (string, error) {
	return f.verifyOTP(ctx, phone, code)
}

func (f *fakeAuthAPI) FinalizeRegister(context.Context, string) error { return nil }

func (f *fakeAuthAPI) ResetPassword(ctx context.Context, signKey, newPassword string) error {
	return f.resetPassword(ctx, signKey, newPassword)
}

func (f *fakeAuthAPI) Login(context.Context, string, string) (domain.Session, error) {
	return domain.Session{}, nil
}

func (f *fakeAuthAPI) Logout(context.Context) error { return nil }

func (f *fakeAuthAPI) DiscardSession(context.Context) {}

func (f *fakeAuthAPI) Profile(ctx context.Context, redirectOn401 bool) (*domain.Profile, error) {
	return f.profile(ctx, redirectOn401)
}

func (f *fakeAuthAPI) UpdateProfile(context.Context, domain.ProfileUpdate) (*domain.Profile, error) {
	return nil, nil
}
