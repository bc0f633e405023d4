package session

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var errNoJar = errors.New("no cookie jar in context")

type CookieConfig struct {
	Name        string
	RefreshName string
	Secure      bool
	Domain      string
}

// CookieStore keeps the access token in an HttpOnly cookie on the browser.
// It reads and writes through the Jar attached to the request context.
type CookieStore struct {
	cfg CookieConfig
	now func() time.Time
}

func NewCookieStore(cfg CookieConfig) *CookieStore {
	if cfg.Name == "" {
		cfg.Name = "accessToken"
	}
	return &CookieStore{cfg: cfg, now: time.Now}
}

func (s *CookieStore) Token(ctx context.Context) string {
	jar := JarFrom(ctx)
	if jar == nil {
		return ""
	}
	return jar.cookie(s.cfg.Name)
}

// SetToken writes the cookie. A JWT's exp claim becomes the cookie expiry;
// anything else is stored as a session cookie.
func (s *CookieStore) SetToken(ctx context.Context, token string) error {
	jar := JarFrom(ctx)
	if jar == nil {
		return errNoJar
	}

	c := s.cookie(s.cfg.Name, token)
	if claims, err := ParseClaims(token); err == nil && !claims.ExpiresAt.IsZero() {
		c.Expires = claims.ExpiresAt
		if maxAge := int(claims.ExpiresAt.Sub(s.now()) / time.Second); maxAge > 0 {
			c.MaxAge = maxAge
		}
	}
	jar.set(c, token)
	return nil
}

// ClearTokens expires both the access and refresh cookies.
func (s *CookieStore) ClearTokens(ctx context.Context) {
	jar := JarFrom(ctx)
	if jar == nil {
		return
	}

	access := s.cookie(s.cfg.Name, "")
	access.MaxAge = -1
	jar.set(access, "")

	if s.cfg.RefreshName != "" {
		refresh := s.cookie(s.cfg.RefreshName, "")
		refresh.MaxAge = -1
		jar.expire(refresh)
	}
}

func (s *CookieStore) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.cfg.Domain,
		Secure:   s.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
