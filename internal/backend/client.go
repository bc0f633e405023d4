// Package backend wraps the marketplace identity endpoints in typed calls.
// All traffic goes through apiclient, so envelope handling, 401 eviction and
// token ownership stay in one place.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/edumarket/storefront/internal/apiclient"
	"github.com/edumarket/storefront/internal/domain"
	"github.com/edumarket/storefront/internal/session"
)

const (
	pathRegister         = "/auth/register"
	pathVerifyOTP        = "/auth/verify_otp"
	pathFinalizeRegister = "/auth/finalize_register"
	pathResetPassword    = "/auth/reset_password"
	pathLogin            = "/auth/login"
	pathLogout           = "/auth/logout"
	pathProfile          = "/auth/profile"
	pathUpdateProfile    = "/users/profile"
)

var errMissingSignKey = errors.New("verification succeeded without a sign key")

type Client struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// Register initiates registration. Verified reports an account that already
// completed verification.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.RegistrationStatus, error) {
	status, err := apiclient.Fetch[domain.RegistrationStatus](ctx, c.api, apiclient.Request{
		Method:   http.MethodPost,
		Endpoint: pathRegister,
		Body:     reg,
	})
	if err != nil {
		return domain.RegistrationStatus{}, fmt.Errorf("register: %w", err)
	}
	return status, nil
}

// SendOTP asks the API to text a code to phone.
func (c *Client) SendOTP(ctx context.Context, phone string) (domain.OTPDispatch, error) {
	d, err := apiclient.Fetch[domain.OTPDispatch](ctx, c.api, apiclient.Request{
		Method:   http.MethodPost,
		Endpoint: pathVerifyOTP,
		Body:     map[string]string{"phone": phone},
	})
	if err != nil {
		return domain.OTPDispatch{}, fmt.Errorf("send otp: %w", err)
	}
	if d.ExpiresIn <= 0 {
		d.ExpiresIn = domain.DefaultOTPExpiry
	}
	return d, nil
}

// VerifyOTP exchanges a code for a sign key.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (string, error) {
	out, err := apiclient.Fetch[struct {
		SignKey string `json:"sign_key"`
	}](ctx, c.api, apiclient.Request{
		Endpoint: pathVerifyOTP,
		Query:    url.Values{"phone": {phone}, "code": {code}},
	})
	if err != nil {
		return "", fmt.Errorf("verify otp: %w", err)
	}
	if out.SignKey == "" {
		return "", errMissingSignKey
	}
	return out.SignKey, nil
}

func (c *Client) FinalizeRegister(ctx context.Context, signKey string) error {
	err := c.api.Do(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Endpoint: pathFinalizeRegister,
		Body:     map[string]string{"sign_key": signKey},
	}, nil)
	if err != nil {
		return fmt.Errorf("finalize register: %w", err)
	}
	return nil
}

func (c *Client) ResetPassword(ctx context.Context, signKey, newPassword string) error {
	err := c.api.Do(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Endpoint: pathResetPassword,
		Body:     map[string]string{"sign_key": signKey, "new_password": newPassword},
	}, nil)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		Role domain.Role `json:"role"`
	} `json:"user"`
}

// Login authenticates and hands the access token to the client's store.
func (c *Client) Login(ctx context.Context, email, password string) (domain.Session, error) {
	out, err := apiclient.Fetch[loginResponse](ctx, c.api, apiclient.Request{
		Method:   http.MethodPost,
		Endpoint: pathLogin,
		Body:     map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}
	if err := c.api.StartSession(ctx, out.AccessToken); err != nil {
		return domain.Session{}, fmt.Errorf("start session: %w", err)
	}

	s := domain.Session{AccessToken: out.AccessToken, Role: out.User.Role}
	if claims, err := session.ParseClaims(out.AccessToken); err == nil {
		s.ExpiresAt = claims.ExpiresAt
		if s.Role == "" {
			s.Role = claims.Role
		}
	}
	return s, nil
}

// Logout invalidates the session upstream. The local token is evicted even
// when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.api.EndSession(ctx)

	err := c.api.Do(ctx, apiclient.Request{
		Method:           http.MethodPost,
		Endpoint:         pathLogout,
		SuppressRedirect: true,
	}, nil)
	if err != nil && !errors.Is(err, domain.ErrUnauthorized) {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// DiscardSession drops the local token only.
func (c *Client) DiscardSession(ctx context.Context) {
	c.api.EndSession(ctx)
}

func (c *Client) Profile(ctx context.Context, redirectOn401 bool) (*domain.Profile, error) {
	p, err := apiclient.Fetch[domain.Profile](ctx, c.api, apiclient.Request{
		Endpoint:         pathProfile,
		SuppressRedirect: !redirectOn401,
	})
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (*domain.Profile, error) {
	p, err := apiclient.Fetch[domain.Profile](ctx, c.api, apiclient.Request{
		Method:   http.MethodPatch,
		Endpoint: pathUpdateProfile,
		Body:     upd,
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &p, nil
}

// Ping checks the API is reachable within a short deadline.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return c.api.Ping(ctx)
}
