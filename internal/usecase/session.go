package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/edumarket/storefront/internal/domain"
)

func (u *IdentityUsecase) Login(ctx context.Context, in LoginInput) (domain.Session, error) {
	if err := check(in); err != nil {
		return domain.Session{}, err
	}
	s, err := u.api.Login(ctx, in.Email, in.Password)
	if err != nil {
		return domain.Session{}, err
	}
	u.logger.InfoContext(ctx, "signed in", "role", s.Role)
	return s, nil
}

// Logout ends the session upstream. The local token is gone either way.
func (u *IdentityUsecase) Logout(ctx context.Context) error {
	if err := u.api.Logout(ctx); err != nil {
		u.logger.WarnContext(ctx, "upstream logout failed", "error", err)
		return err
	}
	return nil
}

// CurrentUser checks the session without redirecting. A signed-out user
// yields a nil profile and no error.
func (u *IdentityUsecase) CurrentUser(ctx context.Context) (*domain.Profile, error) {
	p, err := u.api.Profile(ctx, false)
	if errors.Is(err, domain.ErrUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (u *IdentityUsecase) UpdateProfile(ctx context.Context, in ProfileInput) (*domain.Profile, error) {
	in.normalize()
	if in.FullName == nil && in.Phone == nil {
		return nil, domain.NewValidationError("profile", "Nothing to update")
	}
	if err := check(in); err != nil {
		return nil, err
	}

	p, err := u.api.UpdateProfile(ctx, domain.ProfileUpdate{FullName: in.FullName, Phone: in.Phone})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}
