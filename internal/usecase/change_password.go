package usecase

import (
	"context"
	"fmt"

	"github.com/edumarket/storefront/internal/domain"
	"github.com/google/uuid"
)

// ChangePasswordFlow is collect-new-password → otp-verify → done for a
// signed-in user. The OTP goes to the phone on the user's profile.
type ChangePasswordFlow struct {
	flowCore
	State State  `json:"state"`
	Phone string `json:"phone"`
	// NewPassword is held between the password and code steps only.
	NewPassword    string `json:"new_password,omitempty"`
	ReauthRequired bool   `json:"reauth_required"`
	// Owner identifies the session that started the flow.
	Owner string `json:"owner,omitempty"`
}

func (f *ChangePasswordFlow) FlowKind() FlowKind  { return KindChangePassword }
func (f *ChangePasswordFlow) CurrentState() State { return f.State }

// OwnedBy reports whether owner started this flow. A flow with no recorded
// owner belongs to nobody.
func (f *ChangePasswordFlow) OwnedBy(owner string) bool {
	return f.Owner != "" && f.Owner == owner
}

func (f *ChangePasswordFlow) describe() FlowView {
	return FlowView{
		ID:             f.ID,
		Flow:           KindChangePassword,
		State:          f.State,
		Phone:          f.Phone,
		ReauthRequired: f.ReauthRequired,
	}
}

// NewChangePasswordFlow looks up the signed-in user's phone. Without a valid
// one it fails with domain.ErrPhoneRequired.
func (u *IdentityUsecase) NewChangePasswordFlow(ctx context.Context) (*ChangePasswordFlow, error) {
	profile, err := u.api.Profile(ctx, true)
	if err != nil {
		return nil, u.fail(ctx, KindChangePassword, fmt.Errorf("load profile: %w", err))
	}
	phone := domain.NormalizePhone(profile.Phone)
	if !domain.ValidPhone(phone) {
		return nil, u.fail(ctx, KindChangePassword, domain.ErrPhoneRequired)
	}

	f := &ChangePasswordFlow{State: StateCollectNewPassword, Phone: phone}
	f.ID = uuid.NewString()
	return f, nil
}

func (u *IdentityUsecase) SubmitChangePassword(ctx context.Context, f *ChangePasswordFlow, in PasswordInput) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StateCollectNewPassword); err != nil {
		return u.fail(ctx, KindChangePassword, err)
	}
	if err := check(in); err != nil {
		return u.fail(ctx, KindChangePassword, err)
	}
	if f.Phone == "" {
		return u.fail(ctx, KindChangePassword, domain.ErrPhoneRequired)
	}

	d, err := u.api.SendOTP(ctx, f.Phone)
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	if err != nil {
		return u.fail(ctx, KindChangePassword, err)
	}

	f.NewPassword = in.Password
	u.arm(ctx, KindChangePassword, &f.flowCore, f.Phone, d)
	u.advance(ctx, KindChangePassword, &f.flowCore, &f.State, StateOTPVerify)
	return nil
}

// VerifyChangeCode verifies the code and resets the password in one step.
// The session is discarded afterwards; no token refresh is attempted.
func (u *IdentityUsecase) VerifyChangeCode(ctx context.Context, f *ChangePasswordFlow, in CodeInput) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StateOTPVerify); err != nil {
		return u.fail(ctx, KindChangePassword, err)
	}
	in.normalize()
	if err := check(in); err != nil {
		return u.fail(ctx, KindChangePassword, err)
	}

	value, err := u.api.VerifyOTP(ctx, f.Phone, in.Code)
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	if err != nil {
		return u.fail(ctx, KindChangePassword, err)
	}

	key := f.OTP.signKey(f.ID, value)
	if err := key.AuthorizeFor(f.ID, f.Phone); err != nil {
		return u.fail(ctx, KindChangePassword, err)
	}
	err = u.api.ResetPassword(ctx, key.Value, f.NewPassword)
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	if err != nil {
		return u.fail(ctx, KindChangePassword, err)
	}

	f.NewPassword = ""
	f.ReauthRequired = true
	u.api.DiscardSession(ctx)
	u.advance(ctx, KindChangePassword, &f.flowCore, &f.State, StateDone)
	return nil
}

func (u *IdentityUsecase) ResendChangeOTP(ctx context.Context, f *ChangePasswordFlow) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StateOTPVerify); err != nil {
		return u.fail(ctx, KindChangePassword, err)
	}
	return u.resend(ctx, KindChangePassword, f, &f.flowCore, f.Phone)
}

// BackToNewPassword abandons the outstanding OTP and the pending password.
func (u *IdentityUsecase) BackToNewPassword(ctx context.Context, f *ChangePasswordFlow) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StateOTPVerify); err != nil {
		return u.fail(ctx, KindChangePassword, err)
	}
	f.NewPassword = ""
	f.OTP.discard()
	u.advance(ctx, KindChangePassword, &f.flowCore, &f.State, StateCollectNewPassword)
	return nil
}
