package usecase

import (
	"context"
	"errors"

	"github.com/edumarket/storefront/internal/domain"
	"github.com/google/uuid"
)

// ForgotPasswordFlow is phone-entry → otp-verify → set-password → done.
// Each step needs what the previous one produced, so none can be skipped.
type ForgotPasswordFlow struct {
	flowCore
	State          State           `json:"state"`
	Phone          string          `json:"phone,omitempty"`
	SignKey        *domain.SignKey `json:"sign_key,omitempty"`
	ReauthRequired bool            `json:"reauth_required"`
}

func (f *ForgotPasswordFlow) FlowKind() FlowKind  { return KindForgotPassword }
func (f *ForgotPasswordFlow) CurrentState() State { return f.State }

func (f *ForgotPasswordFlow) describe() FlowView {
	return FlowView{
		ID:             f.ID,
		Flow:           KindForgotPassword,
		State:          f.State,
		Phone:          f.Phone,
		ReauthRequired: f.ReauthRequired,
	}
}

func (u *IdentityUsecase) NewForgotPasswordFlow() *ForgotPasswordFlow {
	f := &ForgotPasswordFlow{State: StatePhoneEntry}
	f.ID = uuid.NewString()
	return f
}

func (u *IdentityUsecase) SubmitResetPhone(ctx context.Context, f *ForgotPasswordFlow, in PhoneInput) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StatePhoneEntry); err != nil {
		return u.fail(ctx, KindForgotPassword, err)
	}
	in.normalize()
	if err := check(in); err != nil {
		return u.fail(ctx, KindForgotPassword, err)
	}

	d, err := u.api.SendOTP(ctx, in.Phone)
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	if err != nil {
		return u.fail(ctx, KindForgotPassword, err)
	}

	f.Phone = in.Phone
	u.arm(ctx, KindForgotPassword, &f.flowCore, f.Phone, d)
	u.advance(ctx, KindForgotPassword, &f.flowCore, &f.State, StateOTPVerify)
	return nil
}

// VerifyResetCode obtains the sign key the reset will spend.
func (u *IdentityUsecase) VerifyResetCode(ctx context.Context, f *ForgotPasswordFlow, in CodeInput) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StateOTPVerify); err != nil {
		return u.fail(ctx, KindForgotPassword, err)
	}
	in.normalize()
	if err := check(in); err != nil {
		return u.fail(ctx, KindForgotPassword, err)
	}

	value, err := u.api.VerifyOTP(ctx, f.Phone, in.Code)
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	if err != nil {
		return u.fail(ctx, KindForgotPassword, err)
	}

	f.SignKey = f.OTP.signKey(f.ID, value)
	u.advance(ctx, KindForgotPassword, &f.flowCore, &f.State, StateSetPassword)
	return nil
}

// SubmitResetPassword spends the sign key. Once the API has answered the
// key is gone, so a rejected reset means going back for a new code.
func (u *IdentityUsecase) SubmitResetPassword(ctx context.Context, f *ForgotPasswordFlow, in PasswordInput) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StateSetPassword); err != nil {
		return u.fail(ctx, KindForgotPassword, err)
	}
	if err := check(in); err != nil {
		return u.fail(ctx, KindForgotPassword, err)
	}
	if err := f.SignKey.AuthorizeFor(f.ID, f.Phone); err != nil {
		return u.fail(ctx, KindForgotPassword, err)
	}

	err := u.api.ResetPassword(ctx, f.SignKey.Value, in.Password)
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	if err != nil {
		if !errors.Is(err, domain.ErrConnection) {
			f.SignKey = nil
		}
		return u.fail(ctx, KindForgotPassword, err)
	}

	f.SignKey = nil
	f.ReauthRequired = true
	u.api.DiscardSession(ctx)
	u.advance(ctx, KindForgotPassword, &f.flowCore, &f.State, StateDone)
	return nil
}

func (u *IdentityUsecase) ResendResetOTP(ctx context.Context, f *ForgotPasswordFlow) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StateOTPVerify); err != nil {
		return u.fail(ctx, KindForgotPassword, err)
	}
	return u.resend(ctx, KindForgotPassword, f, &f.flowCore, f.Phone)
}

// BackToPhoneEntry abandons the outstanding OTP and any sign key.
func (u *IdentityUsecase) BackToPhoneEntry(ctx context.Context, f *ForgotPasswordFlow) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StateOTPVerify, StateSetPassword); err != nil {
		return u.fail(ctx, KindForgotPassword, err)
	}
	f.SignKey = nil
	f.OTP.discard()
	u.advance(ctx, KindForgotPassword, &f.flowCore, &f.State, StatePhoneEntry)
	return nil
}
