package usecase

import (
	"context"

	"github.com/edumarket/storefront/internal/domain"
	"github.com/google/uuid"
)

// RegisterFlow is collecting-details → otp-pending → finalized. The
// password is sent once with the initiate call and never retained.
type RegisterFlow struct {
	flowCore
	State    State       `json:"state"`
	FullName string      `json:"full_name,omitempty"`
	Email    string      `json:"email,omitempty"`
	Phone    string      `json:"phone,omitempty"`
	Role     domain.Role `json:"role,omitempty"`
}

func (f *RegisterFlow) FlowKind() FlowKind  { return KindRegister }
func (f *RegisterFlow) CurrentState() State { return f.State }

func (f *RegisterFlow) describe() FlowView {
	return FlowView{ID: f.ID, Flow: KindRegister, State: f.State, Phone: f.Phone}
}

func (u *IdentityUsecase) NewRegisterFlow() *RegisterFlow {
	f := &RegisterFlow{State: StateCollectingDetails}
	f.ID = uuid.NewString()
	return f
}

// SubmitRegistration initiates the account and sends the first OTP. An
// already verified account fails with domain.ErrAccountExists and no OTP
// is requested.
func (u *IdentityUsecase) SubmitRegistration(ctx context.Context, f *RegisterFlow, in RegistrationInput) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StateCollectingDetails); err != nil {
		return u.fail(ctx, KindRegister, err)
	}
	in.normalize()
	if err := check(in); err != nil {
		return u.fail(ctx, KindRegister, err)
	}

	status, err := u.api.Register(ctx, domain.Registration{
		Email:    in.Email,
		Phone:    in.Phone,
		Password: in.Password,
	})
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	if err != nil {
		return u.fail(ctx, KindRegister, err)
	}
	if status.Verified {
		return u.fail(ctx, KindRegister, domain.ErrAccountExists)
	}

	d, err := u.api.SendOTP(ctx, in.Phone)
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	if err != nil {
		return u.fail(ctx, KindRegister, err)
	}

	f.FullName, f.Email, f.Phone, f.Role = in.FullName, in.Email, in.Phone, in.Role
	if f.Role == "" {
		f.Role = domain.RoleBuyer
	}
	u.arm(ctx, KindRegister, &f.flowCore, f.Phone, d)
	u.advance(ctx, KindRegister, &f.flowCore, &f.State, StateOTPPending)
	return nil
}

// VerifyRegistration trades the code for a sign key and spends it on
// finalize. Failure leaves the flow waiting for another code.
func (u *IdentityUsecase) VerifyRegistration(ctx context.Context, f *RegisterFlow, in CodeInput) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StateOTPPending); err != nil {
		return u.fail(ctx, KindRegister, err)
	}
	in.normalize()
	if err := check(in); err != nil {
		return u.fail(ctx, KindRegister, err)
	}

	value, err := u.api.VerifyOTP(ctx, f.Phone, in.Code)
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	if err != nil {
		return u.fail(ctx, KindRegister, err)
	}

	key := f.OTP.signKey(f.ID, value)
	if err := key.AuthorizeFor(f.ID, f.Phone); err != nil {
		return u.fail(ctx, KindRegister, err)
	}
	err = u.api.FinalizeRegister(ctx, key.Value)
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	if err != nil {
		return u.fail(ctx, KindRegister, err)
	}

	u.advance(ctx, KindRegister, &f.flowCore, &f.State, StateFinalized)
	return nil
}

// ResendRegistrationOTP requests a new code and restarts the countdown.
func (u *IdentityUsecase) ResendRegistrationOTP(ctx context.Context, f *RegisterFlow) error {
	ctx = flowContext(ctx, f)
	if err := guard(f, StateOTPPending); err != nil {
		return u.fail(ctx, KindRegister, err)
	}
	return u.resend(ctx, KindRegister, f, &f.flowCore, f.Phone)
}

func (u *IdentityUsecase) resend(ctx context.Context, kind FlowKind, f Flow, core *flowCore, phone string) error {
	d, err := u.api.SendOTP(ctx, phone)
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	if err != nil {
		return u.fail(ctx, kind, err)
	}
	u.arm(ctx, kind, core, phone, d)
	u.logger.InfoContext(ctx, "otp resent", "flow", kind)
	return nil
}
