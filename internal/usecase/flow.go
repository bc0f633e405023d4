package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/edumarket/storefront/internal/apiclient"
	"github.com/edumarket/storefront/internal/countdown"
	"github.com/edumarket/storefront/internal/domain"
	applog "github.com/edumarket/storefront/internal/log"
	"github.com/edumarket/storefront/internal/metrics"
)

// AuthAPI is the slice of the marketplace API the identity flows call.
type AuthAPI interface {
	Register(ctx context.Context, reg domain.Registration) (domain.RegistrationStatus, error)
	SendOTP(ctx context.Context, phone string) (domain.OTPDispatch, error)
	VerifyOTP(ctx context.Context, phone, code string) (string, error)
	FinalizeRegister(ctx context.Context, signKey string) error
	ResetPassword(ctx context.Context, signKey, newPassword string) error
	Login(ctx context.Context, email, password string) (domain.Session, error)
	Logout(ctx context.Context) error
	DiscardSession(ctx context.Context)
	Profile(ctx context.Context, redirectOn401 bool) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (*domain.Profile, error)
}

type FlowKind string

const (
	KindRegister       FlowKind = "register"
	KindForgotPassword FlowKind = "forgot-password"
	KindChangePassword FlowKind = "change-password"
)

type State string

const (
	StateCollectingDetails  State = "collecting-details"
	StateOTPPending         State = "otp-pending"
	StateFinalized          State = "finalized"
	StatePhoneEntry         State = "phone-entry"
	StateOTPVerify          State = "otp-verify"
	StateSetPassword        State = "set-password"
	StateDone               State = "done"
	StateCollectNewPassword State = "collect-new-password"
)

func (s State) waitsForOTP() bool {
	return s == StateOTPPending || s == StateOTPVerify
}

// Terminal reports whether no further step is possible.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateDone
}

// Flow is what every identity flow exposes to storage and transport.
type Flow interface {
	FlowID() string
	FlowKind() FlowKind
	CurrentState() State
	Step() *OTPStep
	Close()
	Closed() bool
	describe() FlowView
}

// OTPStep is the OTP-pending part of a flow. The challenge survives
// serialisation; the live countdown, when armed, does not.
type OTPStep struct {
	Challenge *domain.OtpChallenge `json:"challenge,omitempty"`
	timer     *countdown.Countdown
}

// Countdown returns the live countdown, or nil when none is armed.
func (s *OTPStep) Countdown() *countdown.Countdown {
	return s.timer
}

func (s *OTPStep) Remaining(now time.Time) int {
	if s.timer != nil {
		return s.timer.Remaining()
	}
	return s.Challenge.Remaining(now)
}

// signKey binds a verified key to this flow and to the phone the outstanding
// challenge was sent to, which is not necessarily the flow's current phone.
func (s *OTPStep) signKey(flowID, value string) *domain.SignKey {
	key := &domain.SignKey{Value: value, FlowID: flowID}
	if s.Challenge != nil {
		key.Phone = s.Challenge.Phone
	}
	return key
}

func (s *OTPStep) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *OTPStep) discard() {
	s.stopTimer()
	s.Challenge = nil
}

type flowCore struct {
	ID     string  `json:"id"`
	OTP    OTPStep `json:"otp"`
	closed atomic.Bool
}

func (f *flowCore) FlowID() string { return f.ID }
func (f *flowCore) Step() *OTPStep { return &f.OTP }
func (f *flowCore) Closed() bool   { return f.closed.Load() }

// Close tears the flow down. Its countdown stops at once and any response
// still in flight is dropped when it arrives.
func (f *flowCore) Close() {
	f.closed.Store(true)
	f.OTP.stopTimer()
}

// FlowView is the externally visible summary of a flow.
type FlowView struct {
	ID             string   `json:"id"`
	Flow           FlowKind `json:"flow"`
	State          State    `json:"state"`
	Phone          string   `json:"phone,omitempty"`
	ExpiresIn      int      `json:"expires_in"`
	Countdown      string   `json:"countdown,omitempty"`
	ReauthRequired bool     `json:"reauth_required"`
}

type IdentityUsecase struct {
	api       AuthAPI
	logger    *slog.Logger
	now       func() time.Time
	live      bool
	onTick    func(flowID string, remaining int)
	newTicker func() (<-chan time.Time, func())
}

type Option func(*IdentityUsecase)

func WithClock(now func() time.Time) Option {
	return func(u *IdentityUsecase) { u.now = now }
}

// WithLiveCountdown arms a ticking countdown whenever a flow enters an OTP
// state. onTick may be nil.
func WithLiveCountdown(onTick func(flowID string, remaining int)) Option {
	return func(u *IdentityUsecase) {
		u.live = true
		u.onTick = onTick
	}
}

// WithTicker replaces the one-second ticker that drives live countdowns.
func WithTicker(newTicker func() (<-chan time.Time, func())) Option {
	return func(u *IdentityUsecase) { u.newTicker = newTicker }
}

func NewIdentityUsecase(api AuthAPI, logger *slog.Logger, opts ...Option) *IdentityUsecase {
	u := &IdentityUsecase{
		api:    api,
		logger: logger.With("component", "identity"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// View summarises f with the seconds left on its OTP, if any.
func (u *IdentityUsecase) View(f Flow) FlowView {
	v := f.describe()
	if f.CurrentState().waitsForOTP() {
		v.ExpiresIn = f.Step().Remaining(u.now())
		v.Countdown = countdown.Format(v.ExpiresIn)
	}
	return v
}

// guard rejects a step on a closed flow or from the wrong state.
func guard(f Flow, allowed ...State) error {
	if f.Closed() {
		return domain.ErrFlowClosed
	}
	for _, s := range allowed {
		if f.CurrentState() == s {
			return nil
		}
	}
	return domain.ErrInvalidTransition
}

// arm starts a fresh OTP challenge, replacing any previous one.
func (u *IdentityUsecase) arm(ctx context.Context, kind FlowKind, core *flowCore, phone string, d domain.OTPDispatch) {
	core.OTP.discard()
	core.OTP.Challenge = &domain.OtpChallenge{
		Phone:            phone,
		ExpiresInSeconds: d.ExpiresIn,
		IssuedAt:         u.now(),
	}
	metrics.OTPSentTotal.WithLabelValues(string(kind)).Inc()

	if !u.live {
		return
	}
	timer := countdown.New(d.ExpiresIn)
	id := core.ID
	var onTick func(int)
	if u.onTick != nil {
		onTick = func(left int) { u.onTick(id, left) }
	}
	if u.newTicker != nil {
		ticks, release := u.newTicker()
		timer.Start(ticks, release, onTick)
	} else {
		timer.Run(onTick)
	}
	core.OTP.timer = timer
	u.logger.DebugContext(ctx, "otp countdown armed", "seconds", d.ExpiresIn)
}

// advance moves state to `to`. Leaving an OTP state tears the countdown down.
func (u *IdentityUsecase) advance(ctx context.Context, kind FlowKind, core *flowCore, state *State, to State) {
	from := *state
	*state = to
	if from.waitsForOTP() && !to.waitsForOTP() {
		core.OTP.discard()
	}
	metrics.FlowTransitionsTotal.WithLabelValues(string(kind), string(from), string(to)).Inc()
	u.logger.InfoContext(ctx, "flow transition", "flow", kind, "from", from, "to", to)
}

func (u *IdentityUsecase) fail(ctx context.Context, kind FlowKind, err error) error {
	label := errorKind(err)
	metrics.FlowErrorsTotal.WithLabelValues(string(kind), label).Inc()
	if label == "server" || label == "internal" {
		u.logger.ErrorContext(ctx, "flow step failed", "flow", kind, "kind", label, "error", err)
	} else {
		u.logger.InfoContext(ctx, "flow step rejected", "flow", kind, "kind", label, "error", err)
	}
	return err
}

func flowContext(ctx context.Context, f Flow) context.Context {
	return applog.WithFlowID(ctx, f.FlowID())
}

func errorKind(err error) string {
	var verr *domain.ValidationError
	var apiErr *apiclient.Error
	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrConnection):
		return "connection"
	case errors.Is(err, domain.ErrAccountExists):
		return "account_exists"
	case errors.Is(err, domain.ErrPhoneRequired):
		return "phone_required"
	case errors.Is(err, domain.ErrSignKeyMismatch):
		return "sign_key"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrFlowClosed):
		return "closed"
	case errors.As(err, &apiErr) && apiErr.ServerError():
		return "server"
	case errors.As(err, &apiErr):
		return "rejected"
	default:
		return "internal"
	}
}
