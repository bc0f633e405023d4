package domain

import (
	"errors"
	"time"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConnection        = errors.New("connection error")
	ErrAccountExists     = errors.New("account already exists")
	ErrPhoneRequired     = errors.New("phone number required")
	ErrSignKeyMismatch   = errors.New("sign key was not issued for this flow")
	ErrInvalidTransition = errors.New("step not allowed in current state")
	ErrFlowClosed        = errors.New("flow closed")
	ErrFlowNotFound      = errors.New("flow not found or expired")
	ErrFlowBusy          = errors.New("previous step still in progress")
)

// DefaultOTPExpiry is used when the OTP send response carries no expiresIn.
const DefaultOTPExpiry = 180

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleVendor Role = "vendor"
)

type Credential struct {
	FullName string
	Email    string
	Phone    string
	Password string
	Role     Role
}

// OtpChallenge is the client-side view of an issued OTP. The server owns
// the real expiry; this only feeds the countdown.
type OtpChallenge struct {
	Phone            string    `json:"phone"`
	ExpiresInSeconds int       `json:"expires_in_seconds"`
	IssuedAt         time.Time `json:"issued_at"`
}

// Remaining returns whole seconds left at now, clamped at zero.
func (c *OtpChallenge) Remaining(now time.Time) int {
	if c == nil {
		return 0
	}
	left := c.ExpiresInSeconds - int(now.Sub(c.IssuedAt)/time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// SignKey proves one OTP verification. It is bound to the flow and phone
// it was obtained for and must be spent on a single privileged action.
type SignKey struct {
	Value  string `json:"value"`
	Phone  string `json:"phone"`
	FlowID string `json:"flow_id"`
}

func (k *SignKey) AuthorizeFor(flowID, phone string) error {
	if k == nil || k.Value == "" {
		return ErrSignKeyMismatch
	}
	if k.FlowID != flowID || k.Phone != NormalizePhone(phone) {
		return ErrSignKeyMismatch
	}
	return nil
}

type Session struct {
	AccessToken string
	Role        Role
	ExpiresAt   time.Time
}

type Profile struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Phone    string `json:"phone"`
}

type ProfileUpdate struct {
	FullName *string `json:"fullName,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// Registration is the initiate-registration payload.
type Registration struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type RegistrationStatus struct {
	Verified bool `json:"verified"`
}

type OTPDispatch struct {
	ExpiresIn int `json:"expiresIn"`
}
