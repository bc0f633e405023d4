package handler

import (
	"context"

	"github.com/edumarket/storefront/internal/session"
	"github.com/edumarket/storefront/internal/usecase"
	"github.com/gin-gonic/gin"
)

func newChangePasswordFlow() *usecase.ChangePasswordFlow { return new(usecase.ChangePasswordFlow) }

// StartChangePassword looks up the signed-in user's phone, then submits the
// new password and sends the OTP. A missing phone answers 422 and no flow
// is stored. The flow is bound to the session owner RequireSession set;
// other sessions get 404 for it.
func (h *FlowHandler) StartChangePassword(c *gin.Context) {
	var in usecase.PasswordInput
	if err := bind(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	ctx := c.Request.Context()
	f, err := h.uc.NewChangePasswordFlow(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	f.Owner = c.GetString(session.OwnerKey)
	h.start(c, f, h.uc.SubmitChangePassword(ctx, f, in))
}

func (h *FlowHandler) ViewChangePassword() gin.HandlerFunc {
	return view(h, usecase.KindChangePassword, newChangePasswordFlow)
}

// SubmitChangePassword is used after going back to password entry.
func (h *FlowHandler) SubmitChangePassword() gin.HandlerFunc {
	return step(h, usecase.KindChangePassword, newChangePasswordFlow, func(ctx context.Context, c *gin.Context, f *usecase.ChangePasswordFlow) error {
		var in usecase.PasswordInput
		if err := bind(c, &in); err != nil {
			return err
		}
		return h.uc.SubmitChangePassword(ctx, f, in)
	})
}

func (h *FlowHandler) VerifyChangeCode() gin.HandlerFunc {
	return step(h, usecase.KindChangePassword, newChangePasswordFlow, func(ctx context.Context, c *gin.Context, f *usecase.ChangePasswordFlow) error {
		var in usecase.CodeInput
		if err := bind(c, &in); err != nil {
			return err
		}
		return h.uc.VerifyChangeCode(ctx, f, in)
	})
}

func (h *FlowHandler) BackToNewPassword() gin.HandlerFunc {
	return step(h, usecase.KindChangePassword, newChangePasswordFlow, func(ctx context.Context, _ *gin.Context, f *usecase.ChangePasswordFlow) error {
		return h.uc.BackToNewPassword(ctx, f)
	})
}

func (h *FlowHandler) ResendChangeOTP() gin.HandlerFunc {
	return step(h, usecase.KindChangePassword, newChangePasswordFlow, func(ctx context.Context, _ *gin.Context, f *usecase.ChangePasswordFlow) error {
		return h.uc.ResendChangeOTP(ctx, f)
	})
}
