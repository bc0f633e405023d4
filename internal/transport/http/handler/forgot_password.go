package handler

import (
	"context"

	"github.com/edumarket/storefront/internal/usecase"
	"github.com/gin-gonic/gin"
)

func newForgotPasswordFlow() *usecase.ForgotPasswordFlow { return new(usecase.ForgotPasswordFlow) }

// StartForgotPassword creates a reset flow and sends the first OTP.
func (h *FlowHandler) StartForgotPassword(c *gin.Context) {
	var in usecase.PhoneInput
	if err := bind(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	f := h.uc.NewForgotPasswordFlow()
	h.start(c, f, h.uc.SubmitResetPhone(c.Request.Context(), f, in))
}

func (h *FlowHandler) ViewForgotPassword() gin.HandlerFunc {
	return view(h, usecase.KindForgotPassword, newForgotPasswordFlow)
}

// SubmitResetPhone is used after going back to phone entry.
func (h *FlowHandler) SubmitResetPhone() gin.HandlerFunc {
	return step(h, usecase.KindForgotPassword, newForgotPasswordFlow, func(ctx context.Context, c *gin.Context, f *usecase.ForgotPasswordFlow) error {
		var in usecase.PhoneInput
		if err := bind(c, &in); err != nil {
			return err
		}
		return h.uc.SubmitResetPhone(ctx, f, in)
	})
}

func (h *FlowHandler) VerifyResetCode() gin.HandlerFunc {
	return step(h, usecase.KindForgotPassword, newForgotPasswordFlow, func(ctx context.Context, c *gin.Context, f *usecase.ForgotPasswordFlow) error {
		var in usecase.CodeInput
		if err := bind(c, &in); err != nil {
			return err
		}
		return h.uc.VerifyResetCode(ctx, f, in)
	})
}

func (h *FlowHandler) SubmitResetPassword() gin.HandlerFunc {
	return step(h, usecase.KindForgotPassword, newForgotPasswordFlow, func(ctx context.Context, c *gin.Context, f *usecase.ForgotPasswordFlow) error {
		var in usecase.PasswordInput
		if err := bind(c, &in); err != nil {
			return err
		}
		return h.uc.SubmitResetPassword(ctx, f, in)
	})
}

func (h *FlowHandler) BackToPhoneEntry() gin.HandlerFunc {
	return step(h, usecase.KindForgotPassword, newForgotPasswordFlow, func(ctx context.Context, _ *gin.Context, f *usecase.ForgotPasswordFlow) error {
		return h.uc.BackToPhoneEntry(ctx, f)
	})
}

func (h *FlowHandler) ResendResetOTP() gin.HandlerFunc {
	return step(h, usecase.KindForgotPassword, newForgotPasswordFlow, func(ctx context.Context, _ *gin.Context, f *usecase.ForgotPasswordFlow) error {
		return h.uc.ResendResetOTP(ctx, f)
	})
}
