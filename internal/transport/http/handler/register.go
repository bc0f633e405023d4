package handler

import (
	"context"

	"github.com/edumarket/storefront/internal/usecase"
	"github.com/gin-gonic/gin"
)

func newRegisterFlow() *usecase.RegisterFlow { return new(usecase.RegisterFlow) }

// StartRegister creates a registration flow and submits the account details.
func (h *FlowHandler) StartRegister(c *gin.Context) {
	var in usecase.RegistrationInput
	if err := bind(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	f := h.uc.NewRegisterFlow()
	h.start(c, f, h.uc.SubmitRegistration(c.Request.Context(), f, in))
}

func (h *FlowHandler) ViewRegister() gin.HandlerFunc {
	return view(h, usecase.KindRegister, newRegisterFlow)
}

func (h *FlowHandler) VerifyRegister() gin.HandlerFunc {
	return step(h, usecase.KindRegister, newRegisterFlow, func(ctx context.Context, c *gin.Context, f *usecase.RegisterFlow) error {
		var in usecase.CodeInput
		if err := bind(c, &in); err != nil {
			return err
		}
		return h.uc.VerifyRegistration(ctx, f, in)
	})
}

func (h *FlowHandler) ResendRegister() gin.HandlerFunc {
	return step(h, usecase.KindRegister, newRegisterFlow, func(ctx context.Context, _ *gin.Context, f *usecase.RegisterFlow) error {
		return h.uc.ResendRegistrationOTP(ctx, f)
	})
}
