package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/edumarket/storefront/internal/domain"
	"github.com/edumarket/storefront/internal/usecase"
	"github.com/gin-gonic/gin"
)

type sessionUsecaser interface {
	Login(ctx context.Context, in usecase.LoginInput) (domain.Session, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, in usecase.ProfileInput) (*domain.Profile, error)
}

type SessionHandler struct {
	uc     sessionUsecaser
	logger *slog.Logger
}

func NewSessionHandler(uc sessionUsecaser, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{uc: uc, logger: logger.With("component", "session_handler")}
}

type loginResponse struct {
	Role      domain.Role `json:"role"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// Login signs the user in. The access token goes into an HttpOnly cookie
// and never appears in the body.
func (h *SessionHandler) Login(c *gin.Context) {
	var in usecase.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}

	s, err := h.uc.Login(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := loginResponse{Role: s.Role}
	if !s.ExpiresAt.IsZero() {
		resp.ExpiresAt = &s.ExpiresAt
	}
	c.JSON(http.StatusOK, resp)
}

// Logout always clears the cookies. An upstream failure is logged, not
// reported: the user is signed out here either way.
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.uc.Logout(c.Request.Context()); err != nil {
		h.logger.WarnContext(c.Request.Context(), "logout not confirmed upstream", "error", err)
	}
	c.Status(http.StatusNoContent)
}

// Me is the navbar's silent session check. A signed-out user gets {"user": null}.
func (h *SessionHandler) Me(c *gin.Context) {
	p, err := h.uc.CurrentUser(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": p})
}

func (h *SessionHandler) UpdateProfile(c *gin.Context) {
	var in usecase.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}

	p, err := h.uc.UpdateProfile(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": p})
}
