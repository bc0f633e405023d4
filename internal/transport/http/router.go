package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/edumarket/storefront/internal/requestid"
	"github.com/edumarket/storefront/internal/transport/http/handler"
	"github.com/edumarket/storefront/internal/transport/http/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
)

type RouterConfig struct {
	AllowedOrigins []string
	CookieName     string
	LoginPath      string
	// HSTS is enabled when the gateway is served over TLS.
	HSTS bool
}

func NewRouter(logger *slog.Logger, cfg RouterConfig, limiter *middleware.RateLimiter, sessions *handler.SessionHandler, flows *handler.FlowHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(cfg.HSTS))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", requestid.Header},
		ExposeHeaders:    []string{requestid.Header, "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.Session())

	otp := limiter.Handler()
	signedIn := middleware.RequireSession(cfg.CookieName, cfg.LoginPath)

	auth := r.Group("/auth")
	auth.POST("/login", sessions.Login)
	auth.POST("/logout", sessions.Logout)
	auth.GET("/me", sessions.Me)

	r.PATCH("/users/profile", signedIn, sessions.UpdateProfile)

	reg := r.Group("/flows/register")
	reg.POST("", otp, flows.StartRegister)
	reg.GET("/:id", flows.ViewRegister())
	reg.POST("/:id/code", flows.VerifyRegister())
	reg.POST("/:id/resend", otp, flows.ResendRegister())

	forgot := r.Group("/flows/forgot-password")
	forgot.POST("", otp, flows.StartForgotPassword)
	forgot.GET("/:id", flows.ViewForgotPassword())
	forgot.POST("/:id/phone", otp, flows.SubmitResetPhone())
	forgot.POST("/:id/code", flows.VerifyResetCode())
	forgot.POST("/:id/password", flows.SubmitResetPassword())
	forgot.POST("/:id/back", flows.BackToPhoneEntry())
	forgot.POST("/:id/resend", otp, flows.ResendResetOTP())

	change := r.Group("/flows/change-password", signedIn)
	change.POST("", otp, flows.StartChangePassword)
	change.GET("/:id", flows.ViewChangePassword())
	change.POST("/:id/password", otp, flows.SubmitChangePassword())
	change.POST("/:id/code", flows.VerifyChangeCode())
	change.POST("/:id/back", flows.BackToNewPassword())
	change.POST("/:id/resend", otp, flows.ResendChangeOTP())

	return r
}
