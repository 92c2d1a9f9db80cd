// Package app wires the HTTP surface of the auth service
package app

import (
	"context"
	"strings"
	"time"

	"jobber/auth-api/app/auth"
	"jobber/auth-api/app/root"
	"jobber/auth-api/app/search"
	"jobber/auth-api/internal"
	"jobber/auth-api/pkg/middleware"

	cache "github.com/chenyahui/gin-cache"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewRouter builds the gin engine. ctx bounds the background work some
// middleware starts.
func NewRouter(ctx context.Context, d *internal.Deps) *gin.Engine {
	router := gin.New()

	origins := strings.Split(strings.Join(viper.GetStringSlice("host.cors"), ","), ",")

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.URL.Path == "/api/v1/auth-health"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
		ginzap.RecoveryWithZap(zap.L(), true),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	rateLimit := viper.GetInt("security.rate_limit")

	jwt := middleware.NewJWTMiddleware(d.Sessions)
	bodyLimit := middleware.BodySizeLimiter(viper.GetInt64("upload.max_size"))
	rateLimiter := middleware.RateLimiterMiddleware(ctx, middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
	})

	handle := func(h func(*gin.Context, *internal.Deps)) gin.HandlerFunc {
		return func(c *gin.Context) { h(c, d) }
	}

	v1 := router.Group("/api/v1")
	{
		// GET /api/v1/auth-health		-> Used to check if the server is alive
		v1.GET("/auth-health", root.Health)
	}

	public := v1.Group("", rateLimiter, bodyLimit)
	{
		// POST /api/v1/signup			-> Registers a new unverified user
		public.POST("/signup", handle(auth.Signup))

		// POST /api/v1/signin			-> Logs in with a username or an email
		public.POST("/signin", handle(auth.SignIn))

		// PUT /api/v1/verify-email		-> Consumes a verification token
		public.PUT("/verify-email", handle(auth.VerifyEmail))

		// PUT /api/v1/forgot-password		-> Mails a password reset link
		public.PUT("/forgot-password", handle(auth.ForgotPassword))

		// PUT /api/v1/reset-password/:token	-> Sets a new password with a reset token
		public.PUT("/reset-password/:token", handle(auth.ResetPassword))
	}

	session := v1.Group("", jwt, bodyLimit)
	{
		// PUT /api/v1/change-password		-> Sets a new password for the signed in user
		session.PUT("/change-password", handle(auth.ChangePassword))

		// GET /api/v1/currentuser		-> Returns the signed in user
		session.GET("/currentuser", handle(auth.CurrentUser))

		// POST /api/v1/resend-email		-> Mails a fresh verification link
		session.POST("/resend-email", handle(auth.ResendEmail))

		// GET /api/v1/refresh-token/:username	-> Signs a new session token
		session.GET("/refresh-token/:username", handle(auth.RefreshToken))
	}

	// gin allows one wildcard name per path segment, so the single gig route
	// shares :from with the paginated one
	s := v1.Group("/search/gig")
	{
		// GET /api/v1/search/gig/:from/:size/:type	-> One page of matching gigs
		s.GET("/:from/:size/:type", cacheFor(d, 30*time.Second), handle(search.Gigs))

		// GET /api/v1/search/gig/:from		-> A single gig by its ID
		s.GET("/:from", cacheFor(d, 5*time.Minute), handle(search.GigByID))
	}

	if viper.GetBool("app.seed_enabled") {
		// PUT /api/v1/seed/:count		-> Creates fake users for development
		v1.PUT("/seed/:count", handle(auth.Seed))
	}

	return router
}

func cacheFor(d *internal.Deps, ttl time.Duration) gin.HandlerFunc {
	if d.Cache == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return cache.CacheByRequestURI(d.Cache, ttl)
}
