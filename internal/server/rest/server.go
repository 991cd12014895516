// Package rest is the HTTP surface: OTP auth, consent and session
// management, attestation submission, share redemption and the aggregator
// webhook endpoint.
package rest

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Deps collects everything the route table needs.
type Deps struct {
	Auth         *AuthHandler
	Consents     *ConsentHandler
	Sessions     *SessionHandler
	Attestations *AttestationHandler
	Shares       *ShareHandler
	Profile      *ProfileHandler
	Webhooks     *WebhookHandler

	JWTSecret          []byte
	Cache              *redis.Client
	OTPRateLimitPerMin int
}

type Server struct {
	app  *fiber.App
	addr string
}

func NewServer(addr string, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "aavault",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	setupRoutes(app, deps)

	return &Server{app: app, addr: addr}
}

func setupRoutes(app *fiber.App, deps Deps) {
	// unauthenticated surface
	app.Post("/api/auth/otp/request", OTPRateLimit(deps.Cache, deps.OTPRateLimitPerMin), deps.Auth.RequestOTP)
	app.Post("/api/auth/otp/verify", deps.Auth.VerifyOTP)
	app.Post("/api/attestations/verify", deps.Attestations.VerifyPublic)
	app.Get("/share/:token", deps.Shares.Redeem)
	app.Post("/webhooks/notifications", deps.Webhooks.Notify)

	// authenticated surface
	api := app.Group("/api", JWTAuth(deps.JWTSecret))

	api.Get("/profile", deps.Profile.Get)
	api.Patch("/profile", deps.Profile.Update)
	api.Post("/kyc/verify", deps.Profile.VerifyKyc)

	api.Post("/consents", deps.Consents.Create)
	api.Get("/consents", deps.Consents.List)
	api.Get("/consents/:id", deps.Consents.Get)
	api.Post("/consents/:id/revoke", deps.Consents.Revoke)

	api.Post("/consents/:id/sessions", deps.Sessions.Create)
	api.Get("/consents/:id/sessions", deps.Sessions.ListByConsent)
	api.Get("/sessions/:id", deps.Sessions.Get)
	api.Get("/sessions/:id/data", deps.Sessions.Data)

	api.Post("/attestations", deps.Attestations.Submit)
	api.Get("/attestations", deps.Attestations.List)
	api.Get("/attestations/:id", deps.Attestations.Get)

	api.Post("/shares", deps.Shares.Create)
	api.Get("/shares", deps.Shares.List)
	api.Post("/shares/:id/revoke", deps.Shares.Revoke)
}

func (s *Server) Listen() error {
	return s.app.Listen(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
