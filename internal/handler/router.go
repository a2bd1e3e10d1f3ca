package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/arturoeanton/cirkle/internal/middleware"
	"github.com/arturoeanton/cirkle/internal/port"
	"github.com/arturoeanton/cirkle/internal/service"
)

const maxUploadSize = 50 << 20

// Deps are the collaborators the HTTP API is built from.
type Deps struct {
	AppName     string
	FrontendURL string
	AccessLog   bool

	Auth        *service.AuthService
	Groups      *service.GroupService
	Drive       *service.DriveService
	Sessions    *service.SessionService
	Leaderboard *service.LeaderboardService
	Events      *EventBus
	Audit       port.AuditStore
	JWT         middleware.JWTConfig
}

// NewApp builds the Fiber application with every route registered.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      d.AppName,
		ErrorHandler: ErrorHandler,
		BodyLimit:    maxUploadSize,
		ReadTimeout:  30 * time.Second,
	})

	app.Use(recover.New())
	if d.AccessLog {
		app.Use(fiberlogger.New())
	}
	if d.FrontendURL != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: []string{d.FrontendURL},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		}))
	}
	app.Use(middleware.AuditMiddleware(d.Audit, "/api/v1/health"))

	// ── Public Routes ────────────────────────────────────────────────────
	authHandler := NewAuthHandler(d.Auth, d.FrontendURL)
	authHandler.Register(app)

	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"app":    d.AppName,
		})
	})

	// ── Protected Routes ─────────────────────────────────────────────────
	api := app.Group("/api/v1", middleware.JWTMiddleware(d.JWT))

	authHandler.RegisterProtected(api)
	NewGroupHandler(d.Groups, d.Sessions, d.Audit).Register(api)
	NewPomodoroHandler(d.Sessions).Register(api)
	NewLeaderboardHandler(d.Leaderboard, d.Groups).Register(api)
	NewEventsHandler(d.Events, d.Groups).Register(api)
	NewAuditHandler(d.Audit).Register(api)
	// Last: its /:kind/:rid routes would shadow the pomodoro ones.
	NewResourceHandler(d.Drive, d.Groups).Register(api)

	return app
}
