package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CristiGvl/picoOmenCtl/internal/ec"
	"github.com/CristiGvl/picoOmenCtl/internal/platform"
	"github.com/CristiGvl/picoOmenCtl/internal/profile"
	"github.com/CristiGvl/picoOmenCtl/internal/temps"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// requestTimeout bounds hardware calls made on behalf of a request
const requestTimeout = 10 * time.Second

// RegisterAccess is the hybrid EC access layer
type RegisterAccess interface {
	State() ec.State
	ProbeError() error
	Read(ctx context.Context, register uint16) (byte, ec.Result)
	Write(ctx context.Context, register uint16, value byte) ec.Result
}

// FanController applies fan speed requests
type FanController interface {
	SetFanSpeed(ctx context.Context, percentage int) ec.Result
	ResetToAuto(ctx context.Context) ec.Result
	TargetRPM(percentage int) int
}

// PerformanceSetter applies firmware thermal profiles
type PerformanceSetter interface {
	SetPerformanceMode(ctx context.Context, mode string) error
}

// Deps are the components the server exposes
type Deps struct {
	Access      RegisterAccess
	Fan         FanController
	Performance PerformanceSetter
	Temps       temps.Reader
	Board       *profile.Board
	Profile     *profile.DeviceProfile
	Logger      *slog.Logger
	// AllowedOrigins are the browser origins allowed to call the API
	AllowedOrigins []string
}

// Server represents the API server
type Server struct {
	app     *fiber.App
	deps    Deps
	logger  *slog.Logger
	origins map[string]bool
}

// NewServer creates a new API server
func NewServer(deps Deps) (*Server, error) {
	// Validate platform support
	if err := platform.ValidateSupport(); err != nil {
		return nil, err
	}
	if deps.Access == nil || deps.Fan == nil || deps.Performance == nil {
		return nil, fmt.Errorf("access layer, fan controller and performance setter are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ServerHeader: "picoOmenCtl",
		AppName:      "picoOmenCtl v1.0",
	})

	server := &Server{
		app:     app,
		deps:    deps,
		logger:  deps.Logger.With("component", "api"),
		origins: make(map[string]bool, len(deps.AllowedOrigins)),
	}
	for _, origin := range deps.AllowedOrigins {
		server.origins[origin] = true
	}

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	// the API drives hardware, so browsers only get in from listed origins
	app.Use(server.checkOrigin)
	if len(deps.AllowedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(deps.AllowedOrigins, ","),
			AllowMethods: "GET,POST,OPTIONS",
			AllowHeaders: "Content-Type",
			MaxAge:       86400, // 24 hours
		}))
	}

	server.setupRoutes()
	return server, nil
}

// checkOrigin rejects browser requests from origins not explicitly allowed.
// Requests without an Origin header come from non-browser clients.
func (s *Server) checkOrigin(c *fiber.Ctx) error {
	origin := c.Get(fiber.HeaderOrigin)
	if origin == "" || s.origins[origin] {
		return c.Next()
	}
	s.logger.Warn("rejected cross-origin request", "origin", origin, "method", c.Method(), "path", c.Path())
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "origin not allowed"})
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.app.Group("/api")

	// Channel and device information
	api.Get("/channel", s.getChannel)
	api.Get("/profile", s.getProfile)
	api.Get("/temps", s.getTemps)

	// Fan control endpoints
	api.Post("/fan", s.setFanSpeed)
	api.Post("/fan/reset", s.resetFan)

	// Firmware thermal profile
	api.Post("/performance", s.setPerformanceMode)

	// Raw EC register access
	api.Get("/ec/:register", s.readRegister)
	api.Post("/ec/:register", s.writeRegister)

	// Health check
	api.Get("/health", s.healthCheck)
}

// Start starts the API server
func (s *Server) Start(address string) error {
	return s.app.Listen(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
