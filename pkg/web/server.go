// Package web exposes the rover over HTTP and websocket.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/internal/metrics"
	"github.com/teslashibe/go-rover/pkg/eventlog"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/rover"
	"github.com/teslashibe/go-rover/pkg/snapshot"
)

// DefaultPageSize is the events page size when the query omits limit.
const DefaultPageSize = 50

// Rover is what the handlers need from the coordinator.
type Rover interface {
	Move(direction string) bool
	Camera(pan, tilt *int) bool
	SetMode(ctx context.Context, name string) bool
	Mode() rover.Mode
	Status() rover.Status
	Page(start, limit int) eventlog.Page
	SubmitEvent(e eventlog.Event) eventlog.Event
	SubmitHeartbeat(hb rover.Heartbeat) rover.Heartbeat
	LatestHeartbeat() (rover.Heartbeat, error)
	State() rover.State
	Uptime() time.Duration
}

// Snapshots captures and lists camera images.
type Snapshots interface {
	Take(ctx context.Context) (snapshot.Info, error)
	List(ctx context.Context) ([]snapshot.Info, error)
}

// Options configures a Server.
type Options struct {
	Port string
	// StaticDir is served at /. Empty disables static files.
	StaticDir string
	// Debug enables per-request access logging.
	Debug bool
	// Snapshots may be nil, in which case capture requests fail.
	Snapshots Snapshots
}

// Server is the rover's HTTP and websocket surface.
type Server struct {
	app   *fiber.App
	port  string
	rover Rover
	hub   *hub.Hub
	snaps Snapshots
	log   *slog.Logger
}

// NewServer creates the server and registers every route.
func NewServer(r Rover, h *hub.Hub, opts Options) *Server {
	s := &Server{
		port:  opts.Port,
		rover: r,
		hub:   h,
		snaps: opts.Snapshots,
		log:   log.Component("web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-rover",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if opts.Debug {
		app.Use(logger.New())
	}

	// Ground station ingest
	app.Post("/heartbeat", s.handleSubmitHeartbeat)
	app.Get("/latest_heartbeat", s.handleLatestHeartbeat)
	app.Post("/events", s.handleSubmitEvent)

	// Operator API
	api := app.Group("/api")
	api.Post("/control/:command", s.handleControl)
	api.Post("/control", s.handleControl)
	api.Post("/camera", s.handleCamera)
	api.Post("/mode", s.handleMode)
	api.Get("/status", s.handleStatus)
	api.Get("/events", s.handleEvents)
	api.Post("/snapshot", s.handleTakeSnapshot)
	api.Get("/snapshots", s.handleListSnapshots)

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	s.app = app
	return s
}

// App returns the underlying fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("listening", "addr", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.log.Error("web server stopped", "error", err)
		}
	}()
}

// Shutdown disconnects push subscribers and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders errors as {"detail": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"detail": err.Error()})
}
