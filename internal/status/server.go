package status

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/vk/qr3d/internal/ctxlog"
)

// Server serves health probes and run state.
type Server struct {
	app     *fiber.App
	tracker *Tracker
	ready   atomic.Bool
}

// NewServer builds the routes. The server reports not ready until
// SetReady(true) is called.
func NewServer(tracker *Tracker) *Server {
	s := &Server{
		app:     fiber.New(fiber.Config{AppName: "qr3d"}),
		tracker: tracker,
	}
	s.app.Use(recover.New())

	s.app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})
	s.app.Get("/health/ready", func(c fiber.Ctx) error {
		if !s.ready.Load() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "starting"})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})
	s.app.Get("/runs", func(c fiber.Ctx) error {
		return c.JSON(s.tracker.Runs())
	})
	s.app.Get("/runs/:id", func(c fiber.Ctx) error {
		run, ok := s.tracker.Get(c.Params("id"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "run not found"})
		}
		return c.JSON(run)
	})
	return s
}

// SetReady flips the readiness probe.
func (s *Server) SetReady(ready bool) { s.ready.Store(ready) }

// App exposes the underlying fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Start listens on port in the background.
func (s *Server) Start(ctx context.Context, port int) {
	logger := ctxlog.FromContext(ctx)
	addr := fmt.Sprintf(":%d", port)
	go func() {
		logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost%s/runs", addr))
		if err := s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
}

// Shutdown stops the server, waiting up to five seconds for open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down status server...")
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Status server shutdown failed", "error", err)
		return err
	}
	return nil
}
