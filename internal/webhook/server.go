// Package webhook implements the batch-async provider's callback
// ingress and the reconciler state machine spec section 4.7 describes:
// {pending -> processed | error | cancelled_expired}. The ingress is a
// small fiber.App in the same style as the teacher's internal/http
// router — request-id stamping, structured access log, a health and
// metrics surface — scoped down to the one route this system exposes.
package webhook

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobscraper/internal/metrics"
)

// Server is the fiber app fronting the firecrawl webhook route plus a
// bare health/metrics surface.
type Server struct {
	app        *fiber.App
	reconciler *Reconciler
	logger     *zap.Logger
}

func NewServer(reconciler *Reconciler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)

		err := c.Next()

		latency := time.Since(start)
		metrics.RecordWebhookRequest(c.Path(), c.Response().StatusCode(), latency.Milliseconds())
		logger.Debug("webhook request",
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Int64("latency_ms", latency.Milliseconds()))
		return err
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	app.Post("/api/firecrawl/webhook", func(c *fiber.Ctx) error {
		var payload firecrawlWebhookPayload
		if err := c.BodyParser(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid payload"})
		}
		if payload.ID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "missing job id"})
		}
		if err := reconciler.HandleCallback(c.Context(), payload.ID, payload.Type); err != nil {
			logger.Warn("webhook callback reconcile failed", zap.String("job_id", payload.ID), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true})
	})

	return &Server{app: app, reconciler: reconciler, logger: logger}
}

// firecrawlWebhookPayload is the subset of Firecrawl's webhook envelope
// the reconciler needs: the batch job id and the event type
// (batch_scrape.completed/failed/page), everything else is recovered by
// polling GetBatchStatus rather than trusted from the push payload.
type firecrawlWebhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Listen starts the server, blocking until it exits or errs.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops accepting new connections.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
