package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"blogdesk/internal/models"
	"blogdesk/internal/observability"
	"blogdesk/internal/router"
)

const (
	localsRoute   = "route"
	localsTraceID = "traceID"
	headerTheme   = "X-Theme"
)

// TracingMiddleware starts a server span per request
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(ctx, fmt.Sprintf("%s %s", c.Method(), c.Path()),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.path", c.Path()),
			),
		)
		defer span.End()

		c.Locals(localsTraceID, span.SpanContext().TraceID().String())
		c.SetUserContext(ctx)

		err := c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))
		if err != nil {
			span.RecordError(err)
		}
		return err
	}
}

// ContextMiddleware copies the request and trace IDs from Fiber locals into
// the request context so the store and client log them.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if rid, ok := c.Locals("requestid").(string); ok {
			ctx = observability.WithRequestID(ctx, rid)
		}
		if tid, ok := c.Locals(localsTraceID).(string); ok {
			ctx = context.WithValue(ctx, observability.TraceIDKey, tid)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware for logging requests using slog
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Duration("latency", time.Since(start)),
		}
		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.Logger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.Logger.InfoContext(c.UserContext(), "request processed", fields...)
		}
		return err
	}
}

// themeHeader exposes the current theme so every view can apply it.
func (s *Server) themeHeader() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if t, ok := s.theme.Load().(models.Theme); ok {
			c.Set(headerTheme, string(t))
		}
		return err
	}
}

// Guard runs the route guard before any view handler. Denied and
// redirected navigations answer 302 with the final location.
func (s *Server) Guard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		target := c.OriginalURL()
		m, d, err := s.router.Push(c.UserContext(), target)
		if err != nil {
			return fiber.NewError(fiber.StatusLoopDetected, err.Error())
		}
		if d.Outcome != router.Allowed || m.FullPath != target {
			return c.Redirect(m.FullPath, fiber.StatusFound)
		}
		c.Locals(localsRoute, m)
		return c.Next()
	}
}

// SessionRequired rejects /api actions without a session.
func (s *Server) SessionRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.store.IsAuthenticated() {
			return c.Status(fiber.StatusUnauthorized).JSON(models.Result{
				Message: models.NewAuthError("authentication required").Message,
			})
		}
		return c.Next()
	}
}
