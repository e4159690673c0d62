package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sonrisadental/booking-api/internal/appointment"
)

// BookingService is everything the HTTP layer needs from the booking
// core; tests substitute a fake.
type BookingService interface {
	Book(ctx context.Context, req appointment.BookingRequest) (*appointment.BookingResult, error)
	Cancel(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListOccupiedSlots(ctx context.Context) ([]appointment.SlotRef, error)
	ListAppointments(ctx context.Context) ([]appointment.Appointment, error)
}

type RouterConfig struct {
	Service    BookingService
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Logger     *zap.Logger
	Prometheus prometheus.Gatherer
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Prometheus != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Prometheus, promhttp.HandlerOpts{}))
	}

	// Appointment endpoints
	r.Get("/appointments/occupied", listOccupiedSlotsHandler(cfg.Service))
	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Patch("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))

	return r
}
