// auditsink is a reference collector for auditkit events: it accepts the
// wire-format JSON at POST /audit-log, validates it, and persists it to
// memory or PostgreSQL. It exists so the pipeline has an end-to-end
// collaborator; any endpoint accepting the same POST works equally well.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/auditkit/pkg/config"
	"github.com/dmitrymomot/auditkit/pkg/event"
	"github.com/dmitrymomot/auditkit/pkg/logger"
)

type sinkConfig struct {
	Addr        string `env:"AUDITSINK_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"AUDITSINK_DATABASE_URL"` // empty means in-memory store
	LogFormat   string `env:"AUDITSINK_LOG_FORMAT" envDefault:"json"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg sinkConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithService("auditsink"),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
	)
	logger.SetAsDefault(log)

	store, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		log.Error("store setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	registry := prometheus.NewRegistry()
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auditsink",
		Name:      "events_received_total",
		Help:      "Received audit events by outcome.",
	}, []string{"outcome"})
	registry.MustRegister(received)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/audit-log", ingestHandler(log, store, received))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("auditsink listening", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newStore(ctx context.Context, cfg sinkConfig) (Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return NewMemoryStore(), func() {}, nil
	}
	pg, err := NewPGStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

func ingestHandler(log *slog.Logger, store Store, received *prometheus.CounterVec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev event.Event
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&ev); err != nil {
			received.WithLabelValues("malformed").Inc()
			http.Error(w, "invalid event payload", http.StatusBadRequest)
			return
		}

		ev.FillDefaults()
		if err := ev.Validate(); err != nil {
			received.WithLabelValues("invalid").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := store.Save(r.Context(), ev); err != nil {
			received.WithLabelValues("store_error").Inc()
			log.Error("event store failed", "error", err)
			http.Error(w, "storage failure", http.StatusInternalServerError)
			return
		}

		received.WithLabelValues("accepted").Inc()
		w.WriteHeader(http.StatusAccepted)
	}
}
