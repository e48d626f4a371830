/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the labour cost forecasting server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Initialize SQLite store
  3. Load the rate card and seed template configs
  4. Build the payroll calculator and forecast service
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a YAML config file (optional; env vars otherwise)
  -db      SQLite database path (overrides config)
           Use ":memory:" for an in-memory database

RATE CARD:
  When RATE_CARD (or rate_card in the config file) points at a JSON
  rate card, its rates and templates are loaded at startup. Without
  one the server seeds the built-in demo card.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (shutdown_timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/labour.db"

  # Run with a production rate card
  RATE_CARD=./rates/qld-eba-2025.json ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - config/config.go: Configuration schema
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/labour-engine/api"
	"github.com/warp/labour-engine/config"
	"github.com/warp/labour-engine/factory"
	"github.com/warp/labour-engine/forecast"
	"github.com/warp/labour-engine/payroll"
	"github.com/warp/labour-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "YAML config file path")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	log := newLogger(cfg)
	log.Info().
		Str("env", cfg.Env).
		Str("db", cfg.DBPath).
		Str("address", cfg.Address).
		Msg("starting labour forecasting engine")

	st, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer st.Close()

	card, err := loadRateCard(context.Background(), cfg, st)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load rate card")
	}
	log.Info().Str("rate_card", card.Name).Int("templates", len(card.Templates)).Msg("rate card loaded")

	calc, err := payroll.NewCalculator(card.Rates)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid rate card")
	}

	svc := forecast.NewService(st, st, st, calc, log)
	if months := cfg.Forecast.HorizonMonths; months > 0 {
		svc.ProjectEnd = func(string) time.Time {
			return time.Now().AddDate(0, months, 0)
		}
	}

	handler := api.NewHandler(svc, log)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info().Str("address", cfg.Address).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out = os.Stderr
	log := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	}
	return log
}

// loadRateCard reads the configured rate card file, or seeds the demo
// card when none is configured, and stores its templates.
func loadRateCard(ctx context.Context, cfg *config.Config, templates forecast.TemplateStore) (*factory.RateCard, error) {
	if cfg.RateCard == "" {
		return api.SeedDemo(ctx, templates)
	}
	data, err := os.ReadFile(cfg.RateCard)
	if err != nil {
		return nil, fmt.Errorf("read rate card %s: %w", cfg.RateCard, err)
	}
	card, err := factory.NewRateCardFactory().Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse rate card %s: %w", cfg.RateCard, err)
	}
	for _, tc := range card.Templates {
		if err := templates.PutTemplateConfig(ctx, tc); err != nil {
			return nil, err
		}
	}
	return card, nil
}
