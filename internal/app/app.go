package app

import (
	"os"
	"strings"
	"time"

	"ai-script-adherence-service/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Config) *Application {
	a := &Application{
		Cfg: cfg,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	appLogger.Info().
		Str("provider", cfg.Completion.Provider).
		Str("correctionModel", cfg.Completion.CorrectionModel).
		Str("evaluationModel", cfg.Completion.EvaluationModel).
		Bool("apiKeyConfigured", cfg.Completion.APIKey != "").
		Bool("kafkaEnabled", cfg.Kafka.Enabled).
		Msg("Script adherence service application created")
	return a
}

// setupLogger derives the application logger from the global zerolog logger.
// ZEROLOG_LOG_LEVEL overrides the configured level; ENV=dev switches to console output.
func (a *Application) setupLogger() {
	logLevel := zerolog.GlobalLevel()
	if envLevel := os.Getenv("ZEROLOG_LOG_LEVEL"); envLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(strings.ToLower(envLevel)); err == nil {
			logLevel = parsedLevel
			zerolog.SetGlobalLevel(logLevel)
		}
	}

	base := log.Logger
	if os.Getenv("ENV") == "dev" {
		base = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	a.Logger = base.With().
		Str("service", a.Cfg.Service.Principal).
		Str("component", "application").
		Logger()

	a.Logger.Info().
		Str("logLevel", logLevel.String()).
		Str("environment", os.Getenv("ENV")).
		Msg("Logger setup completed")
}

// Start records the startup time before serving traffic.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Script adherence service starting")

	return nil
}

// Uptime reports how long the service has been running.
func (a *Application) Uptime() time.Duration {
	if a.StartupTime.IsZero() {
		return 0
	}
	return time.Since(a.StartupTime)
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().
		Dur("uptime", a.Uptime()).
		Msg("Script adherence service shutting down")
}
