package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"jordanella.com/gamebot-go/internal/actuation"
	"jordanella.com/gamebot-go/internal/api"
	"jordanella.com/gamebot-go/internal/bot"
	"jordanella.com/gamebot-go/internal/builtin"
	"jordanella.com/gamebot-go/internal/config"
	"jordanella.com/gamebot-go/internal/database"
	"jordanella.com/gamebot-go/internal/events"
	"jordanella.com/gamebot-go/internal/logging"
)

func main() {
	configPath := flag.String("config", "Settings.ini", "Path to an .ini or .toml config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "gamebot: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	logger.InfoWithContext("Starting gamebot", map[string]interface{}{
		"bot":    cfg.Bot.Username,
		"config": configPath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus(256)
	defer bus.Stop()

	if cfg.Logging.Dir != "" {
		eventLog, err := logging.NewEventLogger(bus, cfg.Logging.Dir)
		if err != nil {
			return err
		}
		defer eventLog.Close()
		logger.InfoWithContext("Writing event log", map[string]interface{}{"path": eventLog.Path()})
	}

	var journal api.Journal
	if cfg.Journal.Path != "" {
		db, err := openJournal(cfg.Journal.Path, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		db.Attach(bus, logger.Named("Journal"))
		journal = db
	}

	if cfg.Redis.URL != "" {
		client, err := events.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		redisLog := logger.Named("Redis")
		events.NewRedisForwarder(client, cfg.Redis.Channel, func(err error) {
			redisLog.Error("Failed to forward event", err)
		}).Attach(bus)
		logger.InfoWithContext("Forwarding events to redis", map[string]interface{}{"channel": cfg.Redis.Channel})
	}

	b := bot.New(cfg.Bot.Username,
		bot.WithEventBus(bus),
		bot.WithLogger(logger.Named("Bot")),
	)

	actuator, err := connectActuator(ctx, cfg.Actuator, b, bus, logger)
	if err != nil {
		return err
	}
	if source, ok := actuator.(actuation.EventSource); ok {
		b.ConsumeGameEvents(source.GameEvents())
	}
	if err := builtin.Register(b, actuator); err != nil {
		return err
	}
	if cfg.Actions.Dir != "" {
		if _, err := b.LoadActionsDir(cfg.Actions.Dir); err != nil {
			return err
		}
	}

	if !strings.EqualFold(cfg.Logging.Level, string(logging.LogLevelDebug)) {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.New(b, api.Options{
		OperationTimeout: cfg.Server.OperationTimeout,
		RateLimit:        cfg.Server.RateLimit,
		RateBurst:        cfg.Server.RateBurst,
		CORSOrigins:      cfg.Server.CORSOrigins,
		Bus:              bus,
		Journal:          journal,
		Logger:           logger.Named("API"),
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.InfoWithContext("Listening", map[string]interface{}{"address": cfg.Server.Address})
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.OperationTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", err)
	}
	if err := b.Close(shutdownCtx); err != nil {
		logger.Error("Failed to cancel jobs", err)
	}
	// Drain queued events while the journal, event log and redis are still open
	bus.Stop()
	if closer, ok := actuator.(*actuation.Bridge); ok {
		_ = closer.Close()
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger("Main").SetMinLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logging.JSONFormatter{})
	}
	return logger, nil
}

func openJournal(path string, logger *logging.Logger) (*database.DB, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	applied, err := db.RunMigrations()
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.InfoWithContext("Opened job journal", map[string]interface{}{
		"path":       path,
		"migrations": applied,
	})
	return db, nil
}

// connectActuator dials the bridge when a URL is configured and otherwise
// runs the in-process simulator. Losing the bridge cancels every job.
func connectActuator(ctx context.Context, cfg config.ActuatorConfig, b *bot.Bot, bus events.EventBus, logger *logging.Logger) (actuation.Actuator, error) {
	if cfg.URL == "" {
		logger.InfoWithContext("Using simulated actuator", map[string]interface{}{"speed": cfg.SimulatorSpeed})
		return actuation.NewSimulator(cfg.SimulatorSpeed), nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	bridge, err := actuation.Dial(dialCtx, cfg.URL)
	if err != nil {
		return nil, err
	}
	logger.InfoWithContext("Connected actuator bridge", map[string]interface{}{"url": cfg.URL})

	go func() {
		select {
		case <-bridge.Done():
		case <-ctx.Done():
			return
		}
		logger.Error("Actuator bridge disconnected", bridge.Err())
		bus.Publish(events.NewActuatorDisconnectedEvent(b.Name(), bridge.Err()))
		cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.CancelAll(cancelCtx); err != nil {
			logger.Error("Failed to cancel jobs after disconnect", err)
		}
	}()
	return bridge, nil
}
