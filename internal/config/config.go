package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds every runtime setting of the gamebot service
type Config struct {
	Bot      BotConfig
	Server   ServerConfig
	Logging  LoggingConfig
	Actions  ActionsConfig
	Actuator ActuatorConfig
	Journal  JournalConfig
	Redis    RedisConfig
}

type BotConfig struct {
	Username string
}

type ServerConfig struct {
	Address          string
	OperationTimeout time.Duration // bound on pause/cancel waits per request
	RateLimit        float64       // requests per second per client, 0 disables
	RateBurst        int
	CORSOrigins      []string
}

type LoggingConfig struct {
	Level  string
	Dir    string // event log directory; empty disables the event log file
	Format string // text or json
}

type ActionsConfig struct {
	Dir string // directory of program-defined action YAML files
}

type ActuatorConfig struct {
	URL            string  // websocket bridge; empty selects the simulator
	SimulatorSpeed float64 // blocks per second
}

type JournalConfig struct {
	Path string // sqlite file; empty disables the journal
}

type RedisConfig struct {
	URL     string // empty disables forwarding
	Channel string
}

// Default returns the settings used when no file is present
func Default() *Config {
	return &Config{
		Bot: BotConfig{Username: "Unnamed"},
		Server: ServerConfig{
			Address:          ":8080",
			OperationTimeout: 10 * time.Second,
			RateLimit:        20,
			RateBurst:        40,
			CORSOrigins:      []string{"*"},
		},
		Logging: LoggingConfig{Level: "INFO", Format: "text"},
		Actuator: ActuatorConfig{
			SimulatorSpeed: 4.3,
		},
		Redis: RedisConfig{Channel: "gamebot.events"},
	}
}

// Validate checks value ranges after loading
func (c *Config) Validate() error {
	if c.Bot.Username == "" {
		return fmt.Errorf("bot username is required")
	}
	if c.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}
	if c.Server.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout (%s) must be greater than 0", c.Server.OperationTimeout)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit (%v) must not be negative", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("rate burst (%d) must be at least 1", c.Server.RateBurst)
	}
	if c.Actuator.URL == "" && c.Actuator.SimulatorSpeed <= 0 {
		return fmt.Errorf("simulator speed (%v) must be greater than 0", c.Actuator.SimulatorSpeed)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log format '%s' must be text or json", c.Logging.Format)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
