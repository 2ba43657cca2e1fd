package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Load reads configuration from path, choosing the format by extension
// (.ini or .toml). A missing file yields defaults. Environment overrides
// are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			switch strings.ToLower(filepath.Ext(path)) {
			case ".ini":
				err = loadINI(path, cfg)
			case ".toml":
				err = loadTOML(path, cfg)
			default:
				err = fmt.Errorf("unsupported config format '%s'", filepath.Ext(path))
			}
			if err != nil {
				return nil, err
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	applyEnv(cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadINI(path string, cfg *Config) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	bot := file.Section("Bot")
	cfg.Bot.Username = bot.Key("username").MustString(cfg.Bot.Username)

	server := file.Section("Server")
	cfg.Server.Address = server.Key("address").MustString(cfg.Server.Address)
	timeoutMs := server.Key("operationTimeoutMs").MustInt(int(cfg.Server.OperationTimeout / time.Millisecond))
	cfg.Server.OperationTimeout = time.Duration(timeoutMs) * time.Millisecond
	cfg.Server.RateLimit = server.Key("rateLimit").MustFloat64(cfg.Server.RateLimit)
	cfg.Server.RateBurst = server.Key("rateBurst").MustInt(cfg.Server.RateBurst)
	if server.HasKey("corsOrigins") {
		cfg.Server.CORSOrigins = splitList(server.Key("corsOrigins").String())
	}

	logging := file.Section("Logging")
	cfg.Logging.Level = logging.Key("level").MustString(cfg.Logging.Level)
	cfg.Logging.Dir = logging.Key("dir").MustString(cfg.Logging.Dir)
	cfg.Logging.Format = logging.Key("format").MustString(cfg.Logging.Format)

	cfg.Actions.Dir = file.Section("Actions").Key("dir").MustString(cfg.Actions.Dir)

	actuator := file.Section("Actuator")
	cfg.Actuator.URL = actuator.Key("url").MustString(cfg.Actuator.URL)
	cfg.Actuator.SimulatorSpeed = actuator.Key("simulatorSpeed").MustFloat64(cfg.Actuator.SimulatorSpeed)

	cfg.Journal.Path = file.Section("Journal").Key("path").MustString(cfg.Journal.Path)

	redis := file.Section("Redis")
	cfg.Redis.URL = redis.Key("url").MustString(cfg.Redis.URL)
	cfg.Redis.Channel = redis.Key("channel").MustString(cfg.Redis.Channel)

	return nil
}

// applyEnv overrides settings from the environment
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("BOT_USERNAME"); ok && v != "" {
		cfg.Bot.Username = v
	}
	if v, ok := lookup("LISTEN_PORT"); ok && v != "" {
		cfg.Server.Address = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := lookup("ACTIONS_DIR"); ok {
		cfg.Actions.Dir = v
	}
	if v, ok := lookup("ACTUATOR_URL"); ok {
		cfg.Actuator.URL = v
	}
	if v, ok := lookup("JOURNAL_PATH"); ok {
		cfg.Journal.Path = v
	}
	if v, ok := lookup("REDIS_URL"); ok {
		cfg.Redis.URL = v
	}
}
