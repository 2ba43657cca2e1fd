package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type tomlFile struct {
	Bot struct {
		Username *string `toml:"username"`
	} `toml:"bot"`
	Server struct {
		Address            *string  `toml:"address"`
		OperationTimeoutMs *int     `toml:"operation_timeout_ms"`
		RateLimit          *float64 `toml:"rate_limit"`
		RateBurst          *int     `toml:"rate_burst"`
		CORSOrigins        []string `toml:"cors_origins"`
	} `toml:"server"`
	Logging struct {
		Level  *string `toml:"level"`
		Dir    *string `toml:"dir"`
		Format *string `toml:"format"`
	} `toml:"logging"`
	Actions struct {
		Dir *string `toml:"dir"`
	} `toml:"actions"`
	Actuator struct {
		URL            *string  `toml:"url"`
		SimulatorSpeed *float64 `toml:"simulator_speed"`
	} `toml:"actuator"`
	Journal struct {
		Path *string `toml:"path"`
	} `toml:"journal"`
	Redis struct {
		URL     *string `toml:"url"`
		Channel *string `toml:"channel"`
	} `toml:"redis"`
}

func loadTOML(path string, cfg *Config) error {
	var f tomlFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	setString(&cfg.Bot.Username, f.Bot.Username)
	setString(&cfg.Server.Address, f.Server.Address)
	if f.Server.OperationTimeoutMs != nil {
		cfg.Server.OperationTimeout = time.Duration(*f.Server.OperationTimeoutMs) * time.Millisecond
	}
	if f.Server.RateLimit != nil {
		cfg.Server.RateLimit = *f.Server.RateLimit
	}
	if f.Server.RateBurst != nil {
		cfg.Server.RateBurst = *f.Server.RateBurst
	}
	if f.Server.CORSOrigins != nil {
		cfg.Server.CORSOrigins = f.Server.CORSOrigins
	}
	setString(&cfg.Logging.Level, f.Logging.Level)
	setString(&cfg.Logging.Dir, f.Logging.Dir)
	setString(&cfg.Logging.Format, f.Logging.Format)
	setString(&cfg.Actions.Dir, f.Actions.Dir)
	setString(&cfg.Actuator.URL, f.Actuator.URL)
	if f.Actuator.SimulatorSpeed != nil {
		cfg.Actuator.SimulatorSpeed = *f.Actuator.SimulatorSpeed
	}
	setString(&cfg.Journal.Path, f.Journal.Path)
	setString(&cfg.Redis.URL, f.Redis.URL)
	setString(&cfg.Redis.Channel, f.Redis.Channel)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
