package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment override, e.g. ALERTRELAY_TELEGRAM_TOKEN.
const EnvPrefix = "ALERTRELAY"

// envOverrides lists the settings that may come from the environment instead
// of the config file. Unset variables leave the file value alone.
type envOverrides struct {
	TelegramToken  string  `envconfig:"TELEGRAM_TOKEN"`
	TelegramAdmins []int64 `envconfig:"TELEGRAM_ADMINS"` // comma-separated
	ServerAddr     string  `envconfig:"SERVER_ADDR"`
	LogLevel       string  `envconfig:"LOG_LEVEL"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error. Variables already set are not overwritten.
func LoadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv overlays ALERTRELAY_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}
	if v := strings.TrimSpace(env.TelegramToken); v != "" {
		cfg.Telegram.Token = v
	}
	if len(env.TelegramAdmins) > 0 {
		cfg.Telegram.Admins = env.TelegramAdmins
	}
	if v := strings.TrimSpace(env.ServerAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(env.LogLevel); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}
