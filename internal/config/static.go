package config

import (
	"strings"

	logx "alertrelay/pkg/logx"
)

// Static is the part of the configuration that is fixed for the lifetime of
// the process: the bot credential, the admin recipients and the HTTP bind
// address. It is built once at startup and only exposes read accessors, so it
// can be shared between goroutines without locking.
type Static struct {
	token  string
	admins []int64
	addr   string
}

// NewStatic copies the startup-only fields out of cfg.
func NewStatic(cfg *Config) Static {
	if cfg == nil {
		return Static{}
	}
	return Static{
		token:  strings.TrimSpace(cfg.Telegram.Token),
		admins: append([]int64(nil), cfg.Telegram.Admins...),
		addr:   strings.TrimSpace(cfg.Server.Addr),
	}
}

func (s Static) Token() string { return s.token }

// Admins returns the admin chat IDs in configured order. The slice is a copy.
func (s Static) Admins() []int64 { return append([]int64(nil), s.admins...) }

func (s Static) BindAddress() string { return s.addr }

// LogxConfig maps the logging section onto the logger's own config type.
func LogxConfig(cfg *Config) logx.Config {
	if cfg == nil {
		return logx.Config{}
	}
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Telegram: logx.TelegramConfig{
			Enabled:    l.Telegram.Enabled,
			ThreadID:   l.Telegram.ThreadID,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}
