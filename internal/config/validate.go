package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	logx "alertrelay/pkg/logx"
)

// Validate rejects configurations the relay cannot start with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if g := strings.TrimSpace(cfg.Telegram.GroupLog); g != "" {
		if _, err := strconv.ParseInt(g, 10, 64); err != nil {
			return fmt.Errorf("telegram.group_log: invalid chat id %q", g)
		}
	}
	if err := ValidateBindAddress(cfg.Server.Addr); err != nil {
		return fmt.Errorf("server.addr: %w", err)
	}
	for path, raw := range map[string]string{
		"server.read_header_timeout": cfg.Server.ReadHeaderTimeout,
		"server.read_timeout":        cfg.Server.ReadTimeout,
		"server.write_timeout":       cfg.Server.WriteTimeout,
		"server.idle_timeout":        cfg.Server.IdleTimeout,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			return err
		}
	}
	if !logx.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level)
	}
	if !logx.ValidLevel(cfg.Logging.Telegram.MinLevel) {
		return fmt.Errorf("logging.telegram.min_level: unknown level %q", cfg.Logging.Telegram.MinLevel)
	}
	if cfg.Logging.Telegram.RatePerSec < 0 {
		return errors.New("logging.telegram.rate_per_sec must be >= 0")
	}
	if cfg.Ops.Enabled && strings.TrimSpace(cfg.Ops.Addr) != "" {
		if err := ValidateBindAddress(cfg.Ops.Addr); err != nil {
			return fmt.Errorf("ops.addr: %w", err)
		}
	}
	return nil
}

// ValidateBindAddress checks that addr is a "host:port" pair with a numeric port.
// The host may be empty (all interfaces).
func ValidateBindAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.New("bind address is empty")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid bind address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port in bind address %q", addr)
	}
	return nil
}
