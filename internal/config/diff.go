package config

import (
	"slices"
	"strings"

	logx "alertrelay/pkg/logx"
)

// Change summarizes the difference between two configs.
type Change struct {
	// Sections lists changed top-level sections in a stable order.
	Sections []string
	// Fields are safe structured log fields; tokens are never included.
	Fields []logx.Field
	// RestartRequired lists sections that changed but are only read at startup.
	RestartRequired []string
}

// SummarizeConfigChange compares oldCfg and newCfg.
func SummarizeConfigChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	var ch Change

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if strings.TrimSpace(ot.Token) != strings.TrimSpace(nt.Token) ||
		!slices.Equal(ot.Admins, nt.Admins) ||
		strings.TrimSpace(ot.PollTimeout) != strings.TrimSpace(nt.PollTimeout) {
		ch.Sections = append(ch.Sections, "telegram")
		ch.RestartRequired = append(ch.RestartRequired, "telegram")
		ch.Fields = append(ch.Fields,
			logx.Int("telegram.admin_count", len(nt.Admins)),
			logx.Bool("telegram.token_changed", strings.TrimSpace(ot.Token) != strings.TrimSpace(nt.Token)),
		)
	}
	if strings.TrimSpace(ot.GroupLog) != strings.TrimSpace(nt.GroupLog) {
		ch.Sections = append(ch.Sections, "telegram.group_log")
		ch.Fields = append(ch.Fields, logx.Bool("telegram.group_log_set", strings.TrimSpace(nt.GroupLog) != ""))
	}

	if oldCfg.Server != newCfg.Server {
		ch.Sections = append(ch.Sections, "server")
		ch.RestartRequired = append(ch.RestartRequired, "server")
		ch.Fields = append(ch.Fields, logx.String("server.addr", strings.TrimSpace(newCfg.Server.Addr)))
	}

	if oldCfg.Logging != newCfg.Logging {
		ch.Sections = append(ch.Sections, "logging")
		ch.Fields = append(ch.Fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	oo, no := oldCfg.Ops, newCfg.Ops
	if oo.Enabled != no.Enabled || oo.Addr != no.Addr || oo.AllowInsecure != no.AllowInsecure ||
		oo.Pprof != no.Pprof || oo.Token != no.Token {
		ch.Sections = append(ch.Sections, "ops")
		ch.RestartRequired = append(ch.RestartRequired, "ops")
		ch.Fields = append(ch.Fields,
			logx.Bool("ops.enabled", no.Enabled),
			logx.String("ops.addr", strings.TrimSpace(no.Addr)),
			logx.Bool("ops.token_set", no.Token != ""),
		)
	}

	return ch
}
