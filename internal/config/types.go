package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
	Ops      OpsConfig      `json:"ops,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// Admins receive every alert, in this order. Duplicates are delivered twice.
	Admins []int64 `json:"admins"`
	// GroupLog is an optional chat ID that receives WARN+ log lines.
	GroupLog string `json:"group_log,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// ServerConfig controls the alert HTTP listener.
//
// All timeouts are Go duration strings; empty means "no timeout" (the
// net/http default).
type ServerConfig struct {
	Addr              string `json:"addr"`
	ReadHeaderTimeout string `json:"read_header_timeout,omitempty"`
	ReadTimeout       string `json:"read_timeout,omitempty"`
	WriteTimeout      string `json:"write_timeout,omitempty"`
	IdleTimeout       string `json:"idle_timeout,omitempty"`
	RequestLog        bool   `json:"request_log,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// OpsConfig controls the optional operations listener (/healthz, /metrics,
// /debug/pprof/).
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:9090").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type OpsConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:9090"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
}
