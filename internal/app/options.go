package app

import "alertrelay/internal/transport/telegram/adapter"

type Option func(*options)

type options struct {
	envFile    string
	adapterCfg func(*adapter.Config)
}

// WithEnvFile loads KEY=VALUE pairs from path before the config is read.
// A missing file is ignored.
func WithEnvFile(path string) Option {
	return func(o *options) { o.envFile = path }
}

// WithAdapterConfig lets the caller adjust the bot client settings derived
// from the config file (API URL, poller, offline mode).
func WithAdapterConfig(fn func(*adapter.Config)) Option {
	return func(o *options) { o.adapterCfg = fn }
}
