package app

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"alertrelay/internal/config"
	"alertrelay/internal/httpapi"
	"alertrelay/internal/notifier"
	"alertrelay/internal/observability/metrics"
	"alertrelay/internal/observability/ops"
	rtsup "alertrelay/internal/runtime/supervisor"
	kit "alertrelay/internal/transport"
	"alertrelay/internal/transport/telegram/adapter"
	logx "alertrelay/pkg/logx"
)

type App struct {
	cfgm   *config.ConfigManager
	static config.Static

	log  logx.Logger
	logs *logx.Service

	adapter  *adapter.Adapter
	metrics  *metrics.Metrics
	notifier *notifier.Notifier
	http     *httpapi.Server
	ops      *ops.Service

	mu     sync.Mutex
	sup    *rtsup.Supervisor
	httpLn net.Listener
}

func NewApp(cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	static := config.NewStatic(cfg)

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adCfg := adapter.Config{Token: static.Token(), PollTimeout: pollTimeout}
	if o.adapterCfg != nil {
		o.adapterCfg(&adCfg)
	}
	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
	ad, err := adapter.New(adCfg, bootLog)
	if err != nil {
		return nil, err
	}

	// logx.New applies immediately and warns if the Telegram sink has no
	// target yet, so bootstrap with it off, set the target, then apply.
	logCfg := config.LogxConfig(cfg)
	bootCfg := logCfg
	bootCfg.Telegram.Enabled = false
	logSvc, log := logx.New(bootCfg, ad)
	setLogTarget(logSvc, cfg)
	logSvc.Apply(logCfg)
	ad.SetLogger(log.With(logx.String("comp", "telegram")))

	m := metrics.New()
	hookLog := log.With(logx.String("comp", "telegram"))
	ad.SetErrorHook(func(ue kit.UpdateError) {
		m.UpdateError()
		hookLog.Error("bot update failed",
			logx.Int("update_id", ue.UpdateID),
			logx.Int64("chat_id", ue.ChatID),
			logx.Err(ue.Err),
		)
	})

	n := notifier.New(ad, static.Admins(), log.With(logx.String("comp", "notifier")), m)

	srvCfg, err := httpConfig(cfg.Server)
	if err != nil {
		return nil, err
	}
	httpLog := log.With(logx.String("comp", "http"))
	srv := httpapi.NewServer(srvCfg, httpLog, httpapi.NewAlertController(n, httpLog, m))

	a := &App{
		cfgm:     cfgm,
		static:   static,
		log:      log.With(logx.String("comp", "app")),
		logs:     logSvc,
		adapter:  ad,
		metrics:  m,
		notifier: n,
		http:     srv,
	}
	a.ops = ops.New(ops.Config{
		Enabled:       cfg.Ops.Enabled,
		Addr:          cfg.Ops.Addr,
		Token:         cfg.Ops.Token,
		AllowInsecure: cfg.Ops.AllowInsecure,
		Pprof:         cfg.Ops.Pprof,
	}, log.With(logx.String("comp", "ops")), a.Health, m.Handler())
	return a, nil
}

func httpConfig(sc config.ServerConfig) (httpapi.Config, error) {
	out := httpapi.Config{RequestLog: sc.RequestLog}
	for _, f := range []struct {
		path string
		raw  string
		dst  *time.Duration
	}{
		{"server.read_header_timeout", sc.ReadHeaderTimeout, &out.ReadHeaderTimeout},
		{"server.read_timeout", sc.ReadTimeout, &out.ReadTimeout},
		{"server.write_timeout", sc.WriteTimeout, &out.WriteTimeout},
		{"server.idle_timeout", sc.IdleTimeout, &out.IdleTimeout},
	} {
		d, err := config.ParseDurationField(f.path, f.raw)
		if err != nil {
			return httpapi.Config{}, err
		}
		*f.dst = d
	}
	return out, nil
}

func setLogTarget(logs *logx.Service, cfg *config.Config) {
	g := strings.TrimSpace(cfg.Telegram.GroupLog)
	if g == "" {
		logs.SetTelegramTarget(0, 0)
		return
	}
	if chatID, err := strconv.ParseInt(g, 10, 64); err == nil {
		logs.SetTelegramTarget(chatID, cfg.Logging.Telegram.ThreadID)
	}
}

// Adapter exposes the bot client so callers can register update handlers
// before Start.
func (a *App) Adapter() *adapter.Adapter { return a.adapter }

// HTTPAddr is the bound alert listener address ("" before Start).
func (a *App) HTTPAddr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpLn == nil {
		return ""
	}
	return a.httpLn.Addr().String()
}

func (a *App) Supervisor() *rtsup.Supervisor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sup
}

// Done is closed when the app supervisor context is cancelled.
func (a *App) Done() <-chan struct{} {
	sup := a.Supervisor()
	if sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return sup.Context().Done()
}

// Health is the /healthz document: one snapshot per supervisor.
func (a *App) Health() any {
	return map[string]rtsup.SupervisorSnapshot{
		"app": a.Supervisor().Snapshot(),
		"ops": a.ops.Supervisor().Snapshot(),
	}
}

// Start binds the alert listener, then runs the HTTP service, the bot update
// loop and the config watcher side by side. A bind failure is returned and
// nothing is started. After that, a failing loop is logged and recorded but
// does not stop the others.
func (a *App) Start(ctx context.Context) error {
	addr := a.static.BindAddress()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	sup := rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(false))
	a.mu.Lock()
	a.sup = sup
	a.httpLn = ln
	a.mu.Unlock()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	sup.Go("http.serve", func(c context.Context) error {
		return a.http.Serve(c, ln)
	})
	sup.Go("bot.updates", a.adapter.Run)
	sup.Go0("config.reload", a.reloadLoop(a.cfgm.Subscribe(8)))
	sup.Go("config.watch", a.cfgm.Watch)

	a.ops.Start(sup.Context())

	a.log.Info("app started",
		logx.String("addr", ln.Addr().String()),
		logx.String("config", a.cfgm.Path()),
		logx.Int("admins", len(a.static.Admins())),
	)
	sdNotify(a.log, daemon.SdNotifyReady)
	return nil
}

// reloadLoop applies the logging section of each reloaded config. Everything
// else is fixed at startup.
func (a *App) reloadLoop(sub chan *config.Config) func(context.Context) {
	return func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				change := config.SummarizeConfigChange(last, newCfg)
				last = newCfg
				if len(change.Sections) == 0 {
					a.log.Info("config reloaded (no changes)")
					continue
				}
				if len(change.RestartRequired) > 0 {
					a.log.Warn("config change requires restart; keeping startup values",
						logx.String("sections", strings.Join(change.RestartRequired, ",")))
				}

				setLogTarget(a.logs, newCfg)
				a.logs.Apply(config.LogxConfig(newCfg))

				fields := append([]logx.Field{logx.String("changed", strings.Join(change.Sections, ","))}, change.Fields...)
				a.log.Info("config reloaded", fields...)
			}
		}
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	sup := a.Supervisor()
	if sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, daemon.SdNotifyStopping)

	sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("ops", 1*time.Second, func(c context.Context) error { a.ops.Stop(c); return nil })
	step("http", 5*time.Second, a.http.Shutdown)
	step("adapter", 2*time.Second, a.adapter.Stop)
	step("supervisor", 2*time.Second, func(c context.Context) error { return sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
