package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "alertrelay/internal/transport"
	logx "alertrelay/pkg/logx"
)

// ErrPollerStopped is returned by Run when the update stream ends on its own.
var ErrPollerStopped = errors.New("telegram poller stopped unexpectedly")

// Adapter owns the bot client. The same *tele.Bot serves outbound sends
// (alerts, log sink) and the inbound update loop.
type Adapter struct {
	cfg Config
	log logx.Logger

	bot    *tele.Bot
	poller *watchedPoller

	hook atomic.Value // stores kit.ErrorHook

	runMu   sync.Mutex
	running bool
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	inner := cfg.Poller
	if inner == nil {
		inner = &tele.LongPoller{Timeout: timeout}
	}

	a := &Adapter{cfg: cfg, log: log, poller: newWatchedPoller(inner)}
	a.hook.Store(kit.ErrorHook(nil))

	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		Poller:  a.poller,
		Offline: cfg.Offline,
		OnError: a.onError,
	})
	if err != nil {
		return nil, err
	}
	a.bot = b

	// Middlewares apply to handlers registered after them.
	a.bot.Use(a.recoverMiddleware, a.requestLogMiddleware)
	a.bot.Handle(tele.OnText, ignoreUpdate)
	a.bot.Handle(tele.OnCallback, ignoreUpdate)
	return a, nil
}

// SetLogger replaces the adapter logger. Call it before Run.
func (a *Adapter) SetLogger(log logx.Logger) {
	if log.IsZero() {
		log = logx.Nop()
	}
	a.log = log
}

// SetErrorHook replaces the hook that receives update-scoped failures.
// A nil hook falls back to logging.
func (a *Adapter) SetErrorHook(h kit.ErrorHook) { a.hook.Store(h) }

// Use appends middlewares. They only wrap handlers registered afterwards.
func (a *Adapter) Use(mw ...tele.MiddlewareFunc) { a.bot.Use(mw...) }

// Handle registers h for endpoint, replacing any previous handler.
func (a *Adapter) Handle(endpoint any, h tele.HandlerFunc, mw ...tele.MiddlewareFunc) {
	a.bot.Handle(endpoint, h, mw...)
}

// Run consumes updates until ctx is cancelled. Each update is handled on its
// own goroutine. If the poller ends while ctx is still live, Run returns
// ErrPollerStopped.
func (a *Adapter) Run(ctx context.Context) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return errors.New("telegram update loop already running")
	}
	a.running = true
	a.runMu.Unlock()
	defer func() {
		a.runMu.Lock()
		a.running = false
		a.runMu.Unlock()
	}()

	a.poller.drain()
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.bot.Start()
	}()
	a.log.Info("polling started")

	select {
	case <-ctx.Done():
		a.bot.Stop()
		<-done
		a.log.Info("polling stopped")
		return nil
	case <-a.poller.exited:
		a.bot.Stop()
		<-done
		if ctx.Err() != nil {
			return nil
		}
		return ErrPollerStopped
	}
}

func (a *Adapter) onError(err error, c tele.Context) {
	ue := kit.UpdateError{Err: err}
	if c != nil {
		ue.UpdateID = c.Update().ID
		if chat := c.Chat(); chat != nil {
			ue.ChatID = chat.ID
		}
	}

	h, _ := a.hook.Load().(kit.ErrorHook)
	if h == nil {
		a.log.Error("bot update failed", logx.Int("update_id", ue.UpdateID), logx.Int64("chat_id", ue.ChatID), logx.Err(err))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("error hook panicked", logx.Any("panic", r))
		}
	}()
	h(ue)
}

// ignoreUpdate is the default handler: no business logic, the request log
// middleware records the update.
func ignoreUpdate(tele.Context) error { return nil }

func toUpdate(c tele.Context) kit.Update {
	u := c.Update()
	up := kit.Update{ID: u.ID, Kind: kit.UpdateOther}
	switch {
	case u.Callback != nil:
		up.Kind = kit.UpdateCallback
	case u.Message != nil:
		up.Kind = kit.UpdateMessage
	}
	if m := c.Message(); m != nil {
		msg := &kit.Message{ID: m.ID, ThreadID: m.ThreadID, Text: m.Text}
		if m.Chat != nil {
			msg.ChatID = m.Chat.ID
		}
		if s := c.Sender(); s != nil {
			msg.FromID = s.ID
			msg.FromUsername = s.Username
		}
		up.Message = msg
	}
	return up
}

const telegramTextLimit = 4000

// splitTelegramText splits long messages into chunks Telegram accepts.
// It prefers newline boundaries, and never leaves a MarkdownV2 escape
// backslash dangling at the end of a chunk.
func splitTelegramText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}
	mdv2 := strings.EqualFold(parseMode, string(tele.ModeMarkdownV2))

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))

		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		if mdv2 && end < len(rs) {
			n := 0
			for i := end - 1; i >= start && rs[i] == '\\'; i-- {
				n++
			}
			if n%2 == 1 && end-1 > start {
				end--
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

// SendText delivers text to one chat, split into several messages if needed
// unless opt.Whole is set. The returned ref points at the first message.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}

	chunks := []string{text}
	if !opt.Whole {
		chunks = splitTelegramText(text, telegramTextLimit, opt.ParseMode)
	}
	chat := &tele.Chat{ID: to.ChatID}

	var first kit.MessageRef
	for i, chunk := range chunks {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return first, err
			}
		}

		msg, err := a.bot.Send(chat, chunk, &tele.SendOptions{
			ParseMode:             tele.ParseMode(opt.ParseMode),
			DisableWebPagePreview: opt.DisablePreview,
			ThreadID:              to.ThreadID,
		})
		if err != nil {
			return first, fmt.Errorf("send to chat %d: %w", to.ChatID, err)
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// Stop waits, up to the ctx deadline, for Run to return after its context
// was cancelled.
func (a *Adapter) Stop(ctx context.Context) error {
	t := time.NewTicker(20 * time.Millisecond)
	defer t.Stop()
	for {
		a.runMu.Lock()
		running := a.running
		a.runMu.Unlock()
		if !running {
			return nil
		}
		select {
		case <-ctx.Done():
			a.log.Warn("telegram stop timed out", logx.Err(ctx.Err()))
			return nil
		case <-t.C:
		}
	}
}
