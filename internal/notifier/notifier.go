package notifier

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"alertrelay/internal/observability/metrics"
	kit "alertrelay/internal/transport"
	"alertrelay/internal/transport/telegram/adapter"
	logx "alertrelay/pkg/logx"
)

// Alert is one inbound alert. Only Text is delivered; From and Theme are logged.
type Alert struct {
	From  string
	Theme string
	Text  string
}

type Notifier struct {
	sender  kit.Sender
	admins  []int64
	log     logx.Logger
	metrics *metrics.Metrics
}

func New(sender kit.Sender, admins []int64, log logx.Logger, m *metrics.Metrics) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{
		sender:  sender,
		admins:  append([]int64(nil), admins...),
		log:     log,
		metrics: m,
	}
}

// Broadcast sends the MarkdownV2-escaped alert text to every admin in order,
// one message per admin. It returns the first send error, wrapped with the
// admin ID that failed.
func (n *Notifier) Broadcast(ctx context.Context, a Alert) error {
	text := adapter.EscapeMarkdownV2(a.Text)
	opt := &kit.SendOptions{ParseMode: string(tele.ModeMarkdownV2), Whole: true}

	for i, admin := range n.admins {
		if _, err := n.sender.SendText(ctx, kit.ChatTarget{ChatID: admin}, text, opt); err != nil {
			n.metrics.MessageFailed()
			n.log.Debug("admin send failed; aborting broadcast",
				logx.Int64("admin", admin),
				logx.Int("delivered", i),
				logx.Int("remaining", len(n.admins)-i-1),
				logx.Err(err),
			)
			return fmt.Errorf("notify admin %d: %w", admin, err)
		}
		n.metrics.MessageSent()
	}

	n.log.Info("admins were informed",
		logx.String("from", a.From),
		logx.String("theme", a.Theme),
		logx.Int("admins", len(n.admins)),
	)
	return nil
}
