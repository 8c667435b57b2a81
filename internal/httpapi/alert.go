package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"alertrelay/internal/notifier"
	"alertrelay/internal/observability/metrics"
	logx "alertrelay/pkg/logx"
)

const (
	alertDone      = "Alert done"
	genericFailure = "Something went wrong!"
)

// Broadcaster delivers one alert to every admin.
type Broadcaster interface {
	Broadcast(ctx context.Context, a notifier.Alert) error
}

type AlertController struct {
	notifier Broadcaster
	log      logx.Logger
	metrics  *metrics.Metrics
}

func NewAlertController(n Broadcaster, log logx.Logger, m *metrics.Metrics) *AlertController {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &AlertController{notifier: n, log: log, metrics: m}
}

func (c *AlertController) RegisterRoutes(router *gin.Engine) {
	router.POST("/notify/fire", c.fire)
}

// fire answers with a fixed plain-text body; failure details only go to the log.
func (c *AlertController) fire(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		c.log.Error("failed to read alert request body", logx.Err(err))
		c.metrics.Alert(metrics.AlertBadRequest)
		ctx.String(http.StatusInternalServerError, genericFailure)
		return
	}

	from, theme, text, err := decodeAlertRequest(body)
	if err != nil {
		c.log.Error("invalid alert request", logx.Err(err), logx.Int("body_len", len(body)))
		c.metrics.Alert(metrics.AlertBadRequest)
		ctx.String(http.StatusInternalServerError, genericFailure)
		return
	}

	// A client hanging up mid-broadcast must not cut delivery short.
	bctx := context.WithoutCancel(ctx.Request.Context())
	if err := c.notifier.Broadcast(bctx, notifier.Alert{From: from, Theme: theme, Text: text}); err != nil {
		c.log.Error("alert broadcast failed", logx.String("from", from), logx.String("theme", theme), logx.Err(err))
		c.metrics.Alert(metrics.AlertSendFailed)
		ctx.String(http.StatusInternalServerError, genericFailure)
		return
	}

	c.metrics.Alert(metrics.AlertOK)
	ctx.String(http.StatusOK, alertDone)
}
