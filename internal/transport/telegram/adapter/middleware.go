package adapter

import (
	"fmt"
	"runtime/debug"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "alertrelay/pkg/logx"
)

// recoverMiddleware turns a handler panic into an error so it reaches the
// error hook like any other handler failure.
func (a *Adapter) recoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				a.log.Debug("handler panic recovered", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		return next(c)
	}
}

const slowUpdate = 750 * time.Millisecond

// requestLogMiddleware logs each handled update with its duration.
func (a *Adapter) requestLogMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		err := next(c)
		d := time.Since(start)
		if d < slowUpdate && !a.log.Enabled(logx.LevelDebug) {
			return err
		}

		up := toUpdate(c)
		fields := []logx.Field{
			logx.Int("update_id", up.ID),
			logx.String("kind", string(up.Kind)),
			logx.Duration("dur", d),
		}
		if m := up.Message; m != nil {
			fields = append(fields, logx.Int64("chat_id", m.ChatID), logx.Int("thread_id", m.ThreadID), logx.Int64("from_id", m.FromID))
		}
		switch {
		case err != nil:
			a.log.Debug("update failed", fields...)
		case d >= slowUpdate:
			a.log.Info("update handled (slow)", fields...)
		default:
			a.log.Debug("update handled", fields...)
		}
		return err
	}
}
