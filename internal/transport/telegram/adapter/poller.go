package adapter

import tele "gopkg.in/telebot.v4"

// watchedPoller reports when the wrapped poller returns. telebot's Start keeps
// its dispatch loop alive after the poller is gone, so Run needs this signal to
// notice a dead update stream.
type watchedPoller struct {
	inner  tele.Poller
	exited chan struct{}
}

func newWatchedPoller(inner tele.Poller) *watchedPoller {
	return &watchedPoller{inner: inner, exited: make(chan struct{}, 1)}
}

func (p *watchedPoller) Poll(b *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	defer func() {
		select {
		case p.exited <- struct{}{}:
		default:
		}
	}()
	p.inner.Poll(b, dest, stop)
}

func (p *watchedPoller) drain() {
	select {
	case <-p.exited:
	default:
	}
}
