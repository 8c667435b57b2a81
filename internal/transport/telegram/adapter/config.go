package adapter

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Token string
	// PollTimeout is the getUpdates long-poll timeout. Zero means 10s.
	PollTimeout time.Duration
	// APIURL overrides the Bot API base URL (default https://api.telegram.org).
	APIURL string
	// Offline skips the getMe call on construction.
	Offline bool
	// Poller replaces the default long poller.
	Poller tele.Poller
}

const defaultPollTimeout = 10 * time.Second
