package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
	UpdateOther    UpdateKind = "other"
)

// Update is a platform-neutral summary of one inbound chat event.
type Update struct {
	ID      int
	Kind    UpdateKind
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	Text         string
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	// Whole sends text in exactly one message. Text over the platform limit
	// is rejected by the platform instead of being split.
	Whole bool
}

// Sender delivers one text message to one chat.
// Implementations must be safe for concurrent use.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// UpdateError describes a failure that happened while the bot update loop was
// processing one update (or polling for the next one, in which case UpdateID
// and ChatID are zero).
type UpdateError struct {
	UpdateID int
	ChatID   int64
	Err      error
}

// ErrorHook receives update-scoped failures. It has no way to influence the
// update loop; it is a logging sink.
type ErrorHook func(UpdateError)
