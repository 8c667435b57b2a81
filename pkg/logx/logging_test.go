package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	kit "alertrelay/internal/transport"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []kit.ChatTarget
	text []string
	got  chan struct{}
}

func (r *recordingSender) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	r.mu.Lock()
	r.sent = append(r.sent, to)
	r.text = append(r.text, text)
	r.mu.Unlock()
	select {
	case r.got <- struct{}{}:
	default:
	}
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func TestNewJSONWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "debug").With(String("comp", "test"))

	log.Info("admins were informed", String("from", "sensor-1"), Int("admins", 2))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if rec["message"] != "admins were informed" {
		t.Fatalf("message = %v", rec["message"])
	}
	if rec["comp"] != "test" || rec["from"] != "sensor-1" {
		t.Fatalf("unexpected fields: %v", rec)
	}
	if _, ok := rec["caller"]; !ok {
		t.Fatalf("expected caller field, got %v", rec)
	}
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "warn")
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info line leaked through warn logger: %q", buf.String())
	}
	if !log.Enabled(LevelError) || log.Enabled(LevelDebug) {
		t.Fatalf("Enabled() disagrees with configured level")
	}
}

func TestTelegramSinkFiltersByLevel(t *testing.T) {
	snd := &recordingSender{got: make(chan struct{}, 4)}
	svc, log := New(Config{Level: "debug"}, snd)
	t.Cleanup(func() { _ = svc.Close() })

	svc.SetTelegramTarget(-100123, 7)
	svc.Apply(Config{Level: "debug", Telegram: TelegramConfig{Enabled: true, MinLevel: "warn", RatePerSec: 10}})

	log.Info("not forwarded")
	log.Error("send failed", String("admin", "111"))

	select {
	case <-snd.got:
	case <-time.After(2 * time.Second):
		t.Fatal("telegram sink did not forward the error line")
	}

	snd.mu.Lock()
	defer snd.mu.Unlock()
	if len(snd.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(snd.sent))
	}
	if snd.sent[0].ChatID != -100123 || snd.sent[0].ThreadID != 7 {
		t.Fatalf("target = %+v", snd.sent[0])
	}
	if !strings.HasPrefix(snd.text[0], "[ERROR] send failed") {
		t.Fatalf("text = %q", snd.text[0])
	}
}

func TestZeroLoggerIsNoop(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	l.Error("nothing happens")
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"", "info", "WARN", "warning", "trace"} {
		if !ValidLevel(lvl) {
			t.Fatalf("ValidLevel(%q) = false", lvl)
		}
	}
	if ValidLevel("loud") {
		t.Fatal("ValidLevel(loud) = true")
	}
}
