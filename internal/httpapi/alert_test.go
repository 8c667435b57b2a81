package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"alertrelay/internal/notifier"
	"alertrelay/internal/observability/metrics"
	logx "alertrelay/pkg/logx"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	alerts []notifier.Alert
	err    error
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, a notifier.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return f.err
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func newTestHandler(b Broadcaster) http.Handler {
	return NewServer(Config{}, logx.Nop(), NewAlertController(b, logx.Nop(), metrics.New())).Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestFireSuccess(t *testing.T) {
	t.Parallel()
	b := &fakeBroadcaster{}
	rec := do(newTestHandler(b), http.MethodPost, "/notify/fire", `{"from":"mon","theme":"disk","text":"disk 95%!","extra":1}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "Alert done" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type = %q", ct)
	}
	if b.count() != 1 {
		t.Fatalf("broadcasts = %d, want 1", b.count())
	}
	want := notifier.Alert{From: "mon", Theme: "disk", Text: "disk 95%!"}
	if b.alerts[0] != want {
		t.Fatalf("alert = %+v, want %+v", b.alerts[0], want)
	}
}

func TestFireAcceptsEmptyStrings(t *testing.T) {
	t.Parallel()
	b := &fakeBroadcaster{}
	rec := do(newTestHandler(b), http.MethodPost, "/notify/fire", `{"from":"","theme":"","text":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if b.count() != 1 {
		t.Fatalf("broadcasts = %d, want 1", b.count())
	}
}

func TestFireRejectsMalformedBodies(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{name: "missing text", body: `{"from":"a","theme":"b"}`},
		{name: "null field", body: `{"from":"a","theme":"b","text":null}`},
		{name: "wrong type", body: `{"from":"a","theme":"b","text":5}`},
		{name: "not json", body: `hello`},
		{name: "empty", body: ``},
		{name: "array", body: `[]`},
		{name: "null", body: `null`},
		{name: "trailing data", body: `{"from":"a","theme":"b","text":"c"} x`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := &fakeBroadcaster{}
			rec := do(newTestHandler(b), http.MethodPost, "/notify/fire", tt.body)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			if rec.Body.String() != "Something went wrong!" {
				t.Fatalf("body = %q", rec.Body.String())
			}
			if b.count() != 0 {
				t.Fatal("malformed request must not broadcast")
			}
		})
	}
}

func TestFireBroadcastFailure(t *testing.T) {
	t.Parallel()
	b := &fakeBroadcaster{err: errors.New("notify admin 2: chat not found")}
	rec := do(newTestHandler(b), http.MethodPost, "/notify/fire", `{"from":"a","theme":"b","text":"c"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := rec.Body.String(); got != "Something went wrong!" {
		t.Fatalf("body = %q (error details must not leak)", got)
	}
}

func TestOtherRoutesAreNotFound(t *testing.T) {
	t.Parallel()
	h := newTestHandler(&fakeBroadcaster{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/notify/fire"},
		{http.MethodPut, "/notify/fire"},
		{http.MethodPost, "/notify"},
		{http.MethodGet, "/"},
	} {
		rec := do(h, tc.method, tc.path, `{}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s status = %d, want 404", tc.method, tc.path, rec.Code)
		}
	}
}

type panicBroadcaster struct{}

func (panicBroadcaster) Broadcast(context.Context, notifier.Alert) error { panic("boom") }

func TestPanicIsRecovered(t *testing.T) {
	t.Parallel()
	rec := do(newTestHandler(panicBroadcaster{}), http.MethodPost, "/notify/fire", `{"from":"a","theme":"b","text":"c"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	b := &fakeBroadcaster{}
	srv := NewServer(Config{ReadHeaderTimeout: time.Second}, logx.Nop(), NewAlertController(b, logx.Nop(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/notify/fire", "application/json",
		strings.NewReader(`{"from":"a","theme":"b","text":"c"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeReportsListenerFailure(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer(Config{}, logx.Nop(), NewAlertController(&fakeBroadcaster{}, logx.Nop(), nil))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()
	time.Sleep(50 * time.Millisecond)
	_ = ln.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error after listener closed")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after listener close")
	}
}
