package ops

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	logx "alertrelay/pkg/logx"
)

func waitForAddr(t *testing.T, s *Service) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a := s.Addr(); a != "" {
			return a
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("ops listener did not come up")
	return ""
}

func get(t *testing.T, url, bearer string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestServesHealthAndMetricsWithToken(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("alertrelay_alerts_total 0\n"))
	})
	health := func() any { return map[string]string{"app": "ok"} }
	s := New(Config{Enabled: true, Addr: "127.0.0.1:0", Token: "s3cret"}, logx.Nop(), health, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Start(ctx)
	t.Cleanup(func() { s.Stop(context.Background()) })

	base := "http://" + waitForAddr(t, s)

	if code, _ := get(t, base+"/healthz", ""); code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated /healthz = %d, want 401", code)
	}
	code, body := get(t, base+"/healthz", "s3cret")
	if code != http.StatusOK || !strings.Contains(body, `"app":"ok"`) {
		t.Fatalf("/healthz = %d %q", code, body)
	}
	code, body = get(t, base+"/metrics?token=s3cret", "")
	if code != http.StatusOK || !strings.Contains(body, "alertrelay_alerts_total") {
		t.Fatalf("/metrics = %d %q", code, body)
	}
	if code, _ := get(t, base+"/debug/pprof/", "s3cret"); code != http.StatusNotFound {
		t.Fatalf("pprof disabled but /debug/pprof/ = %d", code)
	}
}

func TestRefusesPublicBindWithoutToken(t *testing.T) {
	s := New(Config{Enabled: true, Addr: "0.0.0.0:0"}, logx.Nop(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	t.Cleanup(func() { s.Stop(context.Background()) })

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, ok := s.Supervisor().Stats("ops.serve"); ok && st.LastErr != "" {
			if s.Addr() != "" {
				t.Fatal("listener should not be bound")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected ops.serve to fail")
}

func TestDisabledIsNoop(t *testing.T) {
	s := New(Config{}, logx.Nop(), nil, nil)
	s.Start(context.Background())
	if s.Supervisor() != nil {
		t.Fatal("disabled service should not start")
	}
	s.Stop(context.Background())
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	for addr, want := range map[string]bool{
		"127.0.0.1:9090": true,
		"localhost:1":    true,
		"[::1]:80":       true,
		":9090":          false,
		"0.0.0.0:9090":   false,
		"10.0.0.1:9090":  false,
		"bogus":          false,
	} {
		if got := isLoopbackAddr(addr); got != want {
			t.Fatalf("isLoopbackAddr(%q) = %v, want %v", addr, got, want)
		}
	}
}
