package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  admins: [111, -100222333444, 111]
  poll_timeout: 15s
server:
  addr: "127.0.0.1:8088"
  read_header_timeout: 5s
logging:
  level: info
  console: true
`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TELEGRAM_TOKEN", "TELEGRAM_ADMINS", "SERVER_ADDR", "LOG_LEVEL"} {
		t.Setenv(EnvPrefix+"_"+k, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	m := NewConfigManager(writeFile(t, "config.yaml", sampleYAML))

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	want := []int64{111, -100222333444, 111}
	if !slices.Equal(cfg.Telegram.Admins, want) {
		t.Fatalf("admins = %v, want %v", cfg.Telegram.Admins, want)
	}
	if cfg.Server.Addr != "127.0.0.1:8088" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadJSON(t *testing.T) {
	clearEnv(t)
	body := `{"telegram":{"token":"t","admins":[1,2]},"server":{"addr":":8080"},"logging":{"level":"debug"}}`
	m := NewConfigManager(writeFile(t, "config.json", body))

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(cfg.Telegram.Admins, []int64{1, 2}) {
		t.Fatalf("admins = %v", cfg.Telegram.Admins)
	}
}

func TestDecodeRejectsUnknownFieldsAndTrailingData(t *testing.T) {
	t.Parallel()
	if _, err := Decode("c.json", []byte(`{"telegram":{"token":"t","bogus":1}}`)); err == nil {
		t.Fatal("expected unknown field error")
	}
	if _, err := Decode("c.json", []byte(`{"telegram":{"token":"t"}} {}`)); err == nil {
		t.Fatal("expected trailing data error")
	}
	if _, err := Decode("c.yaml", []byte("telegram:\n  tokn: x\n")); err == nil {
		t.Fatal("expected unknown field error for yaml")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALERTRELAY_TELEGRAM_TOKEN", "from-env")
	t.Setenv("ALERTRELAY_TELEGRAM_ADMINS", "5,-7")
	t.Setenv("ALERTRELAY_SERVER_ADDR", "0.0.0.0:9999")

	cfg, err := NewConfigManager(writeFile(t, "config.yaml", sampleYAML)).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, want env value", cfg.Telegram.Token)
	}
	if !slices.Equal(cfg.Telegram.Admins, []int64{5, -7}) {
		t.Fatalf("admins = %v", cfg.Telegram.Admins)
	}
	if cfg.Server.Addr != "0.0.0.0:9999" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not overwrite variables that are already set, even to "".
	_ = os.Unsetenv("ALERTRELAY_LOG_LEVEL")
	t.Cleanup(func() { _ = os.Unsetenv("ALERTRELAY_LOG_LEVEL") })

	p := writeFile(t, ".env", "ALERTRELAY_LOG_LEVEL=warn\n")
	if err := LoadDotEnv(p); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("ALERTRELAY_LOG_LEVEL"); got != "warn" {
		t.Fatalf("ALERTRELAY_LOG_LEVEL = %q", got)
	}
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "t", Admins: []int64{1}},
			Server:   ServerConfig{Addr: "127.0.0.1:8088"},
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "empty admins allowed", mutate: func(c *Config) { c.Telegram.Admins = nil }},
		{name: "missing token", mutate: func(c *Config) { c.Telegram.Token = " " }, wantErr: "telegram.token"},
		{name: "missing addr", mutate: func(c *Config) { c.Server.Addr = "" }, wantErr: "server.addr"},
		{name: "bad addr", mutate: func(c *Config) { c.Server.Addr = "localhost" }, wantErr: "server.addr"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Addr = "127.0.0.1:99999" }, wantErr: "server.addr"},
		{name: "bad duration", mutate: func(c *Config) { c.Server.ReadTimeout = "soon" }, wantErr: "server.read_timeout"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
		{name: "bad group log", mutate: func(c *Config) { c.Telegram.GroupLog = "chat" }, wantErr: "telegram.group_log"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := base()
			tt.mutate(c)
			err := Validate(c)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestStaticAdminsIsCopy(t *testing.T) {
	t.Parallel()
	cfg := &Config{Telegram: TelegramConfig{Token: "t", Admins: []int64{1, 2}}}
	st := NewStatic(cfg)

	cfg.Telegram.Admins[0] = 99
	got := st.Admins()
	got[1] = 42

	if again := st.Admins(); !slices.Equal(again, []int64{1, 2}) {
		t.Fatalf("admins = %v, want [1 2]", again)
	}
}

func TestReloadPublishesOnlyChanges(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, "config.yaml", sampleYAML)
	m := NewConfigManager(p)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	m.Reload()
	select {
	case <-ch:
		t.Fatal("unchanged config should not be published")
	default:
	}

	updated := strings.Replace(sampleYAML, "level: info", "level: debug", 1)
	if err := os.WriteFile(p, []byte(updated), 0o600); err != nil {
		t.Fatal(err)
	}
	m.Reload()
	select {
	case cfg := <-ch:
		if cfg.Logging.Level != "debug" {
			t.Fatalf("level = %q", cfg.Logging.Level)
		}
	default:
		t.Fatal("expected published config")
	}

	if err := os.WriteFile(p, []byte("telegram: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	m.Reload()
	if m.Get().Logging.Level != "debug" {
		t.Fatal("invalid file must not replace the committed config")
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{
		Telegram: TelegramConfig{Token: "secret-a", Admins: []int64{1}},
		Server:   ServerConfig{Addr: ":8080"},
		Logging:  LoggingConfig{Level: "info"},
	}
	newCfg := *oldCfg
	newCfg.Telegram.Token = "secret-b"
	newCfg.Logging.Level = "debug"

	ch := SummarizeConfigChange(oldCfg, &newCfg)
	if !slices.Equal(ch.Sections, []string{"telegram", "logging"}) {
		t.Fatalf("sections = %v", ch.Sections)
	}
	if !slices.Equal(ch.RestartRequired, []string{"telegram"}) {
		t.Fatalf("restart required = %v", ch.RestartRequired)
	}

	same := SummarizeConfigChange(oldCfg, oldCfg)
	if len(same.Sections) != 0 {
		t.Fatalf("identical configs reported changes: %v", same.Sections)
	}
}
