package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "dropwatch" {
		t.Errorf("app name = %q", cfg.App.Name)
	}
	if cfg.Scheduler.CheckCron != "@hourly" {
		t.Errorf("check cron = %q", cfg.Scheduler.CheckCron)
	}
	if cfg.Monitor.FailureThreshold != 3 {
		t.Errorf("failure threshold = %d", cfg.Monitor.FailureThreshold)
	}
	if cfg.Monitor.CheckDelay != 2*time.Second {
		t.Errorf("check delay = %s", cfg.Monitor.CheckDelay)
	}
	if cfg.Resilience.WriteOpenTimeout != time.Minute {
		t.Errorf("write open timeout = %s", cfg.Resilience.WriteOpenTimeout)
	}
	if cfg.AI.Enabled {
		t.Error("ai should be disabled by default")
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
scheduler:
  check_cron: "@every 30m"
monitor:
  check_delay: 5s
  failure_threshold: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scheduler.CheckCron != "@every 30m" {
		t.Errorf("check cron = %q", cfg.Scheduler.CheckCron)
	}
	if cfg.Monitor.CheckDelay != 5*time.Second {
		t.Errorf("check delay = %s", cfg.Monitor.CheckDelay)
	}
	if cfg.Monitor.FailureThreshold != 5 {
		t.Errorf("failure threshold = %d", cfg.Monitor.FailureThreshold)
	}
	// Untouched sections keep their defaults.
	if cfg.Scheduler.SummaryCron != "@daily" {
		t.Errorf("summary cron = %q", cfg.Scheduler.SummaryCron)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero failure threshold", func(c *Config) { c.Monitor.FailureThreshold = 0 }},
		{"negative check delay", func(c *Config) { c.Monitor.CheckDelay = -time.Second }},
		{"missing check cron", func(c *Config) { c.Scheduler.CheckCron = "" }},
		{"ai enabled without key", func(c *Config) { c.AI.Enabled = true; c.AI.APIKey = "" }},
		{"telegram enabled without token", func(c *Config) { c.Alerting.Telegram.Enabled = true; c.Alerting.Telegram.ChatID = "x" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 500}}
	if got := cfg.ResolveMaxPoints(0); got != 500 {
		t.Errorf("got %d, want 500", got)
	}
	if got := cfg.ResolveMaxPoints(50); got != 50 {
		t.Errorf("got %d, want 50", got)
	}
}
