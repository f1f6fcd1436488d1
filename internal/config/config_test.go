package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Service: "gridpilot-backend",
		Addr:    ":8000",
		Oracle: OracleConfig{
			APIKey:  "sk-test",
			Model:   "claude-sonnet-4-20250514",
			BaseURL: "https://api.anthropic.com/v1/messages",
		},
		Engine: EngineConfig{
			APIKey:      "cua-test",
			Endpoint:    "wss://example.test/connect",
			SandboxName: "m-windows-test",
		},
		TrajectoryDir: "./trajectories",
		PacingDelay:   50 * time.Millisecond,
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "missing oracle key",
			mutate:  func(c *Config) { c.Oracle.APIKey = "" },
			wantErr: "anthropic api key",
		},
		{
			name:    "missing engine key",
			mutate:  func(c *Config) { c.Engine.APIKey = " " },
			wantErr: "cua api key",
		},
		{
			name:    "missing sandbox",
			mutate:  func(c *Config) { c.Engine.SandboxName = "" },
			wantErr: "sandbox name",
		},
		{
			name:    "negative pacing",
			mutate:  func(c *Config) { c.PacingDelay = -time.Second },
			wantErr: "pacing delay",
		},
		{
			name:    "negative cost budget override",
			mutate:  func(c *Config) { c.CostBudget = -1 },
			wantErr: "cost budget override",
		},
		{
			name:    "negative image retention override",
			mutate:  func(c *Config) { c.ImageRetention = -3 },
			wantErr: "image retention override",
		},
		{
			name: "archive enabled without credentials",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Endpoint = "localhost:9000"
				c.Archive.Bucket = "trajectories"
			},
			wantErr: "archive access key",
		},
		{
			name: "archive endpoint with scheme",
			mutate: func(c *Config) {
				c.Archive = ArchiveConfig{
					Enabled:   true,
					Endpoint:  "http://localhost:9000",
					AccessKey: "a",
					SecretKey: "b",
					Bucket:    "trajectories",
				}
			},
			wantErr: "must not include scheme",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("GRIDPILOT_ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("GRIDPILOT_CUA_API_KEY", "cua-test")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Addr != ":8000" {
		t.Fatalf("Addr = %q, want :8000", cfg.Addr)
	}
	if cfg.PacingDelay != 50*time.Millisecond {
		t.Fatalf("PacingDelay = %v, want 50ms", cfg.PacingDelay)
	}
	if cfg.Archive.Enabled {
		t.Fatal("archive should default to disabled")
	}
	if cfg.CostBudget != 0 || cfg.ImageRetention != 0 {
		t.Fatalf("budget overrides = %v/%d, want zero (catalog values win)", cfg.CostBudget, cfg.ImageRetention)
	}
}

func TestFromEnvBudgetOverrides(t *testing.T) {
	t.Setenv("GRIDPILOT_ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("GRIDPILOT_CUA_API_KEY", "cua-test")
	t.Setenv("GRIDPILOT_COST_BUDGET", "25.5")
	t.Setenv("GRIDPILOT_IMAGE_RETENTION", "8")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.CostBudget != 25.5 {
		t.Fatalf("CostBudget = %v, want 25.5", cfg.CostBudget)
	}
	if cfg.ImageRetention != 8 {
		t.Fatalf("ImageRetention = %d, want 8", cfg.ImageRetention)
	}
}
