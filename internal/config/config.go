package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gridpilot-labs/gridpilot-go/internal/platform/env"
)

// Config carries all process-wide settings. It is assembled once in main and
// passed explicitly into each component constructor; nothing reads the
// environment after startup.
type Config struct {
	Service         string
	Addr            string
	ShutdownTimeout time.Duration

	Oracle  OracleConfig
	Engine  EngineConfig
	Archive ArchiveConfig

	TrajectoryDir string
	TaskCatalog   string
	PacingDelay   time.Duration

	// Zero means keep the per-task catalog values.
	CostBudget     float64
	ImageRetention int
}

// OracleConfig configures the multimodal completion oracle used by the
// extraction pipeline.
type OracleConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// EngineConfig configures the desktop-automation engine connection.
type EngineConfig struct {
	APIKey      string
	Endpoint    string
	SandboxName string
	TargetURL   string
}

// ArchiveConfig configures the optional trajectory object-store archive.
type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
}

func FromEnv() (Config, error) {
	shutdownTimeout, err := env.Duration("GRIDPILOT_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	pacing, err := env.Duration("GRIDPILOT_WS_PACING", 50*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	archiveEnabled, err := env.Bool("GRIDPILOT_ARCHIVE_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	archiveSSL, err := env.Bool("GRIDPILOT_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	costBudget, err := env.Float64("GRIDPILOT_COST_BUDGET", 0)
	if err != nil {
		return Config{}, err
	}
	imageRetention, err := env.Int("GRIDPILOT_IMAGE_RETENTION", 0)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Service:         "gridpilot-backend",
		Addr:            env.String("GRIDPILOT_HTTP_ADDR", ":8000"),
		ShutdownTimeout: shutdownTimeout,
		Oracle: OracleConfig{
			APIKey:  env.String("GRIDPILOT_ANTHROPIC_API_KEY", ""),
			Model:   env.String("GRIDPILOT_ORACLE_MODEL", "claude-sonnet-4-20250514"),
			BaseURL: env.String("GRIDPILOT_ORACLE_URL", "https://api.anthropic.com/v1/messages"),
		},
		Engine: EngineConfig{
			APIKey:      env.String("GRIDPILOT_CUA_API_KEY", ""),
			Endpoint:    env.String("GRIDPILOT_CUA_ENDPOINT", "wss://api.trycua.com/v1/connect"),
			SandboxName: env.String("GRIDPILOT_SANDBOX_NAME", "m-windows-i87anaus"),
			TargetURL:   env.String("GRIDPILOT_TARGET_URL", "https://www.powerworld.com/download-purchase/demo-software/simulator-demo-download"),
		},
		Archive: ArchiveConfig{
			Enabled:   archiveEnabled,
			Endpoint:  env.String("GRIDPILOT_MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: env.String("GRIDPILOT_MINIO_ACCESS_KEY", ""),
			SecretKey: env.String("GRIDPILOT_MINIO_SECRET_KEY", ""),
			Region:    env.String("GRIDPILOT_MINIO_REGION", "us-east-1"),
			UseSSL:    archiveSSL,
			Bucket:    env.String("GRIDPILOT_MINIO_BUCKET", "trajectories"),
		},
		TrajectoryDir:  env.String("GRIDPILOT_TRAJECTORY_DIR", "./trajectories"),
		TaskCatalog:    env.String("GRIDPILOT_TASK_CATALOG", ""),
		PacingDelay:    pacing,
		CostBudget:     costBudget,
		ImageRetention: imageRetention,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("addr is required")
	}
	if strings.TrimSpace(c.Oracle.APIKey) == "" {
		return errors.New("anthropic api key is required")
	}
	if strings.TrimSpace(c.Oracle.BaseURL) == "" {
		return errors.New("oracle url is required")
	}
	if strings.TrimSpace(c.Engine.APIKey) == "" {
		return errors.New("cua api key is required")
	}
	if strings.TrimSpace(c.Engine.SandboxName) == "" {
		return errors.New("sandbox name is required")
	}
	if strings.TrimSpace(c.TrajectoryDir) == "" {
		return errors.New("trajectory dir is required")
	}
	if c.PacingDelay < 0 {
		return fmt.Errorf("pacing delay must be non-negative: %v", c.PacingDelay)
	}
	if c.CostBudget < 0 {
		return fmt.Errorf("cost budget override must be non-negative: %v", c.CostBudget)
	}
	if c.ImageRetention < 0 {
		return fmt.Errorf("image retention override must be non-negative: %d", c.ImageRetention)
	}
	if err := c.Archive.Validate(); err != nil {
		return err
	}
	return nil
}

func (c ArchiveConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("archive endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("archive endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("archive access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("archive secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("archive bucket is required")
	}
	return nil
}
