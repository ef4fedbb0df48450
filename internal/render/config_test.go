package render

import (
	"testing"
	"time"
)

func TestFunctionName(t *testing.T) {
	cfg := DefaultConfig()
	if got, want := cfg.FunctionName(), "remotion-render-4-0-0-mem3009mb-disk10240mb-240sec"; got != want {
		t.Errorf("FunctionName = %q, want %q", got, want)
	}

	cfg.RemotionVersion = "4.0.212"
	cfg.MemoryMB = 2048
	if got, want := cfg.FunctionName(), "remotion-render-4-0-212-mem2048mb-disk10240mb-240sec"; got != want {
		t.Errorf("FunctionName = %q, want %q", got, want)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, k := range []string{
			"REMOTION_AWS_REGION", "AWS_REGION", "REMOTION_SITE_NAME", "REMOTION_MAX_CONCURRENCY",
			"REMOTION_RENDER_TIMEOUT_MS", "REMOTION_AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID",
			"RENDER_POLL_INTERVAL_MS", "RENDER_STALL_POLLS", "RENDER_CLAMP_PROGRESS",
		} {
			t.Setenv(k, "")
		}
		cfg := LoadConfig()
		if cfg.Region != "us-east-1" || cfg.SiteName != "remotion-caption-platform" {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
		if cfg.MaxConcurrency != 5 || cfg.RenderTimeout != 120*time.Second {
			t.Errorf("unexpected render limits: %+v", cfg)
		}
		if cfg.PollInterval != time.Second || cfg.StallPolls != 60 || !cfg.ClampProgress {
			t.Errorf("unexpected polling defaults: %+v", cfg)
		}
		if cfg.AccessKeyID != "" {
			t.Errorf("expected no access key, got %q", cfg.AccessKeyID)
		}
	})

	t.Run("studio keys shadow generic ones", func(t *testing.T) {
		t.Setenv("AWS_REGION", "eu-west-1")
		t.Setenv("REMOTION_AWS_REGION", "eu-central-1")
		t.Setenv("AWS_ACCESS_KEY_ID", "generic")
		t.Setenv("REMOTION_AWS_ACCESS_KEY_ID", "")
		t.Setenv("RENDER_GATEWAY_URL", "http://gateway:9000/")
		t.Setenv("RENDER_POLL_INTERVAL_MS", "250")

		cfg := LoadConfig()
		if cfg.Region != "eu-central-1" {
			t.Errorf("Region = %q", cfg.Region)
		}
		if cfg.AccessKeyID != "generic" {
			t.Errorf("AccessKeyID = %q", cfg.AccessKeyID)
		}
		if cfg.GatewayURL != "http://gateway:9000" {
			t.Errorf("GatewayURL = %q", cfg.GatewayURL)
		}
		if cfg.PollInterval != 250*time.Millisecond {
			t.Errorf("PollInterval = %v", cfg.PollInterval)
		}
	})
}
