// Package render submits compositions to the serverless renderer and follows
// each render to completion.
package render

import (
	"fmt"
	"strings"
	"time"

	"captionstudio/internal/util"
)

// Config holds the fixed resource parameters of every render and the knobs
// of the polling loop.
type Config struct {
	Region          string
	SiteName        string
	MemoryMB        int
	DiskMB          int
	TimeoutSeconds  int
	MaxConcurrency  int
	RenderTimeout   time.Duration
	RemotionVersion string
	GatewayURL      string

	AccessKeyID     string
	SecretAccessKey string

	PollInterval  time.Duration
	StallPolls    int
	ClampProgress bool
}

// DefaultConfig returns the parameters the renderer is deployed with.
func DefaultConfig() Config {
	return Config{
		Region:          "us-east-1",
		SiteName:        "remotion-caption-platform",
		MemoryMB:        3009,
		DiskMB:          10240,
		TimeoutSeconds:  240,
		MaxConcurrency:  5,
		RenderTimeout:   120 * time.Second,
		RemotionVersion: "4.0.0",
		PollInterval:    time.Second,
		StallPolls:      DefaultStallPolls,
		ClampProgress:   true,
	}
}

// LoadConfig reads the render configuration from the environment. Missing
// credentials are not an error here; Submit reports them.
func LoadConfig() Config {
	d := DefaultConfig()
	return Config{
		Region:          util.FirstEnv(d.Region, "REMOTION_AWS_REGION", "AWS_REGION"),
		SiteName:        util.Env("REMOTION_SITE_NAME", d.SiteName),
		MemoryMB:        util.IntEnv("REMOTION_LAMBDA_RAM", d.MemoryMB),
		DiskMB:          util.IntEnv("REMOTION_LAMBDA_DISK", d.DiskMB),
		TimeoutSeconds:  util.IntEnv("REMOTION_LAMBDA_TIMEOUT", d.TimeoutSeconds),
		MaxConcurrency:  util.IntEnv("REMOTION_MAX_CONCURRENCY", d.MaxConcurrency),
		RenderTimeout:   util.MillisEnv("REMOTION_RENDER_TIMEOUT_MS", d.RenderTimeout),
		RemotionVersion: util.Env("REMOTION_VERSION", d.RemotionVersion),
		GatewayURL:      strings.TrimRight(util.Env("RENDER_GATEWAY_URL", ""), "/"),
		AccessKeyID:     util.FirstEnv("", "REMOTION_AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"),
		SecretAccessKey: util.FirstEnv("", "REMOTION_AWS_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"),
		PollInterval:    util.MillisEnv("RENDER_POLL_INTERVAL_MS", d.PollInterval),
		StallPolls:      util.IntEnv("RENDER_STALL_POLLS", d.StallPolls),
		ClampProgress:   util.BoolEnv("RENDER_CLAMP_PROGRESS", d.ClampProgress),
	}
}

// FunctionName is the deployed renderer function for these resources,
// e.g. remotion-render-4-0-0-mem3009mb-disk10240mb-240sec.
func (c Config) FunctionName() string {
	return fmt.Sprintf("remotion-render-%s-mem%dmb-disk%dmb-%dsec",
		strings.ReplaceAll(c.RemotionVersion, ".", "-"),
		c.MemoryMB, c.DiskMB, c.TimeoutSeconds)
}
