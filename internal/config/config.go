// Package config loads the environment shared by the api and the worker.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"captionstudio/internal/pkg/errors"
	"captionstudio/internal/render"
	"captionstudio/internal/util"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env.local then .env from the working directory, if
// present. Variables already set in the environment win.
func LoadDotEnv() error {
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "config.dotenv", "load %s", f)
		}
	}
	return nil
}

type HTTP struct {
	Port          string
	PublicBaseURL string
	CORSOrigins   []string
}

type Storage struct {
	Provider  string
	UploadDir string

	GDriveClientID     string
	GDriveClientSecret string
	GDriveRefreshToken string
	GDriveFolderID     string
}

type Transcription struct {
	APIKey  string
	BaseURL string
}

// Config is the typed view of the environment.
type Config struct {
	HTTP          HTTP
	DatabaseURL   string
	RedisAddr     string
	QueueName     string
	Storage       Storage
	Render        render.Config
	Transcription Transcription
}

// Load reads Config from the environment. DATABASE_URL and REDIS_ADDR are
// required.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTP{
			Port:          util.Env("HTTP_PORT", "8080"),
			PublicBaseURL: strings.TrimRight(util.Env("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			CORSOrigins:   util.CSVEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		DatabaseURL: util.Env("DATABASE_URL", ""),
		RedisAddr:   util.Env("REDIS_ADDR", ""),
		QueueName:   util.Env("RENDER_QUEUE_NAME", "captions:renders"),
		Storage: Storage{
			Provider:           util.Env("STORAGE_PROVIDER", "localfs"),
			UploadDir:          util.Env("UPLOAD_DIR", filepath.Join(os.TempDir(), "remotion-uploads")),
			GDriveClientID:     util.Env("GDRIVE_CLIENT_ID", ""),
			GDriveClientSecret: util.Env("GDRIVE_CLIENT_SECRET", ""),
			GDriveRefreshToken: util.Env("GDRIVE_REFRESH_TOKEN", ""),
			GDriveFolderID:     util.Env("GDRIVE_FOLDER_ID", ""),
		},
		Render: render.LoadConfig(),
		Transcription: Transcription{
			APIKey:  util.Env("ASSEMBLYAI_API_KEY", ""),
			BaseURL: util.Env("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com"),
		},
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.Configuration("DATABASE_URL", "DATABASE_URL is required")
	}
	if cfg.RedisAddr == "" {
		return cfg, errors.Configuration("REDIS_ADDR", "REDIS_ADDR is required")
	}
	return cfg, nil
}
