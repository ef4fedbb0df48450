package storage

import (
	"context"
	"fmt"

	"captionstudio/internal/adapters/storage/gdrive"
	"captionstudio/internal/adapters/storage/localfs"
	"captionstudio/internal/config"
	"captionstudio/internal/pkg/errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// NewProvider builds the storage provider selected by STORAGE_PROVIDER.
func NewProvider(ctx context.Context, cfg config.Storage, publicBaseURL string) (Provider, error) {
	switch cfg.Provider {
	case "", "localfs":
		return localfs.New(cfg.UploadDir, publicBaseURL), nil

	case "gdrive":
		return newGDriveProvider(ctx, cfg)

	default:
		return nil, errors.Configuration("STORAGE_PROVIDER", fmt.Sprintf("unknown storage provider: %s", cfg.Provider))
	}
}

func newGDriveProvider(ctx context.Context, cfg config.Storage) (Provider, error) {
	for key, v := range map[string]string{
		"GDRIVE_CLIENT_ID":     cfg.GDriveClientID,
		"GDRIVE_CLIENT_SECRET": cfg.GDriveClientSecret,
		"GDRIVE_REFRESH_TOKEN": cfg.GDriveRefreshToken,
	} {
		if v == "" {
			return nil, errors.Configuration(key, key+" is required for gdrive storage")
		}
	}

	conf := &oauth2.Config{
		ClientID:     cfg.GDriveClientID,
		ClientSecret: cfg.GDriveClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: cfg.GDriveRefreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, cfg.GDriveFolderID), nil
}
