// Package platform is the client for the managed backend: auth endpoints,
// row-scoped record tables, object storage, and the realtime change feed.
// Everything behind it is opaque; this package only shapes requests and
// classifies failures.
package platform

import (
	"net/http"
	"time"

	"worklink/internal/config"
)

// Client bundles the managed-platform surfaces used by the SDK.
type Client struct {
	Auth    *AuthClient
	Records *RecordsClient
	Storage ObjectStorage
	Feed    *Feed
}

// New builds a platform client from configuration. Storage errors are
// returned eagerly because a bad bucket configuration should fail startup,
// not the first upload.
func New(cfg *config.Config) (*Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	storage, err := NewS3Storage(S3Config{
		Region:    cfg.StorageRegion,
		Bucket:    cfg.StorageBucket,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Endpoint:  cfg.StorageEndpoint,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		Auth:    NewAuthClient(cfg.PlatformURL, cfg.PlatformAnonKey, httpClient),
		Records: NewRecordsClient(cfg.PlatformURL, cfg.PlatformAnonKey, httpClient),
		Storage: storage,
		Feed:    NewFeed(cfg.RealtimeURL, cfg.PlatformAnonKey),
	}, nil
}
