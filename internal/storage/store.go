// Package storage persists transcription artifacts.
package storage

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/mfenderov/pageocr/pkg/models"
)

// Store writes artifacts under a fixed root. Keys are slash-separated paths
// relative to the root.
type Store interface {
	// Put writes data at key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) (models.FileHandle, error)
	// Location returns the full location of key, as reported in FileHandles.
	Location(key string) string
}

// Config selects and configures a Store.
type Config struct {
	Driver          string // "fs" or "s3"
	Root            string
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Open creates the Store selected by config.Driver.
func Open(ctx context.Context, config Config) (Store, error) {
	switch config.Driver {
	case "", "fs":
		return NewFS(afero.NewOsFs(), config.Root), nil
	case "s3":
		s, err := NewS3(config)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", config.Driver)
	}
}
