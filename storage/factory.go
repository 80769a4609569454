package storage

import (
	"context"
	"fmt"
)

type Config struct {
	Driver    string // local | minio
	UploadDir string
	BaseURL   string
	Minio     MinioConfig
}

// Open builds the FileStorage selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (FileStorage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStorage(cfg.UploadDir, cfg.BaseURL)
	case "minio":
		return NewMinioStorage(ctx, cfg.Minio)
	}
	return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Driver)
}
