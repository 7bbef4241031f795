package storage

import (
	"fmt"

	"github.com/marco/formflow/internal/config"
)

// NewSink creates an ArtifactSink from configuration.
// Parameters:
//   - cfg: storage configuration; Type selects local or s3.
// Returns:
//   - ArtifactSink: initialized sink implementation.
//   - error: non-nil if the sink cannot be created.
func NewSink(cfg *config.StorageConfig) (ArtifactSink, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalSink(cfg.Dir), nil
	case "s3":
		return NewS3Sink(&S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
