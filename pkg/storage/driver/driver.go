package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/catalog-backend/pkg/config"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/storage"
	"github.com/angelmondragon/catalog-backend/pkg/storage/gcs"
	"github.com/angelmondragon/catalog-backend/pkg/storage/memory"
)

// Open builds the object store selected by CATALOG_STORAGE_DRIVER.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (storage.ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case config.StorageDriverGCS, "":
		client, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		return client, nil
	case config.StorageDriverMemory:
		if cfg.App.IsProd() {
			return nil, fmt.Errorf("%s=%s is not allowed in %s", config.EnvStorageDriver, config.StorageDriverMemory, config.AppEnvProd)
		}
		logg.Warn(ctx, "using in-memory object store; images are lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported %s %q", config.EnvStorageDriver, cfg.Storage.Driver)
	}
}
