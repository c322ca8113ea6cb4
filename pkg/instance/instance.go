package instance

import (
	"os"

	"github.com/angelmondragon/catalog-backend/pkg/env"
)

const fallbackID = "catalog-0"

// GetID names this process in logs and lock leases: CATALOG_INSTANCE_ID,
// then the host name.
func GetID() string {
	if id := env.First("CATALOG_INSTANCE_ID", "HOSTNAME"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
