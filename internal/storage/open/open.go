// Package open selects a storage backend from configuration.
package open

import (
	"context"
	"fmt"

	"github.com/aanand-mishra/student-management/internal/config"
	"github.com/aanand-mishra/student-management/internal/storage"
	"github.com/aanand-mishra/student-management/internal/storage/postgres"
	"github.com/aanand-mishra/student-management/internal/storage/sqlite"
)

// Repository opens the backend named by cfg.Driver. The rest of the
// application only ever sees the storage.StudentRepository interface.
func Repository(ctx context.Context, cfg config.Storage) (storage.StudentRepository, error) {
	var (
		repo storage.StudentRepository
		err  error
	)

	switch cfg.Driver {
	case config.DriverSQLite:
		repo, err = sqlite.New(cfg)
	case config.DriverPostgres:
		repo, err = postgres.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("open.Repository: unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	return repo, nil
}
