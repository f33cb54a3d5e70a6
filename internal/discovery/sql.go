package discovery

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/modelsync/modelsync/internal/config"
)

// openSQL opens a database/sql handle for driverName and verifies it.
func openSQL(ctx context.Context, driverName string, cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout(cfg))
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s: %w", driverName, err)
	}
	return db, nil
}
