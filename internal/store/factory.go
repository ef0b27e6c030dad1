package store

import (
	"context"
	"fmt"

	"employcli/internal/config"
)

// Open returns the record store selected by cfg.Driver. The caller owns the
// returned store and must Close it.
func Open(ctx context.Context, cfg config.StoreConfig) (RecordStore, error) {
	pingCtx := ctx
	if cfg.PingTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
	}

	switch cfg.Driver {
	case "memory", "":
		return NewMemoryStore(), nil
	case "mysql":
		return OpenMySQL(pingCtx, MySQLOptions{
			DSN:             cfg.DSN,
			Compress:        cfg.Compress,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
