package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// TenantFunc extracts the tenant a request is acting for.
type TenantFunc func(ctx context.Context) (uuid.UUID, bool)

// Config controls pool construction.
type Config struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// NewPool opens a pgx pool. When tenantOf is set, every acquired connection gets
// app.tenant_id set from the acquiring context, which the row-level security
// policies in the schema filter on. The setting is cleared on release.
func NewPool(ctx context.Context, cfg Config, tenantOf TenantFunc, logger *zap.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		config.MinConns = cfg.MinConns
	}

	if tenantOf != nil {
		config.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
			tenantID, ok := tenantOf(ctx)
			if !ok {
				return true
			}
			if _, err := conn.Exec(ctx, "SELECT set_config('app.tenant_id', $1, false)", tenantID.String()); err != nil {
				logger.Warn("failed to scope connection to tenant", zap.Error(err))
				return false
			}
			return true
		}
		config.AfterRelease = func(conn *pgx.Conn) bool {
			_, err := conn.Exec(context.Background(), "SELECT set_config('app.tenant_id', '', false)")
			return err == nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("database connected", zap.Int32("max_conns", config.MaxConns))
	return pool, nil
}
