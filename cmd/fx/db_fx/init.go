package db_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"nicetravel/internal/config"
	"nicetravel/internal/infra"
)

var Module = fx.Provide(
	provideDB)

func provideDB(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := infra.InitPostgresql(infra.PostgresConfig{
		URL:      cfg.PostgresURL,
		MaxIdle:  cfg.PostgresMaxIdle,
		MaxOpen:  cfg.PostgresMaxOpen,
		LogLevel: cfg.DBLogLevel,
	}, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return infra.Migrate(db.WithContext(ctx))
		},
		OnStop: func(ctx context.Context) error {
			infra.ClosePostgresql(db, logger)
			return nil
		},
	})
	return db, nil
}
