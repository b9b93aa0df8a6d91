package config_fx

import (
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"nicetravel/internal/config"
	"nicetravel/internal/services"
	"nicetravel/pkg/logger"
	"nicetravel/pkg/middleware"
	"nicetravel/pkg/utils"
)

var Module = fx.Options(
	fx.Provide(
		config.Load,
		provideLogger,
		provideTokenIssuer,
		func(t *utils.TokenIssuer) services.TokenCreator { return t },
		func(t *utils.TokenIssuer) middleware.TokenValidator { return t },
	),
)

func provideLogger(lc fx.Lifecycle, cfg *config.Config) *zap.Logger {
	log := logger.New(logger.Options{
		Level:       cfg.LoggerLevel,
		Format:      cfg.LoggerFormat,
		Development: cfg.IsDevelopment(),
	})
	restore := zap.ReplaceGlobals(log)

	lc.Append(fx.StopHook(func() {
		_ = log.Sync()
		restore()
	}))
	return log
}

func provideTokenIssuer(cfg *config.Config) *utils.TokenIssuer {
	return utils.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpireMinutes)*time.Minute)
}
