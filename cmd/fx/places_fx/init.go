package places_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"nicetravel/internal/config"
	"nicetravel/internal/infra"
	"nicetravel/internal/services"
	"nicetravel/pkg/places"
)

const memoryCacheSize = 10000

var Module = fx.Options(
	fx.Provide(
		providePhotoCache,
		provideResolver,
		func(r *places.Resolver) services.PhotoResolver { return r },
	),
)

// providePhotoCache uses Redis when REDIS_ADDR is set so workers share lookups,
// and a process-local store otherwise.
func providePhotoCache(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (places.PhotoCache, error) {
	if cfg.RedisAddr == "" {
		cache := places.NewMemoryPhotoCache(cfg.PlacesCacheTTL, memoryCacheSize)
		lc.Append(fx.StopHook(cache.Close))
		logger.Info("photo cache: in-memory", zap.Duration("ttl", cfg.PlacesCacheTTL))
		return cache, nil
	}

	client, err := infra.InitRedis(context.Background(), infra.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(client.Close))
	logger.Info("photo cache: redis", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.PlacesCacheTTL))
	return places.NewRedisPhotoCache(client, cfg.RedisPrefix, cfg.PlacesCacheTTL), nil
}

func provideResolver(cfg *config.Config, cache places.PhotoCache, logger *zap.Logger) *places.Resolver {
	return places.NewResolver(places.Config{
		APIKey:    cfg.GooglePlacesAPIKey,
		BaseURL:   cfg.GooglePlacesBaseURL,
		RateLimit: cfg.PlacesRateLimit,
	}, cache, logger)
}
