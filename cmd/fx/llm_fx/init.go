package llm_fx

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"nicetravel/internal/api/controllers"
	"nicetravel/internal/config"
	"nicetravel/pkg/llm"
)

var Module = fx.Options(
	fx.Provide(
		provideProvider,
		provideGateway,
		func(g *llm.Gateway) llm.ChatClient { return g },
		func(g *llm.Gateway) controllers.ModelCatalog { return g },
	),
)

func provideProvider(lc fx.Lifecycle, cfg *config.Config) (llm.Provider, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case "gemini":
		p, err := llm.NewGeminiProvider(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(p.Close))
		return p, nil
	case "openrouter":
		return llm.NewOpenRouterProvider(llm.OpenRouterConfig{
			APIKey:   cfg.OpenRouterAPIKey,
			BaseURL:  cfg.OpenRouterBaseURL,
			SiteURL:  cfg.OpenRouterSiteURL,
			SiteName: cfg.OpenRouterSiteName,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func provideGateway(lc fx.Lifecycle, cfg *config.Config, provider llm.Provider, logger *zap.Logger) *llm.Gateway {
	model := cfg.OpenRouterModel
	if provider.Name() == "gemini" {
		model = cfg.GeminiModel
	}

	gateway := llm.NewGateway(provider, llm.GatewayConfig{
		DefaultModel: model,
		MaxAttempts:  cfg.LLMMaxRetries,
		RetryDelay:   cfg.LLMRetryDelay,
		CacheEnabled: cfg.LLMCacheEnabled,
		CacheTTL:     cfg.LLMCacheTTL,
		CacheMaxSize: cfg.LLMCacheMaxSize,
	}, logger)
	lc.Append(fx.StopHook(gateway.Close))
	return gateway
}
