package generation_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"nicetravel/internal/config"
	"nicetravel/internal/queue"
	"nicetravel/internal/repositories"
	"nicetravel/internal/services"
	"nicetravel/pkg/llm"
)

var Module = fx.Options(
	fx.Provide(
		provideJobRepo,
		provideGenerationService,
		func(s *services.GenerationService) services.GenerationServiceInterface { return s },
	),
)

// LocalRunner starts in-process workers when the dispatcher also runs tasks.
var LocalRunner = fx.Invoke(startRunner)

func provideJobRepo(db *gorm.DB) repositories.GenerationJobRepository {
	return repositories.NewGenerationJobRepository(db)
}

func provideGenerationService(
	cfg *config.Config,
	planRepo repositories.PlanRepository,
	jobRepo repositories.GenerationJobRepository,
	chat llm.ChatClient,
	photos services.PhotoResolver,
	dispatcher queue.Dispatcher,
	logger *zap.Logger,
) *services.GenerationService {
	return services.NewGenerationService(planRepo, jobRepo, chat, photos, dispatcher, services.GenerationOptions{
		InitialEstimate: cfg.GenerationInitialEstimate,
		TickInterval:    cfg.GenerationTickInterval,
		Timeout:         cfg.GenerationTimeout,
		EnrichPolicy:    services.EnrichmentPolicy(cfg.GenerationEnrichPolicy),
		Region:          cfg.GenerationRegion,
	}, logger)
}

func startRunner(lc fx.Lifecycle, dispatcher queue.Dispatcher, svc *services.GenerationService, logger *zap.Logger) {
	runner, ok := dispatcher.(queue.Runner)
	if !ok {
		logger.Info("generation tasks are published to the broker; no in-process workers started")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			runner.Start(svc.RunGeneration, svc.MarkFailed)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return runner.Stop(ctx)
		},
	})
}
