package controllers_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"nicetravel/internal/api/controllers"
	"nicetravel/internal/config"
	"nicetravel/internal/services"
)

var Module = fx.Options(
	fx.Provide(controllers.NewAccountController),
	fx.Provide(controllers.NewPlanController),
	fx.Provide(controllers.NewLLMController),
	fx.Provide(provideGenerationController))

func provideGenerationController(cfg *config.Config, svc services.GenerationServiceInterface, logger *zap.Logger) *controllers.GenerationController {
	return controllers.NewGenerationController(svc, cfg.StatusStreamInterval, logger)
}
