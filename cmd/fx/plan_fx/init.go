package plan_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"nicetravel/internal/repositories"
	"nicetravel/internal/services"
)

var Module = fx.Provide(
	providePlanRepo, providePreferenceRepo, providePlanService)

func providePlanRepo(db *gorm.DB) repositories.PlanRepository {
	return repositories.NewPlanRepository(db)
}

func providePreferenceRepo(db *gorm.DB) repositories.TravelPreferenceRepository {
	return repositories.NewTravelPreferenceRepository(db)
}

func providePlanService(planRepo repositories.PlanRepository, preferenceRepo repositories.TravelPreferenceRepository, logger *zap.Logger) services.PlanServiceInterface {
	return services.NewPlanService(planRepo, preferenceRepo, logger)
}
