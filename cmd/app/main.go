package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"nicetravel/cmd/fx/account_fx"
	"nicetravel/cmd/fx/config_fx"
	"nicetravel/cmd/fx/controllers_fx"
	"nicetravel/cmd/fx/db_fx"
	"nicetravel/cmd/fx/generation_fx"
	"nicetravel/cmd/fx/llm_fx"
	"nicetravel/cmd/fx/places_fx"
	"nicetravel/cmd/fx/plan_fx"
	"nicetravel/cmd/fx/queue_fx"
	"nicetravel/internal/api/controllers"
	"nicetravel/internal/config"
	"nicetravel/pkg/middleware"
)

func main() {
	app := fx.New(
		config_fx.Module,
		db_fx.Module,
		account_fx.Module,
		plan_fx.Module,
		llm_fx.Module,
		places_fx.Module,
		queue_fx.Module,
		generation_fx.Module,
		generation_fx.LocalRunner,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("Failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

func ProvideRouter(
	cfg *config.Config,
	tokens middleware.TokenValidator,
	accountController *controllers.AccountController,
	planController *controllers.PlanController,
	generationController *controllers.GenerationController,
	llmController *controllers.LLMController) *gin.Engine {

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	RegisterRoutes(r, middleware.JWTAuthMiddleware(tokens),
		accountController, planController, generationController, llmController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	auth gin.HandlerFunc,
	accountController *controllers.AccountController,
	planController *controllers.PlanController,
	generationController *controllers.GenerationController,
	llmController *controllers.LLMController) {

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	accountGroup := r.Group("/accounts")
	accountGroup.POST("/register", accountController.Register)
	accountGroup.POST("/login", accountController.Login)

	r.GET("/travel-preferences", planController.ListTravelPreferences)

	planGroup := r.Group("/plans", auth)
	planGroup.GET("", planController.ListPlans)
	planGroup.POST("", planController.CreatePlan)
	planGroup.GET("/:id", planController.GetPlan)
	planGroup.PUT("/:id", planController.UpdatePlan)
	planGroup.DELETE("/:id", planController.DeletePlan)

	planGroup.GET("/:id/places", planController.ListPlaces)
	planGroup.POST("/:id/places", planController.CreatePlace)
	planGroup.PUT("/:id/places/:placeId", planController.UpdatePlace)
	planGroup.DELETE("/:id/places/:placeId", planController.DeletePlace)

	planGroup.POST("/:id/generate", generationController.StartGeneration)
	planGroup.GET("/:id/generate/status", generationController.GetGenerationStatus)
	planGroup.GET("/:id/status", generationController.GetGenerationStatus)
	planGroup.GET("/:id/generated", generationController.GetGeneratedPlan)

	llmGroup := r.Group("/llm", auth, middleware.RoleMiddleware("admin"))
	llmGroup.GET("/models", llmController.ListModels)
	llmGroup.GET("/credits", llmController.GetCredits)
}
