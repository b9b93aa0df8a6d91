package main

import (
	"context"
	"errors"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"nicetravel/cmd/fx/config_fx"
	"nicetravel/cmd/fx/db_fx"
	"nicetravel/cmd/fx/generation_fx"
	"nicetravel/cmd/fx/llm_fx"
	"nicetravel/cmd/fx/places_fx"
	"nicetravel/cmd/fx/plan_fx"
	"nicetravel/cmd/fx/queue_fx"
	"nicetravel/internal/config"
	"nicetravel/internal/infra"
	"nicetravel/internal/queue"
	"nicetravel/internal/services"
)

// The worker consumes generation tasks published by cmd/app when it runs with
// QUEUE_DRIVER=amqp.
func main() {
	app := fx.New(
		config_fx.Module,
		db_fx.Module,
		plan_fx.Module,
		llm_fx.Module,
		places_fx.Module,
		queue_fx.Module,
		generation_fx.Module,

		fx.Invoke(StartConsumer),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)

	app.Run()
}

func StartConsumer(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, svc *services.GenerationService, logger *zap.Logger) error {
	if cfg.QueueDriver != "amqp" {
		return errors.New("worker requires QUEUE_DRIVER=amqp")
	}

	conn, err := infra.InitRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	if err := infra.DeclareQueue(conn, cfg.RabbitMQQueue); err != nil {
		_ = conn.Close()
		return err
	}

	hostname, _ := os.Hostname()
	consumer := queue.NewAMQPConsumer(conn, queue.ConsumeOptions{
		Queue:         cfg.RabbitMQQueue,
		ConsumerTag:   "nicetravel-worker-" + hostname,
		PrefetchCount: cfg.RabbitMQPrefetch,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := consumer.Consume(ctx, svc.RunGeneration, svc.MarkFailed); err != nil {
					logger.Error("Consumer stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return conn.Close()
		},
	})
	return nil
}
