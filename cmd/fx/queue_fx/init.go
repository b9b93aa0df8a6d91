package queue_fx

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"nicetravel/internal/config"
	"nicetravel/internal/infra"
	"nicetravel/internal/queue"
)

var Module = fx.Provide(provideDispatcher)

// provideDispatcher returns an in-process WorkerPool for QUEUE_DRIVER=local and
// a RabbitMQ publisher for QUEUE_DRIVER=amqp.
func provideDispatcher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (queue.Dispatcher, error) {
	switch cfg.QueueDriver {
	case "local":
		return queue.NewWorkerPool(cfg.QueueWorkers, cfg.QueueBuffer, logger), nil
	case "amqp":
		conn, err := infra.InitRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return nil, err
		}
		if err := infra.DeclareQueue(conn, cfg.RabbitMQQueue); err != nil {
			_ = conn.Close()
			return nil, err
		}
		dispatcher := queue.NewAMQPDispatcher(conn, cfg.RabbitMQQueue, logger)
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				_ = dispatcher.Close()
				return conn.Close()
			},
		})
		return dispatcher, nil
	default:
		return nil, fmt.Errorf("unknown QUEUE_DRIVER %q", cfg.QueueDriver)
	}
}
