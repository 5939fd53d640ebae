package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/tangerine/internal/cache"
	"github.com/tangerine/internal/config"
	"github.com/tangerine/internal/handler"
	"github.com/tangerine/internal/logger"
	"github.com/tangerine/internal/queue"
	"github.com/tangerine/internal/router"
	"github.com/tangerine/internal/service"
	"github.com/tangerine/internal/worker"
	"gorm.io/gorm"
)

// components 持有需要在退出时释放的外部连接。
type components struct {
	cache *cache.Redis
	queue *queue.Client
}

func (c *components) Close() {
	if err := c.cache.Close(); err != nil {
		logger.Warnw("cache_close_failed", "error", err)
	}
	if err := c.queue.Close(); err != nil {
		logger.Warnw("queue_close_failed", "error", err)
	}
}

// NewNotifier 选择审核通知的投递方式：queue 模式且队列可用时入队，
// 否则 SMTP 启用时同步发信，都不可用时不发送。
func NewNotifier(cfg *config.AppConfig, client *queue.Client) service.Notifier {
	if cfg.Notify.Queued() {
		if client.Enabled() {
			return queue.NewNotifier(client)
		}
		logger.Warnw("notify_queue_unavailable", "fallback", "sync")
	}
	if cfg.SMTP.Enabled {
		return service.NewMailNotifier(cfg.SMTP)
	}
	return service.NopNotifier{}
}

// buildRunner 按启动模式组装 HTTP 与队列消费服务。
func buildRunner(cfg *config.AppConfig, gdb *gorm.DB, mode string) (*Runner, *components, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}

	deps := &components{
		cache: cache.NewRedis(cfg.Redis),
		queue: queue.NewClient(cfg.Queue),
	}
	if deps.cache.Enabled() {
		if err := deps.cache.Ping(context.Background()); err != nil {
			logger.Warnw("cache_ping_failed", "addr", cfg.Redis.Addr(), "error", err)
		}
	}

	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		if gdb == nil {
			deps.Close()
			return nil, nil, errors.New("database is required for the api")
		}
		api := handler.NewAPI(handler.Dependencies{
			DB:            gdb,
			Spam:          service.NewAkismetClient(cfg.Spam.AkismetBaseURL),
			Notifier:      NewNotifier(cfg, deps.queue),
			Cache:         deps.cache,
			SpamTimeout:   cfg.Spam.Timeout(),
			NotifyTimeout: cfg.Notify.Timeout(),
		})
		var limiter router.RateLimiter
		if deps.cache.Enabled() {
			limiter = deps.cache
		}
		engine := router.SetupRouter(api, cfg, limiter)
		services = append(services, NewHTTPService(cfg.Server.Addr(), engine))
	}

	if mode == ModeAll || mode == ModeWorker {
		if cfg.Queue.Enabled {
			consumer := worker.NewConsumer(service.NewMailNotifier(cfg.SMTP))
			workerService, err := worker.NewService(cfg.Queue, consumer)
			if err != nil {
				deps.Close()
				return nil, nil, err
			}
			services = append(services, workerService)
		} else if mode == ModeWorker {
			deps.Close()
			return nil, nil, errors.New("worker mode requires queue.enabled")
		}
	}

	if len(services) == 0 {
		deps.Close()
		return nil, nil, fmt.Errorf("no services initialized for mode %q", mode)
	}
	return NewRunner(services...), deps, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, deps, err := buildRunner(opts.Config, opts.DB, opts.Mode)
	if err != nil {
		return err
	}
	defer deps.Close()

	opts.Logger.Infow("app_start",
		"addr", opts.Config.Server.Addr(),
		"mode", opts.Mode,
		"notify", opts.Config.Notify.Mode,
		"cache", deps.cache.Enabled(),
		"queue", deps.queue.Enabled(),
	)
	return RunWithOptions(runner, opts)
}
