package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/tangerine/internal/config"
	"github.com/tangerine/internal/service"
)

const notificationRetention = 24 * time.Hour

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端，未启用时返回可安全调用的空客户端。
func NewClient(cfg config.QueueConfig) *Client {
	if !cfg.Enabled {
		return &Client{defaultQueue: DefaultQueue}
	}
	return &Client{
		client:       asynq.NewClient(buildRedisOpt(cfg)),
		enabled:      true,
		defaultQueue: DefaultQueue,
	}
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Notifier 把审核通知投递到队列，由 worker 进程异步发信。
// 它实现 service.Notifier，使评论提交只承担一次 Redis 写入的延迟。
type Notifier struct {
	client *Client
}

// NewNotifier 构造基于队列的 Notifier。
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Send 投递通知任务。队列未启用时返回错误，由调用方记录。
func (n *Notifier) Send(ctx context.Context, msg service.Message) error {
	if n == nil || !n.client.Enabled() {
		return fmt.Errorf("queue disabled")
	}
	task, err := NewCommentNotificationTask(msg)
	if err != nil {
		return err
	}
	_, err = n.client.client.EnqueueContext(ctx, task, enqueueOptions(n.client.defaultQueue)...)
	return err
}

func enqueueOptions(queue string) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.TaskID(uuid.NewString()),
		asynq.MaxRetry(5),
		asynq.Retention(notificationRetention),
	}
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 5
	if cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1}
	if len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return buildRedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	if strings.TrimSpace(cfg.Host) != "" {
		host = strings.TrimSpace(cfg.Host)
	}
	port := 6379
	if cfg.Port > 0 {
		port = cfg.Port
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
