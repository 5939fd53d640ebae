package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/tangerine/internal/logger"
	"github.com/tangerine/internal/queue"
	"github.com/tangerine/internal/service"
)

// Consumer 异步任务消费者
type Consumer struct {
	mailer service.Notifier
}

// NewConsumer 创建消费者，mailer 负责真正的发信。
func NewConsumer(mailer service.Notifier) *Consumer {
	return &Consumer{mailer: mailer}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommentNotification, c.handleCommentNotification)
}

func (c *Consumer) handleCommentNotification(ctx context.Context, task *asynq.Task) error {
	msg, err := queue.ParseCommentNotification(task)
	if err != nil {
		logger.Warnw("worker_comment_notify_unmarshal_failed", "error", err)
		// 载荷损坏时重试没有意义
		return errors.Join(err, asynq.SkipRetry)
	}
	if len(msg.To) == 0 {
		logger.Debugw("worker_comment_notify_skip_empty_receiver", "subject", msg.Subject)
		return nil
	}
	if c.mailer == nil {
		logger.Warnw("worker_comment_notify_skip_mailer_nil", "subject", msg.Subject)
		return nil
	}
	if err := c.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, service.ErrMailerDisabled) || errors.Is(err, service.ErrMailerNotConfigured) {
			logger.Warnw("worker_comment_notify_mailer_unavailable", "subject", msg.Subject, "error", err)
			return errors.Join(err, asynq.SkipRetry)
		}
		logger.Warnw("worker_comment_notify_send_failed", "subject", msg.Subject, "to", msg.To, "error", err)
		return err
	}
	logger.Infow("worker_comment_notify_sent", "subject", msg.Subject, "to", msg.To)
	return nil
}
