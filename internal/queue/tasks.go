package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/tangerine/internal/service"
)

const (
	// TaskCommentNotification 评论审核通知邮件任务
	TaskCommentNotification = "comment:notify"
	// DefaultQueue 默认队列名称
	DefaultQueue = "default"
)

// NewCommentNotificationTask 创建通知邮件任务，载荷即邮件本身。
func NewCommentNotificationTask(msg service.Message) (*asynq.Task, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommentNotification, body), nil
}

// ParseCommentNotification 解析任务载荷
func ParseCommentNotification(task *asynq.Task) (service.Message, error) {
	var msg service.Message
	if task == nil {
		return msg, fmt.Errorf("nil task")
	}
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		return msg, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return msg, nil
}
