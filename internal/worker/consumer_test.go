package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/tangerine/internal/config"
	"github.com/tangerine/internal/queue"
	"github.com/tangerine/internal/service"
)

type fakeMailer struct {
	err  error
	sent []service.Message
}

func (m *fakeMailer) Send(_ context.Context, msg service.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func newTask(t *testing.T, msg service.Message) *asynq.Task {
	t.Helper()
	task, err := queue.NewCommentNotificationTask(msg)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	return task
}

func TestHandleCommentNotificationSends(t *testing.T) {
	mailer := &fakeMailer{}
	c := NewConsumer(mailer)
	msg := service.Message{Subject: "s", Body: "b", From: "f@example.com", To: []string{"t@example.com"}}

	if err := c.handleCommentNotification(context.Background(), newTask(t, msg)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].Subject != "s" {
		t.Fatalf("message not delivered: %+v", mailer.sent)
	}
}

func TestHandleCommentNotificationErrors(t *testing.T) {
	ctx := context.Background()

	bad := asynq.NewTask(queue.TaskCommentNotification, []byte("not json"))
	if err := NewConsumer(&fakeMailer{}).handleCommentNotification(ctx, bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("corrupt payload should skip retry, got %v", err)
	}

	msg := service.Message{Subject: "s", From: "f@example.com", To: []string{"t@example.com"}}

	transient := &fakeMailer{err: errors.New("connection reset")}
	err := NewConsumer(transient).handleCommentNotification(ctx, newTask(t, msg))
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("transient failure should be retried, got %v", err)
	}

	disabled := &fakeMailer{err: service.ErrMailerDisabled}
	if err := NewConsumer(disabled).handleCommentNotification(ctx, newTask(t, msg)); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("disabled mailer should skip retry, got %v", err)
	}

	noReceiver := &fakeMailer{}
	if err := NewConsumer(noReceiver).handleCommentNotification(ctx, newTask(t, service.Message{Subject: "s"})); err != nil {
		t.Fatalf("empty receiver should be dropped, got %v", err)
	}
	if len(noReceiver.sent) != 0 {
		t.Fatalf("nothing should be sent without receivers")
	}
}

func TestRegisterRoutesTask(t *testing.T) {
	mailer := &fakeMailer{}
	mux := asynq.NewServeMux()
	NewConsumer(mailer).Register(mux)

	msg := service.Message{Subject: "s", From: "f@example.com", To: []string{"t@example.com"}}
	if err := mux.ProcessTask(context.Background(), newTask(t, msg)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("mux did not route to the consumer")
	}
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	if _, err := NewService(config.QueueConfig{}, NewConsumer(&fakeMailer{})); err == nil {
		t.Fatalf("expected disabled queue to be rejected")
	}
	if _, err := NewService(config.QueueConfig{Enabled: true}, nil); err == nil {
		t.Fatalf("expected nil consumer to be rejected")
	}
}
