package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/landbook/landbook/internal/events"
	jobmetrics "github.com/landbook/landbook/internal/jobs"
	"github.com/landbook/landbook/internal/shared"
)

const (
	// TaskSendSMS delivers one alert to one recipient.
	TaskSendSMS = "notify:sms"
	// QueueNotify is the queue SMS tasks are placed on.
	QueueNotify = "notify"

	idempotencyModule = "sms"
)

// SMSPayload is the body of a TaskSendSMS task.
type SMSPayload struct {
	Key     string `json:"key"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewSMSTask builds a TaskSendSMS task.
func NewSMSTask(payload SMSPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSendSMS, body, asynq.Queue(QueueNotify), asynq.MaxRetry(5)), nil
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer publishes alert-worthy events as SMS tasks, one per recipient.
type Enqueuer struct {
	client     TaskEnqueuer
	formatter  *Formatter
	recipients []string
}

// NewEnqueuer builds an Enqueuer. Blank recipients are ignored.
func NewEnqueuer(client TaskEnqueuer, formatter *Formatter, recipients []string) *Enqueuer {
	clean := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			clean = append(clean, r)
		}
	}
	return &Enqueuer{client: client, formatter: formatter, recipients: clean}
}

// Publish implements events.Publisher.
func (e *Enqueuer) Publish(ctx context.Context, evt events.Event) error {
	if e == nil || e.client == nil || len(e.recipients) == 0 {
		return nil
	}
	text, ok := e.formatter.Message(evt)
	if !ok {
		return nil
	}
	var errs []error
	for _, to := range e.recipients {
		key := evt.ID.String() + ":" + to
		task, err := NewSMSTask(SMSPayload{Key: key, To: to, Message: text})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := e.client.EnqueueContext(ctx, task, asynq.TaskID(key)); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			errs = append(errs, fmt.Errorf("enqueue sms to %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

// IdempotencyPort records processed delivery keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// SMSJob delivers TaskSendSMS tasks exactly once per key.
type SMSJob struct {
	Sender  Sender
	Store   IdempotencyPort
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSMSJob constructs the job handler.
func NewSMSJob(sender Sender, store IdempotencyPort, logger *slog.Logger, metrics *jobmetrics.Metrics) *SMSJob {
	return &SMSJob{Sender: sender, Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes one TaskSendSMS task.
func (j *SMSJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Sender == nil || j.Store == nil {
		return errors.New("sms job: dependencies not configured")
	}
	var payload SMSPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Key == "" || payload.To == "" || payload.Message == "" {
		return fmt.Errorf("sms job: incomplete payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskSendSMS)
	defer func() {
		err = tracker.End(err)
	}()

	if err := j.Store.CheckAndInsert(ctx, payload.Key, idempotencyModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			j.log().Info("sms already delivered", slog.String("key", payload.Key))
			return nil
		}
		return err
	}
	start := time.Now()
	if err := j.Sender.Send(ctx, payload.To, payload.Message); err != nil {
		if delErr := j.Store.Delete(ctx, payload.Key); delErr != nil {
			j.log().Error("release sms key", slog.String("key", payload.Key), slog.Any("error", delErr))
		}
		j.log().Error("send sms", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	j.log().Info("sms delivered", slog.String("to", payload.To), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *SMSJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
