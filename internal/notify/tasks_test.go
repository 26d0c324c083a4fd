package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/landbook/landbook/internal/events"
	"github.com/landbook/landbook/internal/shared"
)

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeStore struct {
	keys    map[string]bool
	deleted []string
}

func (f *fakeStore) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	delete(f.keys, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func bouncedEvent() events.Event {
	return events.New(events.ChequeBounced, "cheque", 7, 1, decimal.NewFromInt(25000), time.Now()).
		With("chequeNumber", "77").
		With("bankName", "MCB")
}

func TestEnqueuerQueuesOneTaskPerRecipient(t *testing.T) {
	q := &fakeQueue{}
	e := NewEnqueuer(q, NewFormatter(language.English, "PKR"), []string{"111", " ", "222"})

	evt := bouncedEvent()
	require.NoError(t, e.Publish(context.Background(), evt))
	require.Len(t, q.tasks, 2)

	var payload SMSPayload
	require.NoError(t, json.Unmarshal(q.tasks[1].Payload(), &payload))
	assert.Equal(t, TaskSendSMS, q.tasks[1].Type())
	assert.Equal(t, "222", payload.To)
	assert.Equal(t, evt.ID.String()+":222", payload.Key)
	assert.Contains(t, payload.Message, "bounced")
}

func TestEnqueuerIgnoresQuietEvents(t *testing.T) {
	q := &fakeQueue{}
	e := NewEnqueuer(q, NewFormatter(language.English, "PKR"), []string{"111"})
	evt := events.New(events.CancellationApproved, "cancellation", 1, 1, decimal.Zero, time.Now())
	require.NoError(t, e.Publish(context.Background(), evt))
	assert.Empty(t, q.tasks)
}

func TestEnqueuerReportsQueueFailure(t *testing.T) {
	q := &fakeQueue{err: errors.New("redis down")}
	e := NewEnqueuer(q, NewFormatter(language.English, "PKR"), []string{"111"})
	assert.Error(t, e.Publish(context.Background(), bouncedEvent()))
}

func smsTask(t *testing.T, key string) *asynq.Task {
	t.Helper()
	task, err := NewSMSTask(SMSPayload{Key: key, To: "111", Message: "hi"})
	require.NoError(t, err)
	return task
}

func TestSMSJobDeliversOnce(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{}
	job := NewSMSJob(sender, store, nil, nil)

	require.NoError(t, job.Handle(context.Background(), smsTask(t, "k1")))
	require.NoError(t, job.Handle(context.Background(), smsTask(t, "k1")))
	assert.Equal(t, []string{"111"}, sender.sent)
}

func TestSMSJobReleasesKeyOnFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("gateway timeout")}
	store := &fakeStore{}
	job := NewSMSJob(sender, store, nil, nil)

	require.Error(t, job.Handle(context.Background(), smsTask(t, "k2")))
	assert.Equal(t, []string{"k2"}, store.deleted)

	sender.err = nil
	require.NoError(t, job.Handle(context.Background(), smsTask(t, "k2")))
	assert.Equal(t, []string{"111"}, sender.sent)
}

func TestSMSJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewSMSJob(&fakeSender{}, &fakeStore{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskSendSMS, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskSendSMS, []byte(`{"to":"1"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
