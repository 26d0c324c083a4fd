package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	got []Event
	err error
}

func (c *capturePublisher) Publish(_ context.Context, evt Event) error {
	c.got = append(c.got, evt)
	return c.err
}

func TestDispatcherFansOutAndSwallowsFailures(t *testing.T) {
	failing := &capturePublisher{err: errors.New("broker down")}
	ok := &capturePublisher{}
	d := NewDispatcher(nil, failing, nil, ok)

	evt := New(ChequeBounced, "cheque", 9, 2, decimal.NewFromInt(5000), time.Now())
	d.Emit(context.Background(), evt)

	require.Len(t, failing.got, 1)
	require.Len(t, ok.got, 1)
	assert.Equal(t, evt.ID, ok.got[0].ID)
}

func TestNilKafkaPublisherWithoutBrokers(t *testing.T) {
	assert.Nil(t, NewKafkaPublisher(nil, "topic"))
}

func TestEventWithCopiesData(t *testing.T) {
	base := New(RefundPaid, "refund", 1, 1, decimal.Zero, time.Now())
	withPhone := base.With("phone", "0300")
	assert.Empty(t, base.Data)
	assert.Equal(t, "0300", withPhone.Data["phone"])
}
