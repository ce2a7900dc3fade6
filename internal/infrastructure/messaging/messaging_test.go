package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
	pkgmessaging "github.com/wekeepgrowing/shop-settlement/pkg/messaging"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type fakeOutbox struct {
	mu        sync.Mutex
	events    []*model.OutboxEvent
	processed map[int64]bool
	failed    map[int64]int
	fetchErr  error
}

func newFakeOutbox(events ...*model.OutboxEvent) *fakeOutbox {
	return &fakeOutbox{events: events, processed: map[int64]bool{}, failed: map[int64]int{}}
}

func (f *fakeOutbox) GetUnprocessed(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []*model.OutboxEvent
	for _, e := range f.events {
		if !f.processed[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkProcessed(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed[id] = true
	return nil
}

func (f *fakeOutbox) MarkFailed(ctx context.Context, id int64, cause error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id]++
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	failFor   map[string]bool
}

func (p *fakePublisher) Publish(ctx context.Context, event *model.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[event.AggregateID] {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event.AggregateID)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func event(id int64, ref string) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:          id,
		AggregateID: ref,
		EventType:   model.EventTypeCartPaid,
		Payload:     datatypes.JSON(`{"ref":"` + ref + `","cart_code":"ABC123"}`),
	}
}

func TestOutboxRelayRunOnce(t *testing.T) {
	outbox := newFakeOutbox(event(1, "ref-1"), event(2, "ref-2"), event(3, "ref-3"))
	publisher := &fakePublisher{failFor: map[string]bool{"ref-2": true}}
	relay := NewOutboxRelay(outbox, publisher, time.Second, 10, zap.NewNop())

	report, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Published)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"ref-1", "ref-3"}, publisher.published)
	assert.Equal(t, 1, outbox.failed[2])
	assert.False(t, outbox.processed[2])

	// the failed event is retried on the next pass
	publisher.failFor = nil
	report, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Published)
	assert.True(t, outbox.processed[2])

	report, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Published)
}

func TestOutboxRelayFetchError(t *testing.T) {
	outbox := newFakeOutbox()
	outbox.fetchErr = errors.New("connection refused")
	relay := NewOutboxRelay(outbox, &fakePublisher{}, 0, 0, zap.NewNop())

	_, err := relay.RunOnce(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestOutboxRelayRunStopsWithContext(t *testing.T) {
	outbox := newFakeOutbox(event(1, "ref-1"))
	publisher := &fakePublisher{}
	relay := NewOutboxRelay(outbox, publisher, 10*time.Millisecond, 10, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		outbox.mu.Lock()
		defer outbox.mu.Unlock()
		return outbox.processed[1]
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

type fakeWriter struct {
	messages []kafka.Message
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	writer := &fakeWriter{}
	publisher := &KafkaPublisher{writer: writer}

	require.NoError(t, publisher.Publish(context.Background(), event(1, "ref-1")))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "ref-1", string(msg.Key))
	assert.JSONEq(t, `{"ref":"ref-1","cart_code":"ABC123"}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, model.EventTypeCartPaid, string(msg.Headers[0].Value))
}

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := pkgmessaging.NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)

	publisher := NewRedisPublisher(client, "settlement.events")
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := client.Subscribe(ctx, "settlement.events")
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(ctx, event(7, "ref-7")))

	select {
	case msg := <-ch:
		var envelope Envelope
		require.NoError(t, json.Unmarshal(msg.Payload, &envelope))
		assert.Equal(t, model.EventTypeCartPaid, envelope.EventType)
		assert.Equal(t, "ref-7", envelope.AggregateID)
		assert.JSONEq(t, `{"ref":"ref-7","cart_code":"ABC123"}`, string(envelope.Payload))
	case <-ctx.Done():
		t.Fatal("message not received")
	}
}
