package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClientPublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := client.Subscribe(ctx, "cart.paid")
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "cart.paid", []byte(`{"ref":"r-1"}`)))

	select {
	case msg := <-ch:
		assert.Equal(t, "cart.paid", msg.Channel)
		assert.JSONEq(t, `{"ref":"r-1"}`, string(msg.Payload))
	case <-ctx.Done():
		t.Fatal("message not received")
	}
}

func TestRedisClientPublishMarshalsStructs(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := client.Subscribe(ctx, "events")
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "events", map[string]string{"cart_code": "ABC123"}))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"cart_code":"ABC123"}`, string(msg.Payload))
	case <-ctx.Done():
		t.Fatal("message not received")
	}
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(addr, "", 0)
	assert.Error(t, err)
}
