package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nathanyu/account-ledger/internal/domain"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSSink_Publish(t *testing.T) {
	nc, err := nats.Connect(nats.DefaultURL, nats.NoReconnect())
	if err != nil {
		t.Skip("NATS server not available")
	}
	defer nc.Close()

	subject := "ledger.notifications.test." + t.Name()
	sub, err := nc.SubscribeSync(subject)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	sink := NewNATSSink(nc, subject)
	assert.Equal(t, "nats", sink.Name())

	require.NoError(t, sink.Send(context.Background(), domain.Notification{
		AccountID: "A",
		Balance:   decimal.NewFromInt(900),
		Message:   "debited",
	}, time.Now()))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	n, _, err := domain.DecodeNotification(msg.Data)
	require.NoError(t, err)
	assert.Equal(t, "A", n.AccountID)
	assert.Equal(t, "debited", n.Message)
}

func TestNewNATSSink_DefaultSubject(t *testing.T) {
	assert.Equal(t, NotificationSubject, NewNATSSink(nil, "").subject)
}

func TestRedisStreamSink_Append(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	stream := "ledger.notifications.test"

	sink := NewRedisStreamSink(client, stream, 100)
	assert.Equal(t, "redis", sink.Name())

	require.NoError(t, sink.Send(ctx, domain.Notification{
		AccountID: "B",
		Balance:   decimal.NewFromInt(1100),
		Message:   "credited",
	}, time.Now()))

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "B", entries[0].Values["account_id"])

	raw, ok := entries[0].Values["notification"].(string)
	require.True(t, ok)
	n, _, err := domain.DecodeNotification([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "credited", n.Message)
}

func TestRedisStreamSink_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	mr.Close()

	sink := NewRedisStreamSink(client, "", 0)
	err = sink.Send(context.Background(), domain.Notification{AccountID: "A"}, time.Now())
	assert.Error(t, err)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(addr, "", 0)
	assert.Error(t, err)
}

func TestNewRedisStreamSink_Defaults(t *testing.T) {
	sink := NewRedisStreamSink(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "", 0)
	assert.Equal(t, NotificationStream, sink.stream)
	assert.Equal(t, int64(0), sink.maxLen)
}
