package session_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/midauth/mobileid-bridge/auth"
	"github.com/midauth/mobileid-bridge/session"
	"github.com/stretchr/testify/require"
)

func TestMemoryBridge(t *testing.T) {
	ctx := context.Background()
	bridge, err := session.NewMemoryBridge(16, time.Minute)
	require.NoError(t, err)

	t.Run("save and consume once", func(t *testing.T) {
		req := &auth.Request{Language: "de", Message: "Login?", RememberMSISDN: true}
		id, err := bridge.Save(ctx, req)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := bridge.Consume(ctx, id)
		require.NoError(t, err)
		require.Equal(t, req, got)

		_, err = bridge.Consume(ctx, id)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := bridge.Consume(ctx, "no-such-id")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("distinct ids per save", func(t *testing.T) {
		a, err := bridge.Save(ctx, &auth.Request{})
		require.NoError(t, err)
		b, err := bridge.Save(ctx, &auth.Request{})
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})
}

func TestRedisBridge(t *testing.T) {
	ctx := context.Background()

	t.Run("save", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		bridge := session.NewRedisBridge(client, time.Minute)

		mock.Regexp().ExpectSet(`mobileid:request:.+`, `.+`, time.Minute).SetVal("OK")

		id, err := bridge.Save(ctx, &auth.Request{Language: "fr"})
		require.NoError(t, err)
		require.NotEmpty(t, id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("consume", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		bridge := session.NewRedisBridge(client, time.Minute)

		req := &auth.Request{MSISDN: "+41791234567", Language: "it"}
		raw, err := json.Marshal(req)
		require.NoError(t, err)
		mock.ExpectGetDel("mobileid:request:abc").SetVal(string(raw))

		got, err := bridge.Consume(ctx, "abc")
		require.NoError(t, err)
		require.Equal(t, req, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("consume unknown id", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		bridge := session.NewRedisBridge(client, time.Minute)

		mock.ExpectGetDel("mobileid:request:gone").RedisNil()

		_, err := bridge.Consume(ctx, "gone")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}
