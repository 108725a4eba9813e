package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/chat-gateway/pkg/util"
)

const initializePayload = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test-client","version":"0.0.1"}}}`

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRegistry(ctx, NewServer("test"), zap.NewNop())
}

func TestOpenDispatchRoundTrip(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	sess, err := registry.Open()
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	defer registry.Close(sess.ID)

	require.NoError(t, registry.Dispatch(context.Background(), sess.ID, []byte(initializePayload)))

	// The initialize result surfaces on the open stream's event channel.
	select {
	case msg := <-sess.Events():
		resp, ok := msg.(*jsonrpc.Response)
		require.True(t, ok, "expected a response, got %T", msg)
		require.NotEqual(t, jsonrpc.ID{}, resp.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for initialize response")
	}
}

func TestDispatchUnknownSession(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)

	err := registry.Dispatch(context.Background(), "nonexistent-id", []byte(initializePayload))
	require.Error(t, err)
	require.Equal(t, "NO_SUCH_SESSION", apperrors.ToDomainError(err).Code)
}

func TestDispatchAfterClose(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	sess, err := registry.Open()
	require.NoError(t, err)

	registry.Close(sess.ID)

	err = registry.Dispatch(context.Background(), sess.ID, []byte(initializePayload))
	require.Error(t, err)
	require.Equal(t, "NO_SUCH_SESSION", apperrors.ToDomainError(err).Code)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	sess, err := registry.Open()
	require.NoError(t, err)

	registry.Close(sess.ID)
	registry.Close(sess.ID)
	registry.Close("never-existed")
	require.Equal(t, 0, registry.Len())
}

func TestDispatchMalformedPayload(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	sess, err := registry.Open()
	require.NoError(t, err)
	defer registry.Close(sess.ID)

	err = registry.Dispatch(context.Background(), sess.ID, []byte("not json"))
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestOpenSessionsHaveUniqueIDs(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	seen := make(map[string]struct{})
	for i := 0; i < 10; i++ {
		sess, err := registry.Open()
		require.NoError(t, err)
		_, dup := seen[sess.ID]
		require.False(t, dup, "duplicate session id %s", sess.ID)
		seen[sess.ID] = struct{}{}
		registry.Close(sess.ID)
	}
}
