package mcp

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/chat-gateway/pkg/util"
)

// Session binds one open SSE stream to its server-side connection. The stream
// handler drains Events; POSTed follow-ups reach the same connection through
// Registry.Dispatch.
type Session struct {
	ID   string
	conn *connection
}

// Events returns the outbound messages to stream to the client.
func (s *Session) Events() <-chan jsonrpc.Message {
	return s.conn.outbound
}

// Done is closed when the session's connection has shut down.
func (s *Session) Done() <-chan struct{} {
	return s.conn.closed
}

// Registry owns the sessionID -> session mapping shared between the
// stream-open and message-post request paths. All map access is mutex
// guarded; a session is fully registered before Open returns, so Dispatch
// never observes a half-registered entry.
type Registry struct {
	server  *mcp.Server
	logger  *zap.Logger
	baseCtx context.Context

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry builds the registry. baseCtx bounds the lifetime of every
// server session; it should be the process context so streams survive the
// handler that opened them.
func NewRegistry(baseCtx context.Context, server *mcp.Server, logger *zap.Logger) *Registry {
	return &Registry{
		server:   server,
		logger:   logger,
		baseCtx:  baseCtx,
		sessions: make(map[string]*Session),
	}
}

// Open allocates a new session, registers it, and attaches the MCP server to
// its connection. The caller releases the session with Close on every exit
// path of the stream.
func (r *Registry) Open() (*Session, error) {
	id := uuid.NewString()
	sess := &Session{ID: id, conn: newConnection(id)}

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	serverSession, err := r.server.Connect(r.baseCtx, &connectionTransport{conn: sess.conn}, nil)
	if err != nil {
		r.Close(id)
		return nil, err
	}

	go func() {
		// Wait returns once the connection closes or the process context is
		// cancelled; either way the registry entry goes with it.
		if err := serverSession.Wait(); err != nil && !errors.Is(err, ErrConnectionClosed) {
			r.logger.Debug("mcp session ended", zap.String("session_id", id), zap.Error(err))
		}
		r.Close(id)
	}()

	r.logger.Info("sse session opened", zap.String("session_id", id))
	return sess, nil
}

// Close removes the session and shuts down its connection. Idempotent:
// closing twice or closing an unknown id is a no-op.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	_ = sess.conn.Close()
	r.logger.Info("sse session closed", zap.String("session_id", sessionID))
}

// Dispatch routes an inbound JSON-RPC payload to the session's open stream.
// Unknown ids fail with NO_SUCH_SESSION; a malformed payload is a validation
// error. Neither is fatal to the process.
func (r *Registry) Dispatch(ctx context.Context, sessionID string, payload []byte) error {
	msg, err := jsonrpc.DecodeMessage(payload)
	if err != nil {
		return apperrors.NewValidationError("invalid JSON-RPC message", nil)
	}

	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return apperrors.NewNoSuchSession(sessionID)
	}

	if err := sess.conn.deliver(ctx, msg); err != nil {
		if errors.Is(err, ErrConnectionClosed) {
			// Session closed between lookup and delivery.
			return apperrors.NewNoSuchSession(sessionID)
		}
		return err
	}
	return nil
}

// Len reports the number of currently open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
