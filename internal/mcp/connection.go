package mcp

import (
	"context"
	"errors"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrConnectionClosed is returned once a session's connection has shut down.
var ErrConnectionClosed = errors.New("connection closed")

const channelBufferSize = 16

// connection implements mcp.Connection for the SSE transport. Inbound
// messages arrive from POSTed follow-ups; every outbound message the MCP
// server writes is streamed to the client as an SSE event.
type connection struct {
	sessionID string
	inbound   chan jsonrpc.Message
	outbound  chan jsonrpc.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newConnection(sessionID string) *connection {
	return &connection{
		sessionID: sessionID,
		inbound:   make(chan jsonrpc.Message, channelBufferSize),
		outbound:  make(chan jsonrpc.Message, channelBufferSize),
		closed:    make(chan struct{}),
	}
}

// Read implements mcp.Connection. It blocks until a dispatched message
// arrives or the connection shuts down.
func (c *connection) Read(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-c.closed:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write implements mcp.Connection. Messages land on the outbound channel the
// SSE stream writer drains.
func (c *connection) Write(ctx context.Context, msg jsonrpc.Message) error {
	select {
	case c.outbound <- msg:
		return nil
	case <-c.closed:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements mcp.Connection. Safe to call from any exit path, any
// number of times.
func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}

// SessionID implements mcp.Connection.
func (c *connection) SessionID() string {
	return c.sessionID
}

// deliver hands an inbound message to the server's read loop.
func (c *connection) deliver(ctx context.Context, msg jsonrpc.Message) error {
	select {
	case c.inbound <- msg:
		return nil
	case <-c.closed:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// connectionTransport adapts a pre-built connection to mcp.Transport so the
// shared server can attach to it.
type connectionTransport struct {
	conn *connection
}

// Connect implements mcp.Transport.
func (t *connectionTransport) Connect(context.Context) (mcp.Connection, error) {
	return t.conn, nil
}
