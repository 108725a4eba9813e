package mcp

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/chat-gateway/pkg/util"
)

// MessagesPath is the inbound endpoint advertised to clients on the stream.
const MessagesPath = "/sse/messages"

const keepaliveInterval = 30 * time.Second

// Handler exposes the SSE transport over fiber: a long-lived stream endpoint
// and a short-lived message-post endpoint, joined by the session id.
type Handler struct {
	registry *Registry
	logger   *zap.Logger
}

// NewHandler constructs handler.
func NewHandler(registry *Registry, logger *zap.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// Stream handles GET /sse/stream. The first event advertises the messages
// endpoint carrying the allocated session id; after that every message the
// MCP server writes is forwarded as a `message` event.
func (h *Handler) Stream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	sess, err := h.registry.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// Release the registry entry on every exit path: normal close,
		// write error, or abrupt disconnect.
		defer h.registry.Close(sess.ID)

		fmt.Fprintf(w, "event: endpoint\ndata: %s?sessionId=%s\n\n", MessagesPath, sess.ID)
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-sess.Done():
				return
			case msg := <-sess.Events():
				data, err := jsonrpc.EncodeMessage(msg)
				if err != nil {
					h.logger.Error("encode sse message", zap.String("session_id", sess.ID), zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
				if err := w.Flush(); err != nil {
					return
				}
			case <-ticker.C:
				// Keepalive comment; a failed flush is how a silently dropped
				// peer is detected.
				fmt.Fprint(w, ": keepalive\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

// Messages handles POST /sse/messages?sessionId=<id>.
func (h *Handler) Messages(c *fiber.Ctx) error {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		return apperrors.NewValidationError("sessionId query parameter required", nil)
	}

	if err := h.registry.Dispatch(c.Context(), sessionID, c.Body()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}
