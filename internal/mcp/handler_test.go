package mcp

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/chat-gateway/pkg/util"
)

func newMessagesApp(t *testing.T) (*fiber.App, *Registry) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := NewRegistry(ctx, NewServer("test"), zap.NewNop())
	handler := NewHandler(registry, zap.NewNop())

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}
		domainErr := apperrors.ToDomainError(err)
		c.Status(domainErr.HTTPStatus)
		return c.JSON(fiber.Map{"error": fiber.Map{"code": domainErr.Code, "message": domainErr.Message}})
	})
	app.Post(MessagesPath, handler.Messages)
	return app, registry
}

func postMessage(t *testing.T, app *fiber.App, url, payload string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestMessagesDispatchAccepted(t *testing.T) {
	t.Parallel()

	app, registry := newMessagesApp(t)
	sess, err := registry.Open()
	require.NoError(t, err)
	defer registry.Close(sess.ID)

	resp := postMessage(t, app, MessagesPath+"?sessionId="+sess.ID, initializePayload)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestMessagesUnknownSession(t *testing.T) {
	t.Parallel()

	app, _ := newMessagesApp(t)

	resp := postMessage(t, app, MessagesPath+"?sessionId=unknown", initializePayload)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMessagesMissingSessionID(t *testing.T) {
	t.Parallel()

	app, _ := newMessagesApp(t)

	resp := postMessage(t, app, MessagesPath, initializePayload)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMessagesMalformedPayload(t *testing.T) {
	t.Parallel()

	app, registry := newMessagesApp(t)
	sess, err := registry.Open()
	require.NoError(t, err)
	defer registry.Close(sess.ID)

	resp := postMessage(t, app, MessagesPath+"?sessionId="+sess.ID, "{not json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// newStreamClient serves the stream endpoint on an in-memory listener so the
// body stream writer actually runs, which app.Test never triggers.
func newStreamClient(t *testing.T) (*http.Client, *Registry) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := NewRegistry(ctx, NewServer("test"), zap.NewNop())
	handler := NewHandler(registry, zap.NewNop())

	app := fiber.New()
	app.Get("/sse/stream", handler.Stream)

	ln := fasthttputil.NewInmemoryListener()
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.ShutdownWithTimeout(time.Second)
	})

	client := &http.Client{Transport: &http.Transport{
		DisableKeepAlives: true,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return ln.Dial()
		},
	}}
	return client, registry
}

// readEvent reads one SSE frame, skipping keepalive comments.
func readEvent(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()

	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if event != "" || data != "" {
				return event, data
			}
		case strings.HasPrefix(line, ":"):
			// comment frame
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStreamAdvertisesMessagesEndpoint(t *testing.T) {
	t.Parallel()

	client, registry := newStreamClient(t)

	resp, err := client.Get("http://chat-gateway/sse/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get(fiber.HeaderContentType))

	reader := bufio.NewReader(resp.Body)
	event, data := readEvent(t, reader)
	require.Equal(t, "endpoint", event)
	require.True(t, strings.HasPrefix(data, MessagesPath+"?sessionId="))

	sessionID := strings.TrimPrefix(data, MessagesPath+"?sessionId=")
	require.NotEmpty(t, sessionID)
	require.Equal(t, 1, registry.Len())

	// A dispatched request must surface as a message event on the stream.
	require.NoError(t, registry.Dispatch(context.Background(), sessionID, []byte(initializePayload)))
	event, data = readEvent(t, reader)
	require.Equal(t, "message", event)
	require.Contains(t, data, `"jsonrpc"`)

	registry.Close(sessionID)
}

func TestStreamReleasesSessionOnDisconnect(t *testing.T) {
	t.Parallel()

	client, registry := newStreamClient(t)

	resp, err := client.Get("http://chat-gateway/sse/stream")
	require.NoError(t, err)

	reader := bufio.NewReader(resp.Body)
	event, data := readEvent(t, reader)
	require.Equal(t, "endpoint", event)
	sessionID := strings.TrimPrefix(data, MessagesPath+"?sessionId=")
	require.Equal(t, 1, registry.Len())

	require.NoError(t, resp.Body.Close())

	// The writer only notices the dropped peer on its next flush; feed it
	// outbound traffic until the registry entry is gone.
	ping := []byte(`{"jsonrpc":"2.0","id":99,"method":"ping"}`)
	require.Eventually(t, func() bool {
		_ = registry.Dispatch(context.Background(), sessionID, ping)
		return registry.Len() == 0
	}, 5*time.Second, 25*time.Millisecond)
}
