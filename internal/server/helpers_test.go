package server_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/blahchat/internal/config"
	"github.com/Tyrowin/blahchat/internal/server"
)

const testOrigin = "http://localhost:8080"

// envelope mirrors the wire format with pointers so omitted keys stay nil.
type envelope struct {
	UserID  uint64  `json:"userId"`
	Text    *string `json:"text"`
	Initial *bool   `json:"initial"`
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.AllowedOrigins = []string{testOrigin}
	return cfg
}

// startTestServer runs a server built from testConfig, adjusted by customize,
// behind an httptest server. It returns the server and its WebSocket URL.
func startTestServer(t *testing.T, customize func(*config.Config)) (*server.Server, *httptest.Server, string) {
	t.Helper()

	cfg := testConfig()
	if customize != nil {
		customize(cfg)
	}

	srv, err := server.New(cfg, server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	return srv, ts, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, wsURL, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(wsURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// connectClient dials the hub, reads the welcome envelope and returns the
// connection together with its assigned id.
func connectClient(t *testing.T, wsURL string) (*websocket.Conn, uint64) {
	t.Helper()

	conn, _, err := dial(t, wsURL, testOrigin)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	welcome := readEnvelope(t, conn)
	require.NotNil(t, welcome.Initial, "first message must be the welcome")
	require.True(t, *welcome.Initial)
	require.Nil(t, welcome.Text)
	require.NotZero(t, welcome.UserID)
	return conn, welcome.UserID
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, messageType)

	var env envelope
	require.NoError(t, json.Unmarshal(data, &env), "payload %s", data)
	return env
}

func sendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)))
}

// expectNoMessage fails if conn receives a data message within timeout.
// gorilla read errors are permanent, so conn cannot be read from afterwards.
func expectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no message, got %s", data)
	}
	var netErr interface{ Timeout() bool }
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expected read timeout, got %v", err)
	}
}

// expectClosed fails unless the server closes conn within timeout.
func expectClosed(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Fatal("connection was not closed by the server")
			}
			return
		}
	}
}
