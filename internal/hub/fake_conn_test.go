package hub_test

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/blahchat/internal/hub"
)

var errConnClosed = errors.New("fake conn closed")

// fakeConn is an in-memory hub.Conn. Frames pushed with send are returned by
// ReadFrame; payloads written by the hub arrive on out.
type fakeConn struct {
	in       chan hub.Frame
	out      chan []byte
	closed   chan struct{}
	once     sync.Once
	hangOnce sync.Once

	mu       sync.Mutex
	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan hub.Frame),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame() (hub.Frame, error) {
	select {
	case f, ok := <-c.in:
		if !ok {
			return hub.Frame{}, io.EOF
		}
		return f, nil
	case <-c.closed:
		return hub.Frame{}, errConnClosed
	}
}

func (c *fakeConn) WriteText(payload []byte) error {
	c.mu.Lock()
	err := c.writeErr
	c.mu.Unlock()
	if err != nil {
		return err
	}

	select {
	case c.out <- payload:
		return nil
	case <-c.closed:
		return errConnClosed
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

func (c *fakeConn) send(t *testing.T, kind hub.FrameKind, data string) {
	t.Helper()
	select {
	case c.in <- hub.Frame{Kind: kind, Data: []byte(data)}:
	case <-time.After(time.Second):
		t.Fatalf("timed out sending %q", data)
	}
}

func (c *fakeConn) sendText(t *testing.T, data string) {
	t.Helper()
	c.send(t, hub.FrameText, data)
}

// hangUp simulates the peer closing the connection normally.
func (c *fakeConn) hangUp() {
	c.hangOnce.Do(func() { close(c.in) })
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// wireEnvelope mirrors the JSON wire form with pointer fields so absent keys
// can be told apart from zero values.
type wireEnvelope struct {
	UserID  uint64  `json:"userId"`
	Text    *string `json:"text"`
	Initial *bool   `json:"initial"`
}

func (c *fakeConn) receive(t *testing.T) wireEnvelope {
	t.Helper()
	select {
	case payload := <-c.out:
		var env wireEnvelope
		require.NoError(t, json.Unmarshal(payload, &env), "payload %s", payload)
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return wireEnvelope{}
	}
}

func (c *fakeConn) expectNothing(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case payload := <-c.out:
		t.Fatalf("unexpected message %s", payload)
	case <-time.After(wait):
	}
}
