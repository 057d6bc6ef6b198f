package connection_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"battleserver/battleship/connection"
	"battleserver/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedConn struct {
	mu       sync.Mutex
	messages [][]byte
	end      error
	closed   bool
	pings    int
	pong     func(string) error
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return 0, nil, c.end
	}
	m := c.messages[0]
	c.messages = c.messages[1:]
	return websocket.TextMessage, m, nil
}

func (c *scriptedConn) SetReadDeadline(time.Time) error { return nil }

func (c *scriptedConn) SetPongHandler(h func(string) error) { c.pong = h }

func (c *scriptedConn) WriteMessage(messageType int, _ []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if messageType == websocket.PingMessage {
		c.pings++
	}
	return nil
}

func (c *scriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type recordingHandler struct {
	calls []string
}

func (h *recordingHandler) Handle(_ context.Context, connID string, message []byte) {
	h.calls = append(h.calls, connID+":"+string(message))
}

func (h *recordingHandler) Disconnect(_ context.Context, connID string) {
	h.calls = append(h.calls, connID+":disconnect")
}

func TestHandleClient_DispatchesUntilReadFails(t *testing.T) {
	conn := &scriptedConn{
		messages: [][]byte{[]byte(`one`), []byte(`two`)},
		end:      &websocket.CloseError{Code: websocket.CloseGoingAway},
	}
	handler := &recordingHandler{}
	client := models.NewClient("c1", conn)

	connection.HandleClient(context.Background(), client, conn, handler, zap.NewNop())

	assert.Equal(t, []string{"c1:one", "c1:two", "c1:disconnect"}, handler.calls)
	assert.True(t, conn.closed)
	require.NotNil(t, conn.pong)
	assert.NoError(t, conn.pong(""))
}

func TestHandleClient_UnexpectedErrorStillDisconnects(t *testing.T) {
	conn := &scriptedConn{end: errors.New("connection reset")}
	handler := &recordingHandler{}

	connection.HandleClient(context.Background(), models.NewClient("c2", conn), conn, handler, zap.NewNop())
	assert.Equal(t, []string{"c2:disconnect"}, handler.calls)
}

func TestMaintainWebSocketConnection_StopsOnDone(t *testing.T) {
	conn := &scriptedConn{}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		connection.MaintainWebSocketConnection(models.NewClient("c3", conn), done, zap.NewNop())
		close(finished)
	}()
	close(done)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("ping loop did not stop")
	}
}
