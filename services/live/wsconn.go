package livesvc

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // auth is by token, not origin
}

// WSConn adapts a gorilla websocket to Conn. gorilla allows one concurrent writer,
// so every write goes through mu.
type WSConn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

var _ Conn = (*WSConn)(nil)

func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{id: uuid.New().String(), ws: ws}
}

func (c *WSConn) ID() string { return c.id }

func (c *WSConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *WSConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *WSConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	return c.ws.Close()
}

// ReadPump reads until the peer goes away. Pongs and client frames both count as activity.
func (c *WSConn) ReadPump(onActivity func()) error {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetPongHandler(func(string) error {
		onActivity()
		return nil
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseServiceRestart) {
				return err
			}
			return nil
		}
		onActivity()
	}
}
