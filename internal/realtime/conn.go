package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readLimitBytes = 1 << 20
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	writeWait      = 10 * time.Second
)

// NewUpgrader returns the websocket upgrader for the control-channel relay. allowedOrigins empty
// means any origin; CORS for the REST API is handled separately.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := map[string]bool{}
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			return allowed[r.Header.Get("Origin")]
		},
	}
}

// wsConn adds deadlines and keepalive pings to a gorilla connection.
type wsConn struct {
	*websocket.Conn
	done chan struct{}
}

// WrapConn configures read limits and starts a ping loop that stops on Close.
func WrapConn(c *websocket.Conn) Conn {
	c.SetReadLimit(readLimitBytes)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})
	w := &wsConn{Conn: c, done: make(chan struct{})}
	go w.pingLoop()
	return w
}

func (w *wsConn) ReadJSON(v any) error {
	err := w.Conn.ReadJSON(v)
	if err == nil {
		_ = w.Conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	return err
}

// WriteJSON is called with the engine's write lock held, so it never races the ping loop's
// control frames (WriteControl is safe to call concurrently).
func (w *wsConn) WriteJSON(v any) error {
	_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.Conn.WriteJSON(v)
}

func (w *wsConn) Close() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	_ = w.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return w.Conn.Close()
}

func (w *wsConn) pingLoop() {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-t.C:
			if err := w.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
