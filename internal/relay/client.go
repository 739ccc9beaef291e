package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/autofill/internal/logging"
	"github.com/dmitrijs2005/autofill/internal/messages"
	"github.com/gorilla/websocket"
)

// Handler answers runtime messages for one frame. content.Agent is one.
type Handler interface {
	Handle(ctx context.Context, msg messages.Message) (messages.Response, error)
}

var dial = func(ctx context.Context, u string) (*websocket.Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	return ws, err
}

// SocketURL turns the relay base URL into the /ws address of one frame.
func SocketURL(base string, tab, frame int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported relay scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	q := url.Values{}
	q.Set("tab", strconv.Itoa(tab))
	q.Set("frame", strconv.Itoa(frame))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Attach connects h as frame of tab and serves requests until ctx ends or
// the relay closes the socket. A cancelled ctx is not an error.
func Attach(ctx context.Context, base string, tab, frame int, h Handler, log logging.Logger) error {
	if log == nil {
		log = logging.Nop()
	}
	u, err := SocketURL(base, tab, frame)
	if err != nil {
		return err
	}
	ws, err := dial(ctx, u)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer ws.Close()

	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	for {
		var e envelope
		if err := ws.ReadJSON(&e); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
				return nil
			}
			return err
		}

		reply := envelope{ID: e.ID}
		msg, err := messages.Decode(e.Message)
		if err == nil {
			var resp messages.Response
			resp, err = h.Handle(ctx, msg)
			reply.Response = &resp
		}
		if err != nil {
			log.Info(ctx, "request failed", "tab", tab, "frame", frame, "error", err)
			reply.Response = nil
			reply.Error = err.Error()
		}
		if err := ws.WriteJSON(reply); err != nil {
			return err
		}
	}
}
