// Package relay carries runtime messages over WebSocket so that frames
// living in another process can be driven by the dispatcher.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/autofill/internal/logging"
	"github.com/dmitrijs2005/autofill/internal/messages"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrNotConnected = errors.New("frame not connected")
	ErrDisconnected = errors.New("frame disconnected")
)

// envelope is one WebSocket frame in either direction. Requests carry
// Message, replies carry Response or Error under the request's ID.
type envelope struct {
	ID       string             `json:"id"`
	Message  json.RawMessage    `json:"message,omitempty"`
	Response *messages.Response `json:"response,omitempty"`
	Error    string             `json:"error,omitempty"`
}

type peer struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan envelope
	done    chan struct{}
}

func newPeer(ws *websocket.Conn) *peer {
	return &peer{ws: ws, pending: make(map[string]chan envelope), done: make(chan struct{})}
}

func (p *peer) write(e envelope) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.ws.WriteJSON(e)
}

func (p *peer) await(id string) chan envelope {
	ch := make(chan envelope, 1)
	p.mu.Lock()
	p.pending[id] = ch
	p.mu.Unlock()
	return ch
}

func (p *peer) forget(id string) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

func (p *peer) resolve(e envelope) bool {
	p.mu.Lock()
	ch, ok := p.pending[e.ID]
	delete(p.pending, e.ID)
	p.mu.Unlock()
	if ok {
		ch <- e
	}
	return ok
}

// Hub tracks the connected frames of every tab. It implements
// dispatch.Messenger and dispatch.FrameLister.
type Hub struct {
	timeout  time.Duration
	log      logging.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	tabs map[int]map[int]*peer
}

const extensionScheme = "chrome-extension://"

// NewHub returns a hub whose requests time out after timeout unless the
// caller's context ends first. Only extension pages and clients that send
// no Origin may connect; a non-empty extensionIDs narrows the extensions to
// those ids.
func NewHub(timeout time.Duration, extensionIDs []string, log logging.Logger) *Hub {
	if log == nil {
		log = logging.Nop()
	}
	h := &Hub{
		timeout: timeout,
		log:     log.With("module", "relay_hub"),
		tabs:    make(map[int]map[int]*peer),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if AllowedOrigin(origin, extensionIDs) {
				return true
			}
			h.log.Warn(r.Context(), "rejected websocket origin", "origin", origin)
			return false
		},
	}
	return h
}

// AllowedOrigin reports whether a socket opened from origin may register
// frames.
func AllowedOrigin(origin string, extensionIDs []string) bool {
	if origin == "" {
		return true
	}
	id, ok := strings.CutPrefix(origin, extensionScheme)
	if !ok || id == "" {
		return false
	}
	return len(extensionIDs) == 0 || slices.Contains(extensionIDs, id)
}

func (h *Hub) register(tab, frame int, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	frames, ok := h.tabs[tab]
	if !ok {
		frames = make(map[int]*peer)
		h.tabs[tab] = frames
	}
	if old, ok := frames[frame]; ok {
		old.ws.Close()
	} else {
		connectedFrames.Inc()
	}
	frames[frame] = p
}

func (h *Hub) unregister(tab, frame int, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	frames := h.tabs[tab]
	if frames[frame] != p {
		return
	}
	delete(frames, frame)
	if len(frames) == 0 {
		delete(h.tabs, tab)
	}
	connectedFrames.Dec()
}

func (h *Hub) peer(tab, frame int) (*peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.tabs[tab][frame]
	return p, ok
}

// Frames lists the connected frame ids of tab in ascending order.
func (h *Hub) Frames(_ context.Context, tab int) ([]int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	frames, ok := h.tabs[tab]
	if !ok {
		return nil, fmt.Errorf("tab %d: %w", tab, ErrNotConnected)
	}
	ids := make([]int, 0, len(frames))
	for id := range frames {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// SendToFrame writes msg to the frame's socket and waits for the reply with
// the same id.
func (h *Hub) SendToFrame(ctx context.Context, tab, frame int, msg messages.Message) (messages.Response, error) {
	p, ok := h.peer(tab, frame)
	if !ok {
		return messages.Response{}, fmt.Errorf("tab %d frame %d: %w", tab, frame, ErrNotConnected)
	}

	raw, err := messages.Encode(msg)
	if err != nil {
		return messages.Response{}, err
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	id := uuid.NewString()
	ch := p.await(id)
	defer p.forget(id)

	if err := p.write(envelope{ID: id, Message: raw}); err != nil {
		return messages.Response{}, fmt.Errorf("write to tab %d frame %d: %w", tab, frame, err)
	}

	select {
	case e := <-ch:
		if e.Error != "" {
			return messages.Response{}, errors.New(e.Error)
		}
		if e.Response == nil {
			return messages.Response{}, fmt.Errorf("tab %d frame %d: empty reply", tab, frame)
		}
		return *e.Response, nil
	case <-p.done:
		return messages.Response{}, fmt.Errorf("tab %d frame %d: %w", tab, frame, ErrDisconnected)
	case <-ctx.Done():
		return messages.Response{}, ctx.Err()
	}
}

// ServeWS upgrades GET /ws?tab=&frame= and registers the socket as that
// frame until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	tab, err := strconv.Atoi(r.URL.Query().Get("tab"))
	if err != nil {
		http.Error(w, "invalid tab", http.StatusBadRequest)
		return
	}
	frame, err := strconv.Atoi(r.URL.Query().Get("frame"))
	if err != nil || frame < 0 {
		http.Error(w, "invalid frame", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Info(r.Context(), "upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	p := newPeer(ws)
	h.register(tab, frame, p)
	defer h.unregister(tab, frame, p)
	defer close(p.done)

	h.log.Info(r.Context(), "frame connected", "tab", tab, "frame", frame)
	for {
		var e envelope
		if err := ws.ReadJSON(&e); err != nil {
			h.log.Info(r.Context(), "frame disconnected", "tab", tab, "frame", frame, "error", err)
			return
		}
		if !p.resolve(e) {
			h.log.Debug(r.Context(), "reply without request", "id", e.ID)
		}
	}
}
