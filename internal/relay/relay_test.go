package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/autofill/internal/dispatch"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/dmitrijs2005/autofill/internal/messages"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFunc func(ctx context.Context, msg messages.Message) (messages.Response, error)

func (f handlerFunc) Handle(ctx context.Context, msg messages.Message) (messages.Response, error) {
	return f(ctx, msg)
}

type relayEnv struct {
	hub *Hub
	srv *httptest.Server
}

func newRelay(t *testing.T, timeout time.Duration, extensionIDs ...string) *relayEnv {
	t.Helper()
	hub := NewHub(timeout, extensionIDs, nil)
	d := dispatch.New(hub, hub, lifecycle.AlwaysValid{}, dispatch.Policy{MaxAttempts: 1}, nil)
	srv := httptest.NewServer(NewServer("", hub, d, nil).Router())
	t.Cleanup(srv.Close)
	return &relayEnv{hub: hub, srv: srv}
}

// attach connects h as a frame and waits until the hub lists it.
func (e *relayEnv) attach(t *testing.T, tab, frame int, h Handler) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Attach(ctx, e.srv.URL, tab, frame, h, nil) }()

	require.Eventually(t, func() bool {
		ids, err := e.hub.Frames(ctx, tab)
		if err != nil {
			return false
		}
		for _, id := range ids {
			if id == frame {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{"http://127.0.0.1:8080", "ws://127.0.0.1:8080/ws?frame=2&tab=1", false},
		{"https://relay.example/", "wss://relay.example/ws?frame=2&tab=1", false},
		{"ws://relay.example", "ws://relay.example/ws?frame=2&tab=1", false},
		{"ftp://relay.example", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := SocketURL(tt.base, 1, 2)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSendToFrame_NotConnected(t *testing.T) {
	e := newRelay(t, time.Second)
	_, err := e.hub.SendToFrame(context.Background(), 1, 0, messages.CheckForms{})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = e.hub.Frames(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSendToFrame_RoundTrip(t *testing.T) {
	e := newRelay(t, time.Second)

	var mu sync.Mutex
	var got []messages.Message
	e.attach(t, 7, 0, handlerFunc(func(_ context.Context, msg messages.Message) (messages.Response, error) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
		return messages.Response{Status: messages.StatusSuccess}, nil
	}))

	resp, err := e.hub.SendToFrame(context.Background(), 7, 0, messages.Autofill{ProfileKey: "work", EncryptionKey: "pw"})
	require.NoError(t, err)
	assert.Equal(t, messages.StatusSuccess, resp.Status)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []messages.Message{messages.Autofill{ProfileKey: "work", EncryptionKey: "pw"}}, got)
}

func TestSendToFrame_HandlerError(t *testing.T) {
	e := newRelay(t, time.Second)
	e.attach(t, 1, 0, handlerFunc(func(context.Context, messages.Message) (messages.Response, error) {
		return messages.Response{}, errors.New("boom")
	}))

	_, err := e.hub.SendToFrame(context.Background(), 1, 0, messages.CheckForms{})
	assert.EqualError(t, err, "boom")
}

func TestSendToFrame_Timeout(t *testing.T) {
	e := newRelay(t, 50*time.Millisecond)
	release := make(chan struct{})
	e.attach(t, 1, 0, handlerFunc(func(context.Context, messages.Message) (messages.Response, error) {
		<-release
		return messages.Response{}, nil
	}))
	defer close(release)

	_, err := e.hub.SendToFrame(context.Background(), 1, 0, messages.CheckForms{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDetach_Unregisters(t *testing.T) {
	e := newRelay(t, time.Second)
	cancel := e.attach(t, 3, 0, handlerFunc(func(context.Context, messages.Message) (messages.Response, error) {
		return messages.Response{}, nil
	}))
	cancel()

	assert.Eventually(t, func() bool {
		_, err := e.hub.Frames(context.Background(), 3)
		return errors.Is(err, ErrNotConnected)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAPI_Autofill(t *testing.T) {
	e := newRelay(t, time.Second)
	ok := handlerFunc(func(_ context.Context, msg messages.Message) (messages.Response, error) {
		if _, isFill := msg.(messages.Autofill); isFill {
			return messages.Response{Status: messages.StatusSuccess}, nil
		}
		return messages.Forms(true), nil
	})
	noFields := handlerFunc(func(context.Context, messages.Message) (messages.Response, error) {
		return messages.Response{Status: messages.StatusNoFields}, nil
	})
	e.attach(t, 2, 0, noFields)
	e.attach(t, 2, 1, ok)

	res, err := http.Post(e.srv.URL+"/api/tabs/2/autofill", "application/json", strings.NewReader(`{"profile":"work"}`))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body AutofillResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, messages.StatusNoFields, body.Status)
	assert.Equal(t, dispatch.TextNoFields, body.Text)
	assert.True(t, body.IframeFilled)
	assert.Equal(t, []FrameStatus{{Frame: 1, Status: messages.StatusSuccess}}, body.Frames)
}

func TestAPI_AutofillUnconnectedTab(t *testing.T) {
	e := newRelay(t, time.Second)

	res, err := http.Post(e.srv.URL+"/api/tabs/9/autofill", "application/json", strings.NewReader(`{"profile":"work"}`))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)

	var body AutofillResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, dispatch.TextConnectivity, body.Text)
}

func TestAPI_BadRequests(t *testing.T) {
	e := newRelay(t, time.Second)

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		want        int
	}{
		{"bad tab", "/api/tabs/x/autofill", "application/json", `{"profile":"a"}`, http.StatusBadRequest},
		{"no profile", "/api/tabs/1/autofill", "application/json", `{}`, http.StatusBadRequest},
		{"not json", "/api/tabs/1/autofill", "text/plain", `profile=a`, http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := http.Post(e.srv.URL+tt.path, tt.contentType, strings.NewReader(tt.body))
			require.NoError(t, err)
			res.Body.Close()
			assert.Equal(t, tt.want, res.StatusCode)
		})
	}
}

func TestAPI_CheckAndFrames(t *testing.T) {
	e := newRelay(t, time.Second)
	e.attach(t, 4, 0, handlerFunc(func(context.Context, messages.Message) (messages.Response, error) {
		return messages.Forms(true), nil
	}))

	res, err := http.Post(e.srv.URL+"/api/tabs/4/check", "application/json", nil)
	require.NoError(t, err)
	var check map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&check))
	res.Body.Close()
	assert.Equal(t, dispatch.TextFormOnPage, check["text"])

	res, err = http.Get(e.srv.URL + "/api/tabs/4/frames")
	require.NoError(t, err)
	var frames map[string][]int
	require.NoError(t, json.NewDecoder(res.Body).Decode(&frames))
	res.Body.Close()
	assert.Equal(t, []int{0}, frames["frames"])
}

func TestHealthAndMetrics(t *testing.T) {
	e := newRelay(t, time.Second)

	for _, path := range []string{"/healthz", "/metrics"} {
		res, err := http.Get(e.srv.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode, path)
	}
}

func TestServeWS_RejectsBadQuery(t *testing.T) {
	e := newRelay(t, time.Second)
	res, err := http.Get(e.srv.URL + "/ws?tab=1")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestAllowedOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		ids    []string
		want   bool
	}{
		{"no origin", "", nil, true},
		{"any extension", "chrome-extension://abcdef", nil, true},
		{"listed extension", "chrome-extension://abcdef", []string{"other", "abcdef"}, true},
		{"unlisted extension", "chrome-extension://abcdef", []string{"other"}, false},
		{"empty extension id", "chrome-extension://", nil, false},
		{"web page", "https://evil.example", nil, false},
		{"web page with ids", "https://evil.example", []string{"abcdef"}, false},
		{"null origin", "null", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedOrigin(tt.origin, tt.ids))
		})
	}
}

func dialWithOrigin(t *testing.T, e *relayEnv, tab, frame int, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u, err := SocketURL(e.srv.URL, tab, frame)
	require.NoError(t, err)
	hdr := http.Header{}
	hdr.Set("Origin", origin)
	return websocket.DefaultDialer.Dial(u, hdr)
}

func TestServeWS_RejectsForeignOrigin(t *testing.T) {
	e := newRelay(t, time.Second)

	var mu sync.Mutex
	var keys []string
	e.attach(t, 1, 0, handlerFunc(func(_ context.Context, msg messages.Message) (messages.Response, error) {
		mu.Lock()
		keys = append(keys, msg.(messages.Autofill).EncryptionKey)
		mu.Unlock()
		return messages.Response{Status: messages.StatusSuccess}, nil
	}))

	ws, res, err := dialWithOrigin(t, e, 1, 0, "https://evil.example")
	if ws != nil {
		ws.Close()
	}
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// The extension frame keeps its slot and still receives the request.
	body := strings.NewReader(`{"profile":"work","key":"s3cret"}`)
	res, err = http.Post(e.srv.URL+"/api/tabs/1/autofill", "application/json", body)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"s3cret"}, keys)
}

func TestServeWS_ExtensionAllowList(t *testing.T) {
	e := newRelay(t, time.Second, "good-id")

	ws, res, err := dialWithOrigin(t, e, 2, 0, "chrome-extension://bad-id")
	if ws != nil {
		ws.Close()
	}
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	ws, _, err = dialWithOrigin(t, e, 2, 0, "chrome-extension://good-id")
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool {
		ids, err := e.hub.Frames(context.Background(), 2)
		return err == nil && len(ids) == 1 && ids[0] == 0
	}, 2*time.Second, 10*time.Millisecond)
}
