package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/autofill/internal/dispatch"
	"github.com/dmitrijs2005/autofill/internal/logging"
	"github.com/dmitrijs2005/autofill/internal/messages"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatcher is the part of dispatch.Dispatcher the HTTP API drives.
type Dispatcher interface {
	Autofill(ctx context.Context, tabID int, profileKey, encryptionKey string) (dispatch.Outcome, error)
	CheckForms(ctx context.Context, tabID int) (string, error)
}

type Server struct {
	address    string
	hub        *Hub
	dispatcher Dispatcher
	logger     logging.Logger
}

func NewServer(address string, hub *Hub, d Dispatcher, l logging.Logger) *Server {
	if l == nil {
		l = logging.Nop()
	}
	return &Server{address: address, hub: hub, dispatcher: d, logger: l.With("module", "relay_server")}
}

// Router mounts:
//
//	GET  /ws?tab=&frame=           frame registration socket
//	GET  /healthz                  liveness
//	GET  /metrics                  prometheus
//	GET  /api/tabs/{tab}/frames    connected frame ids
//	POST /api/tabs/{tab}/autofill  {"profile", "key"}
//	POST /api/tabs/{tab}/check     form detection
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogging)

	r.Get("/ws", s.hub.ServeWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/tabs/{tab}", func(r chi.Router) {
		r.Get("/frames", s.frames)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			r.Post("/autofill", s.autofill)
		})
		r.Post("/check", s.check)
	})
	return r
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func tabParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	tab, err := strconv.Atoi(chi.URLParam(r, "tab"))
	if err != nil {
		http.Error(w, "invalid tab", http.StatusBadRequest)
		return 0, false
	}
	return tab, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) frames(w http.ResponseWriter, r *http.Request) {
	tab, ok := tabParam(w, r)
	if !ok {
		return
	}
	ids, err := s.hub.Frames(r.Context(), tab)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int{"frames": ids})
}

// AutofillRequest is the body of POST /api/tabs/{tab}/autofill.
type AutofillRequest struct {
	Profile string `json:"profile"`
	Key     string `json:"key,omitempty"`
}

type FrameStatus struct {
	Frame  int             `json:"frame"`
	Status messages.Status `json:"status,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// AutofillResponse reports frame 0's status and the status line a popup
// would show for it.
type AutofillResponse struct {
	Status       messages.Status `json:"status"`
	Text         string          `json:"text"`
	IframeFilled bool            `json:"iframeFilled"`
	Frames       []FrameStatus   `json:"frames,omitempty"`
}

func (s *Server) autofill(w http.ResponseWriter, r *http.Request) {
	tab, ok := tabParam(w, r)
	if !ok {
		return
	}
	var req AutofillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Profile == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	out, err := s.dispatcher.Autofill(r.Context(), tab, req.Profile, req.Key)
	if err != nil {
		s.logger.Info(r.Context(), "autofill failed", "tab", tab, "error", err)
		code := http.StatusInternalServerError
		if errors.Is(err, dispatch.ErrConnectivity) {
			code = http.StatusBadGateway
		}
		writeJSON(w, code, AutofillResponse{Status: messages.StatusError, Text: dispatch.ErrorText(err)})
		return
	}

	resp := AutofillResponse{Status: out.Main.Status, Text: out.Text(), IframeFilled: out.IframeFilled()}
	for _, f := range out.Frames {
		fs := FrameStatus{Frame: f.FrameID, Status: f.Response.Status}
		if f.Err != nil {
			fs.Status, fs.Error = "", f.Err.Error()
		}
		resp.Frames = append(resp.Frames, fs)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	tab, ok := tabParam(w, r)
	if !ok {
		return
	}
	text, err := s.dispatcher.CheckForms(r.Context(), tab)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"text": dispatch.ErrorText(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// Run listens on the configured address until ctx ends, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping relay server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting relay server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
