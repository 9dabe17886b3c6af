// Package web exposes the controller over HTTP: application info, health,
// the GPIO status report and a test trigger for simulated presses.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/herrera/callpanel/internal/press"
	"github.com/herrera/callpanel/internal/status"
)

// Version is reported on the info endpoint.
const Version = "1.0.0"

// Trigger injects a simulated press. *service.Service satisfies it.
type Trigger interface {
	TriggerPress(ctx context.Context, index int) (press.Outcome, error)
}

// StatusSource produces status snapshots. *status.Reporter satisfies it.
type StatusSource interface {
	Snapshot() status.Snapshot
}

// Options configures a Server.
type Options struct {
	Addr     string
	DeviceID string
	Trigger  Trigger
	Status   StatusSource
	Logger   *log.Logger
}

// Server is the HTTP front of the controller.
type Server struct {
	httpServer *http.Server
	opts       Options
	started    time.Time
}

type errorResponse struct {
	Error string `json:"error"`
}

type infoResponse struct {
	Message   string `json:"message"`
	Version   string `json:"version"`
	DeviceID  string `json:"device_id"`
	Switches  int    `json:"switches"`
	Bulbs     int    `json:"bulbs"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type healthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Memory        struct {
		AllocBytes uint64 `json:"alloc_bytes"`
		SysBytes   uint64 `json:"sys_bytes"`
		NumGC      uint32 `json:"num_gc"`
	} `json:"memory"`
}

type triggerResponse struct {
	Message string        `json:"message"`
	Result  press.Outcome `json:"result"`
}

// New creates a Server. It does not listen yet.
func New(opts Options) *Server {
	s := &Server{opts: opts, started: time.Now()}

	router := httprouter.New()
	router.GET("/", s.handleInfo)
	router.GET("/health", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.GET("/test/switch/:index", s.handleTestSwitch)

	s.httpServer = &http.Server{
		Addr:    opts.Addr,
		Handler: router,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut
// down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Handler returns the route handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap := s.opts.Status.Snapshot()
	writeJSON(w, http.StatusOK, infoResponse{
		Message:   "switch controller running",
		Version:   Version,
		DeviceID:  s.opts.DeviceID,
		Switches:  snap.SwitchCount,
		Bulbs:     snap.BulbCount,
		Status:    string(snap.Mode),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := healthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	resp.Memory.AllocBytes = mem.Alloc
	resp.Memory.SysBytes = mem.Sys
	resp.Memory.NumGC = mem.NumGC
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.opts.Status.Snapshot())
}

func (s *Server) handleTestSwitch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	raw := ps.ByName("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "switch index must be a number, got " + strconv.Quote(raw),
		})
		return
	}

	out, err := s.opts.Trigger.TriggerPress(r.Context(), index)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, press.ErrInvalidIndex) {
			code = http.StatusBadRequest
		}
		writeJSON(w, code, errorResponse{Error: err.Error()})
		return
	}

	s.opts.Logger.Info("test press handled",
		"switch", index, "bulb_ok", out.Bulb.OK, "notify_ok", out.Notify.OK)
	writeJSON(w, http.StatusOK, triggerResponse{
		Message: "switch " + raw + " pressed",
		Result:  out,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
