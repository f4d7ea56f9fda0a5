// Package statusapi exposes a small HTTP API over a running verification,
// so external tooling (CI jobs, dashboards) can watch convergence without
// parsing the process's log output.
package statusapi

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/sluice/internal/poller"
)

// Snapshot is the externally visible state of the current run.
type Snapshot struct {
	DataStream string        `json:"data_stream"`
	Expected   int64         `json:"expected"`
	Observed   int64         `json:"observed"`
	Ticks      int           `json:"ticks"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	NotFound   bool          `json:"stream_not_found"`
	LastError  string        `json:"last_error,omitempty"`
	Done       bool          `json:"done"`
	Outcome    string        `json:"outcome,omitempty"`
}

// Tracker accumulates poller observations into the latest snapshot. Its
// Observe method is handed to the poller as the OnTick hook, so updates and
// HTTP reads race and the mutex is load-bearing.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewTracker creates a tracker for one run.
func NewTracker(stream string, expected int64) *Tracker {
	return &Tracker{snap: Snapshot{DataStream: stream, Expected: expected}}
}

// Observe records one poller tick.
func (t *Tracker) Observe(o poller.Observation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Observed = o.Observed
	t.snap.Ticks = o.Tick + 1
	t.snap.Elapsed = o.Elapsed
	t.snap.NotFound = o.NotFound
	if o.Err != nil {
		t.snap.LastError = o.Err.Error()
	}
}

// Finish marks the run complete with its terminal outcome.
func (t *Tracker) Finish(res poller.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Done = true
	t.snap.Outcome = res.Outcome.String()
	t.snap.Observed = res.Observed
	t.snap.Ticks = res.Ticks
	t.snap.Elapsed = res.Elapsed
	t.snap.LastError = res.LastError
}

// Current returns a copy of the latest snapshot.
func (t *Tracker) Current() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Server serves the status API for one run.
type Server struct {
	addr      string
	tracker   *Tracker
	server    *http.Server
	startTime time.Time
}

// NewServer creates a status API server.
func NewServer(addr string, tracker *Tracker) *Server {
	if addr == "" {
		addr = "127.0.0.1:3100"
	}
	return &Server{addr: addr, tracker: tracker}
}

// Router builds the gin handler. Split out so tests can exercise routes
// without binding a socket.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/progress", s.handleProgress)
	return r
}

// Start begins serving HTTP requests in the background.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) handleProgress(c *gin.Context) {
	snap := s.tracker.Current()

	percent := 0.0
	if snap.Expected > 0 {
		percent = float64(snap.Observed) / float64(snap.Expected) * 100
		if percent > 100 {
			percent = 100
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data_stream":      snap.DataStream,
		"expected":         snap.Expected,
		"observed":         snap.Observed,
		"percent":          percent,
		"ticks":            snap.Ticks,
		"elapsed":          snap.Elapsed.String(),
		"stream_not_found": snap.NotFound,
		"last_error":       snap.LastError,
		"done":             snap.Done,
		"outcome":          snap.Outcome,
	})
}
