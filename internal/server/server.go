// Package server implements watch mode: periodic re-verification with the
// latest report served over HTTP and pushed to WebSocket subscribers.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/opencheck/opencheck/internal/doctor"
	"github.com/opencheck/opencheck/internal/suite"
)

// payload is the JSON document served and pushed to subscribers.
type payload struct {
	GeneratedAt time.Time       `json:"generated_at"`
	OK          bool            `json:"ok"`
	Results     []*suite.Result `json:"results"`
	Error       string          `json:"error,omitempty"`
}

// Watcher re-runs suites on an interval and fans the report out.
type Watcher struct {
	runner   *doctor.Runner
	target   *suite.Target
	names    []string
	interval time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	latest []byte

	subsMu sync.Mutex
	subs   map[chan []byte]struct{}
}

func NewWatcher(runner *doctor.Runner, target *suite.Target, names []string, interval time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		runner:   runner,
		target:   target,
		names:    names,
		interval: interval,
		logger:   logger,
		subs:     make(map[chan []byte]struct{}),
	}
}

// Run re-verifies immediately and then on every tick until the context is
// cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	results, err := w.runner.Run(ctx, w.names, w.target)

	p := payload{GeneratedAt: time.Now().UTC(), OK: err == nil, Results: results}
	if err != nil {
		p.Error = err.Error()
		w.logger.Warn("watch run failed", "error", err)
	}
	for _, res := range results {
		if !res.OK {
			p.OK = false
		}
	}

	data, merr := json.Marshal(p)
	if merr != nil {
		w.logger.Error("marshal watch payload", "error", merr)
		return
	}

	w.mu.Lock()
	w.latest = data
	w.mu.Unlock()

	w.broadcast(data)
	w.logger.Info("watch run complete", "ok", p.OK, "suites", len(results))
}

func (w *Watcher) broadcast(data []byte) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for ch := range w.subs {
		select {
		case ch <- data:
		default:
			// slow subscriber, drop this update
		}
	}
}

func (w *Watcher) subscribe() chan []byte {
	ch := make(chan []byte, 4)
	w.subsMu.Lock()
	w.subs[ch] = struct{}{}
	w.subsMu.Unlock()
	return ch
}

func (w *Watcher) unsubscribe(ch chan []byte) {
	w.subsMu.Lock()
	delete(w.subs, ch)
	w.subsMu.Unlock()
}

// Handler serves the latest report and the WebSocket feed.
func (w *Watcher) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/report", w.handleReport)
	mux.HandleFunc("GET /api/ws", w.handleWS)
	return mux
}

func (w *Watcher) handleReport(rw http.ResponseWriter, r *http.Request) {
	w.mu.RLock()
	data := w.latest
	w.mu.RUnlock()

	rw.Header().Set("Content-Type", "application/json")
	if data == nil {
		rw.WriteHeader(http.StatusServiceUnavailable)
		rw.Write([]byte(`{"error":"no report yet"}`))
		return
	}
	rw.Write(data)
}

func (w *Watcher) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(rw, r, nil)
	if err != nil {
		w.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ch := w.subscribe()
	defer w.unsubscribe(ch)

	// send the current report before streaming updates
	w.mu.RLock()
	latest := w.latest
	w.mu.RUnlock()
	if latest != nil {
		if err := conn.Write(r.Context(), websocket.MessageText, latest); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			if err := conn.Write(r.Context(), websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}

// Serve runs the HTTP server until the context is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, listen string, handler http.Handler, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:         listen,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting watch server", "listen", listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
