// Package collector receives delivered batches over HTTP or MQTT and
// appends them to the CSV store the viewer reads.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/luki/roaster/internal/roast"
	"github.com/luki/roaster/internal/transport"
)

const (
	maxBatchBytes   = 1 << 20
	unknownSession  = "unknown"
	shutdownTimeout = 5 * time.Second
)

// Writer stores one accepted batch.
type Writer interface {
	Write(session string, records []roast.Record) error
}

// Collector accepts batches and hands them to a Writer.
type Collector struct {
	w   Writer
	log zerolog.Logger

	batches atomic.Uint64
	records atomic.Uint64
}

func New(w Writer, log zerolog.Logger) *Collector {
	return &Collector{
		w:   w,
		log: log.With().Str("component", "collector").Logger(),
	}
}

// Router serves POST /batches and GET /healthz.
func (c *Collector) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(c.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/batches", c.handleBatch)
	r.Get("/healthz", c.handleHealth)
	return r
}

func (c *Collector) handleBatch(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get(transport.SessionHeader)
	if session == "" {
		session = unknownSession
	}

	records, err := transport.Decode(http.MaxBytesReader(w, r.Body, maxBatchBytes))
	if err != nil {
		c.log.Warn().Err(err).Str("session", session).Msg("rejected batch")
		http.Error(w, "Bad Request: cannot parse batch", http.StatusBadRequest)
		return
	}
	if len(records) == 0 {
		http.Error(w, "Bad Request: empty batch", http.StatusBadRequest)
		return
	}

	if err := c.accept(session, records); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "received", "records": len(records)})
}

func (c *Collector) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"batches": c.batches.Load(),
		"records": c.records.Load(),
	})
}

func (c *Collector) accept(session string, records []roast.Record) error {
	if err := c.w.Write(session, records); err != nil {
		c.log.Error().Err(err).Str("session", session).Msg("store batch")
		return err
	}
	c.batches.Add(1)
	c.records.Add(uint64(len(records)))
	c.log.Debug().Str("session", session).Int("records", len(records)).Msg("batch stored")
	return nil
}

func (c *Collector) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		c.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// Serve listens on addr until ctx ends, then shuts down gracefully.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Info().Str("addr", addr).Msg("collector listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
