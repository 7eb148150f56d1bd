package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/luki/roaster/internal/roast"
)

// StatusError is returned when the endpoint answers outside 2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// HTTP posts each batch as JSON to a fixed URL.
type HTTP struct {
	url     string
	session string
	client  *http.Client
	log     zerolog.Logger
}

func NewHTTP(url, session string, timeout time.Duration, log zerolog.Logger) *HTTP {
	return &HTTP{
		url:     url,
		session: session,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (h *HTTP) Send(ctx context.Context, batch []roast.Record) error {
	body, err := Encode(batch)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.session != "" {
		req.Header.Set(SessionHeader, h.session)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	h.log.Debug().Int("status", resp.StatusCode).Int("records", len(batch)).Msg("batch posted")
	return nil
}

func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
