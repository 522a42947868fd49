package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/starnight-hq/starnight-client/pkg/httpclient"
)

const (
	headerEventID   = "X-Event-ID"
	headerEventKind = "X-Event-Kind"
)

// httpPublisher posts client events to a webhook.
type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = httpDefaultTimeoutSeconds * time.Second
	}
	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}

	return &httpPublisher{
		id:      cfg.ID,
		method:  method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(timeout, cfg.HTTP.RetryCount),
		log:     ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish sends evt as JSON. The event id header lets the receiver drop
// duplicates produced by retries.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	req := h.client.R().
		SetContext(ctx).
		SetHeaders(h.headers).
		SetHeader("Content-Type", "application/json").
		SetHeader(headerEventID, evt.Session.ID).
		SetHeader(headerEventKind, evt.Kind()).
		SetBody(evt)

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"event_id":     evt.Session.ID,
		"status":       resp.StatusCode(),
		"attempts":     resp.Request.Attempt,
	})
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
