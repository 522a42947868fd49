package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/starnight-hq/starnight-client/internal/domain"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultProbeTimeout    = 3 * time.Second
	DefaultRefreshPath     = "/auth/token/refresh"
	DefaultProbePath       = "/public/posts/hot?size=1"
	DefaultMaintenancePath = "/maintenance.html"

	HeaderRequestID    = "X-Request-ID"
	contentTypeJSON    = "application/json"
	headerContentType  = "Content-Type"
	maintenanceParam   = "t"
	maxRefreshBodySize = 4 << 10
)

// Options configures a SessionClient.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	ProbeTimeout time.Duration
	// Jar holds the session cookies. A fresh in-memory jar is used when nil.
	Jar http.CookieJar

	RefreshPath     string
	ProbePath       string
	MaintenancePath string
	PublicPaths     []string

	Navigator Navigator
	Observer  Observer
	Logger    Logger

	// Transport replaces the underlying round tripper of both the session and probe clients.
	Transport http.RoundTripper
	Now       func() time.Time
}

// SessionClient sends authenticated requests to the community backend. It
// renews the session transparently on a 401, queues concurrent callers while a
// renewal is in flight, and escalates confirmed outages to the maintenance page.
//
// Create one per process and share it; the renewal state lives on the instance.
type SessionClient struct {
	rest  *resty.Client
	probe *resty.Client

	baseURL            string
	refreshPath        string
	probePath          string
	maintenancePath    string
	defaultContentType string
	allowlist          Allowlist

	gate renewalGate

	navigator Navigator
	observer  Observer
	log       Logger
	now       func() time.Time
}

var _ API = (*SessionClient)(nil)

// NewSessionClient validates opts and builds the client.
func NewSessionClient(opts Options) (*SessionClient, error) {
	opts, err := normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	rest := newRestyBaseClient(opts.Timeout)
	rest.SetBaseURL(opts.BaseURL)
	rest.SetCookieJar(opts.Jar)

	probe := newRestyBaseClient(opts.ProbeTimeout)
	probe.SetBaseURL(opts.BaseURL)
	probe.SetCookieJar(nil)

	if opts.Transport != nil {
		rest.SetTransport(opts.Transport)
		probe.SetTransport(opts.Transport)
	}

	return &SessionClient{
		rest:               rest,
		probe:              probe,
		baseURL:            opts.BaseURL,
		refreshPath:        opts.RefreshPath,
		probePath:          opts.ProbePath,
		maintenancePath:    opts.MaintenancePath,
		defaultContentType: contentTypeJSON,
		allowlist:          NewAllowlist(opts.PublicPaths),
		navigator:          opts.Navigator,
		observer:           opts.Observer,
		log:                opts.Logger,
		now:                opts.Now,
	}, nil
}

func normalizeOptions(opts Options) (Options, error) {
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return opts, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.RefreshPath == "" {
		opts.RefreshPath = DefaultRefreshPath
	}
	if opts.ProbePath == "" {
		opts.ProbePath = DefaultProbePath
	}
	if opts.MaintenancePath == "" {
		opts.MaintenancePath = DefaultMaintenancePath
	}
	if opts.PublicPaths == nil {
		opts.PublicPaths = DefaultPublicPaths
	}
	if opts.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return opts, fmt.Errorf("create cookie jar: %w", err)
		}
		opts.Jar = jar
	}
	if opts.Navigator == nil {
		opts.Navigator = noopNavigator{}
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts, nil
}

// BaseURL returns the backend base URL every path is resolved against.
func (c *SessionClient) BaseURL() string { return c.baseURL }

func (c *SessionClient) Get(ctx context.Context, path string, opts ...RequestOption) (Response, error) {
	return c.Do(ctx, buildRequest(http.MethodGet, path, nil, opts))
}

func (c *SessionClient) Post(ctx context.Context, path string, body any, opts ...RequestOption) (Response, error) {
	return c.Do(ctx, buildRequest(http.MethodPost, path, body, opts))
}

func (c *SessionClient) Put(ctx context.Context, path string, body any, opts ...RequestOption) (Response, error) {
	return c.Do(ctx, buildRequest(http.MethodPut, path, body, opts))
}

func (c *SessionClient) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (Response, error) {
	return c.Do(ctx, buildRequest(http.MethodPatch, path, body, opts))
}

func (c *SessionClient) Delete(ctx context.Context, path string, opts ...RequestOption) (Response, error) {
	return c.Do(ctx, buildRequest(http.MethodDelete, path, nil, opts))
}

func buildRequest(method, path string, body any, opts []RequestOption) *Request {
	req := &Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		if opt != nil {
			opt(req)
		}
	}
	return req
}

// Do sends req through the full recovery pipeline.
func (c *SessionClient) Do(ctx context.Context, req *Request) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	prepared, err := req.prepare()
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, &attempt{req: prepared})
}

func (c *SessionClient) execute(ctx context.Context, at *attempt) (Response, error) {
	resp, err := c.send(ctx, at.req)
	if err != nil {
		sendErr := fmt.Errorf("%s %s: %w", at.req.Method, at.req.Path, err)
		if isCallerCancellation(ctx, err) {
			return nil, sendErr
		}
		return nil, c.escalateOutage(ctx, at.req, sendErr)
	}

	if !resp.IsError() {
		if err := decodeResult(at.req, resp); err != nil {
			return nil, err
		}
		return &restyResponseAdapter{resp: resp}, nil
	}

	respErr := &ResponseError{
		Method:     at.req.Method,
		URL:        at.req.Path,
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}
	switch {
	case respErr.StatusCode == http.StatusUnauthorized:
		return c.recoverUnauthorized(ctx, at, respErr)
	case isGatewayStatus(respErr.StatusCode):
		return nil, c.escalateOutage(ctx, at.req, respErr)
	default:
		return nil, respErr
	}
}

// send normalizes headers and body for req and performs one round trip.
func (c *SessionClient) send(ctx context.Context, req *Request) (*resty.Response, error) {
	r := c.rest.R().
		SetContext(ctx).
		SetHeader("Accept", contentTypeJSON).
		SetHeader(HeaderRequestID, uuid.NewString())

	for key, values := range req.Header {
		for _, v := range values {
			r.Header.Add(key, v)
		}
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}

	if req.IsMultipart() {
		if len(req.FormFields) > 0 {
			r.SetMultipartFormData(req.FormFields)
		}
		for _, f := range req.Files {
			r.SetFileReader(f.Param, f.FileName, f.reader())
		}
		if req.Raw && req.Body != nil {
			r.SetBody(req.Body)
		}
		// the transport computes the multipart boundary
		r.Header.Del(headerContentType)
	} else {
		r.SetHeader(headerContentType, c.defaultContentType)
		if req.Body != nil {
			r.SetBody(req.Body)
		}
	}

	return r.Execute(req.Method, req.Path)
}

func decodeResult(req *Request, resp *resty.Response) error {
	if req.Result == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), req.Result); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.Path, err)
	}
	return nil
}

// recoverUnauthorized runs the renewal protocol for a 401 on at.
func (c *SessionClient) recoverUnauthorized(ctx context.Context, at *attempt, respErr *ResponseError) (Response, error) {
	if c.allowlist.Matches(at.req.Path) {
		return nil, respErr
	}
	if at.retried {
		c.log.DebugObj("unauthorized after renewal; giving up", "session_retry", map[string]any{
			"method": at.req.Method,
			"url":    at.req.Path,
		})
		return nil, respErr
	}
	retry := at.retry()

	wait, leader := c.gate.join()
	if !leader {
		select {
		case renewed := <-wait:
			if !renewed {
				return nil, respErr
			}
			return c.execute(ctx, retry)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !c.renewSession(ctx, at.req) {
		return nil, respErr
	}
	return c.execute(ctx, retry)
}

// renewSession issues the single refresh call for the current cycle. The gate
// is settled in a deferred call so a failing or panicking refresh still
// releases every waiter.
func (c *SessionClient) renewSession(ctx context.Context, trigger *Request) (renewed bool) {
	start := c.now()
	var renewErr error
	defer func() {
		released := c.gate.settle(renewed)
		evt := domain.ClientEvent{
			ID:         uuid.NewString(),
			Kind:       domain.EventSessionRenewed,
			Method:     trigger.Method,
			URL:        trigger.Path,
			Waiters:    released,
			OccurredAt: c.now().UTC(),
		}
		meta := map[string]any{
			"trigger":    trigger.Method + " " + trigger.Path,
			"waiters":    released,
			"elapsed_ms": c.now().Sub(start).Milliseconds(),
		}
		if renewed {
			c.log.InfoObj("session renewed", "session_renewal", meta)
		} else {
			evt.Kind = domain.EventSessionRenewalFailed
			if renewErr != nil {
				evt.Error = renewErr.Error()
				meta["error"] = renewErr.Error()
			}
			c.log.WarnObj("session renewal failed", "session_renewal", meta)
		}
		c.observer.Observe(ctx, evt)
	}()

	c.log.DebugObj("session renewal started", "session_renewal", map[string]any{
		"trigger": trigger.Method + " " + trigger.Path,
	})
	// one caller's cancellation must not fail the renewal for everyone queued behind it
	renewErr = c.refresh(context.WithoutCancel(ctx))
	return renewErr == nil
}

type refreshResult struct {
	Success bool `json:"success"`
}

// refresh calls the token refresh endpoint. A 2xx without a truthy success flag is a failure.
func (c *SessionClient) refresh(ctx context.Context) error {
	var out refreshResult
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader(headerContentType, c.defaultContentType).
		SetHeader("Accept", contentTypeJSON).
		SetHeader(HeaderRequestID, uuid.NewString()).
		ForceContentType(contentTypeJSON).
		SetResult(&out).
		Post(c.refreshPath)
	if err != nil {
		return fmt.Errorf("refresh request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d", ErrRenewalFailed, resp.StatusCode())
	}
	if !out.Success {
		body := resp.Body()
		if len(body) > maxRefreshBodySize {
			body = body[:maxRefreshBodySize]
		}
		return fmt.Errorf("%w: %s", ErrRenewalFailed, readBodySnippet(body))
	}
	return nil
}
