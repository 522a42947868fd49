package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	userAgent         = "starnight-client"
	retryWait         = 200 * time.Millisecond
	retryMaxWait      = 2 * time.Second
	maxRetriesAllowed = 5
)

// RestyClient performs plain GETs that never carry session credentials. It
// backs everything outside the session itself, such as static pages.
type RestyClient struct {
	client *resty.Client
}

var _ Client = (*RestyClient)(nil)

// NewRestyClient creates a cookie-less RestyClient with the given timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	c := newRestyBaseClient(timeout)
	c.SetCookieJar(nil)
	return &RestyClient{client: c}
}

// NewRestyHTTPClient returns a cookie-less resty.Client that retries transport
// errors and 5xx responses up to retries times. Only use it for idempotent
// deliveries; the session client never retries on its own.
func NewRestyHTTPClient(timeout time.Duration, retries int) *resty.Client {
	c := newRestyBaseClient(timeout)
	c.SetCookieJar(nil)
	if retries > maxRetriesAllowed {
		retries = maxRetriesAllowed
	}
	if retries > 0 {
		c.SetRetryCount(retries).
			SetRetryWaitTime(retryWait).
			SetRetryMaxWaitTime(retryMaxWait).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				return err != nil || (resp != nil && resp.StatusCode() >= http.StatusInternalServerError)
			})
	}
	return c
}

func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetHeader("User-Agent", userAgent)
	return c
}

// Get fetches an absolute url with the given headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	return &restyResponseAdapter{resp: resp}, nil
}

type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }
