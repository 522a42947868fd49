package httpclient

import (
	"context"
	"net/http"

	"github.com/starnight-hq/starnight-client/internal/domain"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// Client abstracts plain, unauthenticated GET calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// API is the call surface the session client offers to the rest of the application.
type API interface {
	Get(ctx context.Context, path string, opts ...RequestOption) (Response, error)
	Post(ctx context.Context, path string, body any, opts ...RequestOption) (Response, error)
	Put(ctx context.Context, path string, body any, opts ...RequestOption) (Response, error)
	Patch(ctx context.Context, path string, body any, opts ...RequestOption) (Response, error)
	Delete(ctx context.Context, path string, opts ...RequestOption) (Response, error)
	Do(ctx context.Context, req *Request) (Response, error)
}

// Navigator moves the whole application to target, which is a path relative
// to the application origin.
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}

// NavigatorFunc adapts a plain function to Navigator.
type NavigatorFunc func(ctx context.Context, target string) error

func (f NavigatorFunc) Navigate(ctx context.Context, target string) error { return f(ctx, target) }

// Observer receives session events. Implementations must not block.
type Observer interface {
	Observe(ctx context.Context, evt domain.ClientEvent)
}

// Logger defines the logging surface the client relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

type noopObserver struct{}

func (noopObserver) Observe(context.Context, domain.ClientEvent) {}

type noopNavigator struct{}

func (noopNavigator) Navigate(context.Context, string) error { return nil }
