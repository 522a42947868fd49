package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps publisher types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	PublisherFor(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)
}

// builderRegistry is filled before any publisher is built and only read afterwards.
type builderRegistry map[string]Builder

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) Registry {
	r := builderRegistry{}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// DefaultRegistry knows every sink type the publishers file accepts.
func DefaultRegistry() Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:   newHTTPPublisher,
		TypeSQS:    newSQSPublisher,
		TypeSNS:    newSNSPublisher,
		TypePubSub: newPubSubPublisher,
	})
}

func (r builderRegistry) Register(typ string, builder Builder) {
	if typ = strings.ToLower(strings.TrimSpace(typ)); typ != "" && builder != nil {
		r[typ] = builder
	}
}

// PublisherFor builds the publisher for cfg. Entries with a kinds list are
// wrapped so other kinds never reach the sink.
func (r builderRegistry) PublisherFor(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("publisher %q has no type configured", cfg.ID)
	}
	builder, ok := r[strings.ToLower(cfg.Type)]
	if !ok {
		return nil, fmt.Errorf("no publisher registered for type %q", cfg.Type)
	}

	pub, err := builder(ctx, cfg, ensureLogger(log))
	if err != nil {
		return nil, err
	}
	if len(cfg.Kinds) > 0 {
		pub = &kindFilter{Publisher: pub, cfg: cfg}
	}
	return pub, nil
}

// BuildAll instantiates a publisher per config. On failure the publishers
// already built are closed before the error is returned.
func BuildAll(ctx context.Context, reg Registry, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := reg.PublisherFor(ctx, cfg, log)
		if err != nil {
			buildErr := fmt.Errorf("build publisher %q: %w", cfg.ID, err)
			return nil, errors.Join(buildErr, closeAll(pubs))
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

func closeAll(pubs []Publisher) error {
	var errs []error
	for _, p := range pubs {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", p.Type(), p.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}

type kindFilter struct {
	Publisher
	cfg PublisherConfig
}

func (k *kindFilter) Publish(ctx context.Context, evt Event) error {
	if !k.cfg.Accepts(evt.Kind()) {
		return nil
	}
	return k.Publisher.Publish(ctx, evt)
}

func (k *kindFilter) Close() error {
	if c, ok := k.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
