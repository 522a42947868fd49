package publishers

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Publisher delivers client events to one downstream sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Fanout delivers every event to all configured publishers in parallel.
type Fanout struct {
	publishers []Publisher
}

// NewFanout builds a Fanout over pubs, skipping nil entries.
func NewFanout(pubs []Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range pubs {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish hands evt to every publisher and waits for all of them. It returns
// how many deliveries succeeded together with the joined failures.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f.Size() == 0 {
		return 0, nil
	}

	errs := make([]error, len(f.publishers))
	var wg sync.WaitGroup
	for i, p := range f.publishers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Publish(ctx, evt); err != nil {
				errs[i] = fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err)
			}
		}()
	}
	wg.Wait()

	delivered := 0
	for _, err := range errs {
		if err == nil {
			delivered++
		}
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases publishers that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.publishers)
}
