package publishers

import (
	"context"
	"sync"
	"time"

	"github.com/starnight-hq/starnight-client/internal/domain"
)

const defaultObserveTimeout = 5 * time.Second

// FanoutObserver forwards session events from the HTTP client to a Fanout.
// Publishing happens off the request path; Wait drains pending deliveries.
type FanoutObserver struct {
	fanout  *Fanout
	source  string
	timeout time.Duration
	log     Logger
	wg      sync.WaitGroup
}

// NewFanoutObserver builds an observer that tags events with source.
func NewFanoutObserver(fanout *Fanout, source string, log Logger) *FanoutObserver {
	return &FanoutObserver{
		fanout:  fanout,
		source:  source,
		timeout: defaultObserveTimeout,
		log:     ensureLogger(log),
	}
}

// Observe publishes evt asynchronously with a bounded timeout.
func (o *FanoutObserver) Observe(ctx context.Context, evt domain.ClientEvent) {
	if o == nil || o.fanout.Size() == 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		pctx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		delivered, err := o.fanout.Publish(pctx, NewEvent(o.source, evt))
		if err != nil {
			o.log.WarnObj("session event delivery incomplete", "session_event_delivery", map[string]any{
				"event_id":  evt.ID,
				"kind":      evt.Kind,
				"delivered": delivered,
				"error":     err.Error(),
			})
			return
		}
		o.log.DebugObj("session event delivered", "session_event_delivery", map[string]any{
			"event_id":  evt.ID,
			"kind":      evt.Kind,
			"delivered": delivered,
		})
	}()
}

// Wait blocks until every pending delivery has finished.
func (o *FanoutObserver) Wait() {
	if o == nil {
		return
	}
	o.wg.Wait()
}
