package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/starnight-hq/starnight-client/internal/domain"
)

func TestFanoutObserverDeliversAsynchronously(t *testing.T) {
	ok := &stubPublisher{id: "ok", typ: "stub"}
	bad := &stubPublisher{id: "bad", typ: "stub", err: errors.New("down")}
	obs := NewFanoutObserver(NewFanout([]Publisher{ok, bad}), "starnight-client", nil)

	ctx, cancel := context.WithCancel(context.Background())
	obs.Observe(ctx, domain.ClientEvent{ID: "evt-9", Kind: domain.EventSessionRenewalFailed})
	// the request that triggered the event may finish before delivery does
	cancel()
	obs.Wait()

	if ok.callCount() != 1 || bad.callCount() != 1 {
		t.Fatalf("expected one delivery per publisher, got ok=%d bad=%d", ok.callCount(), bad.callCount())
	}
	if got := ok.events[0]; got.Source != "starnight-client" || got.Session.ID != "evt-9" {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestFanoutObserverWithoutPublishersIsNoop(t *testing.T) {
	obs := NewFanoutObserver(NewFanout(nil), "x", nil)
	obs.Observe(context.Background(), domain.ClientEvent{ID: "evt"})
	obs.Wait()

	var nilObs *FanoutObserver
	nilObs.Observe(context.Background(), domain.ClientEvent{})
	nilObs.Wait()
}
