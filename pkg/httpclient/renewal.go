package httpclient

import "sync"

// renewalGate lets exactly one caller refresh the session while every other
// caller that hits a 401 in the meantime parks until that refresh settles.
type renewalGate struct {
	mu         sync.Mutex
	refreshing bool
	waiters    []chan bool
}

// join either elects the caller as the renewal leader or enqueues it. A
// follower receives the renewal outcome on the returned channel.
func (g *renewalGate) join() (wait <-chan bool, leader bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refreshing {
		ch := make(chan bool, 1)
		g.waiters = append(g.waiters, ch)
		return ch, false
	}
	g.refreshing = true
	return nil, true
}

// settle leaves the refreshing state and wakes every waiter in arrival order.
// It returns how many waiters were released.
func (g *renewalGate) settle(renewed bool) int {
	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	g.refreshing = false
	g.mu.Unlock()

	for _, ch := range waiters {
		ch <- renewed
	}
	return len(waiters)
}

func (g *renewalGate) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

func (g *renewalGate) inFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshing
}
