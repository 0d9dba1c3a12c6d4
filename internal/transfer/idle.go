package transfer

import "time"

// idleTimer fires when no channel activity is seen for d. A zero d never fires.
type idleTimer struct {
	d time.Duration
	t *time.Timer
}

func newIdleTimer(d time.Duration) *idleTimer {
	it := &idleTimer{d: d}
	if d > 0 {
		it.t = time.NewTimer(d)
	}
	return it
}

func (it *idleTimer) C() <-chan time.Time {
	if it.t == nil {
		return nil
	}
	return it.t.C
}

func (it *idleTimer) reset() {
	if it.t == nil {
		return
	}
	it.t.Stop()
	select {
	case <-it.t.C:
	default:
	}
	it.t.Reset(it.d)
}

func (it *idleTimer) stop() {
	if it.t == nil {
		return
	}
	it.t.Stop()
	it.t = nil
}
