package lazylink

import (
	"sync"
	"sync/atomic"
)

// outcome is the immutable terminal value of one resolution.
type outcome struct {
	addr  Sym
	epoch uint64
	lib   *Library // weak, not reference counted; nil for poisoned outcomes
	err   error    // non-nil for poisoned outcomes
}

// claimed marks a slot whose resolution is in flight.
var claimed = new(outcome)

// slot is the per call-site cache. Its value moves through
// unresolved -> in progress -> resolved|poisoned, and back to unresolved
// only through forced invalidation or an explicit reset.
//
// The whole state lives in one atomic pointer: nil is unresolved, the
// claimed sentinel is in progress, anything else is terminal. The
// resolved fast path is two atomic loads and allocates nothing.
type slot struct {
	out atomic.Pointer[outcome]

	mu sync.Mutex
	cv *sync.Cond
}

func newSlot() *slot {
	s := new(slot)
	s.cv = sync.NewCond(&s.mu)
	return s
}

// fetch drives the slot to a terminal state exactly once and returns the
// stored value. Concurrent first callers race one CAS claim; losers block
// until the winner publishes.
func (s *slot) fetch(set *set, name string) (Sym, error) {
	for {
		switch o := s.out.Load(); {
		case o == nil:
			if set.gone.Load() {
				return 0, ErrUnloaded
			}
			if s.out.CompareAndSwap(nil, claimed) {
				return s.resolve(set, name)
			}
		case o == claimed:
			s.await()
		case o.err != nil:
			return 0, o.err
		case o.epoch == o.lib.epoch.Load():
			return o.addr, nil
		default:
			// stale value of an unload mid invalidation, help it along
			s.out.CompareAndSwap(o, nil)
		}
	}
}

// resolve is the claim winner's path: memoized open, lookup, publish.
func (s *slot) resolve(set *set, name string) (Sym, error) {
	lib, err := set.handle()
	if err != nil {
		if err == ErrUnloaded {
			// a set state error, not a resolution failure: surrender the claim
			s.publish(nil)
			return 0, err
		}
		s.publish(&outcome{err: err})
		return 0, err
	}
	addr, err := lib.lookup(name)
	if err != nil {
		lib.release()
		s.publish(&outcome{err: err})
		return 0, err
	}
	lib.track(s)
	s.publish(&outcome{addr: addr, epoch: lib.Epoch(), lib: lib})
	lib.release()
	return addr, nil
}

func (s *slot) publish(o *outcome) {
	s.out.Store(o)
	s.mu.Lock()
	s.cv.Broadcast()
	s.mu.Unlock()
}

// await blocks while a resolution is in flight, bounded by the winner's
// own work.
func (s *slot) await() {
	s.mu.Lock()
	for s.out.Load() == claimed {
		s.cv.Wait()
	}
	s.mu.Unlock()
}

// invalidate forces the slot back to unresolved if its value came from lib.
func (s *slot) invalidate(lib *Library) {
	for {
		o := s.out.Load()
		if o == nil || o == claimed || o.lib != lib {
			return
		}
		if s.out.CompareAndSwap(o, nil) {
			return
		}
	}
}

// reset clears any terminal value, waiting out an in-flight resolution first.
func (s *slot) reset() {
	for {
		o := s.out.Load()
		switch {
		case o == nil:
			return
		case o == claimed:
			s.await()
		case s.out.CompareAndSwap(o, nil):
			return
		}
	}
}
