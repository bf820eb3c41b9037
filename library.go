package lazylink

import (
	"sync"
	"sync/atomic"
)

// Library owns exactly one opened platform handle. It is shared by every
// call site resolved through it and reference counted; the platform close
// happens at the final release, never while a lookup is in flight.
//
// A library is either open or closed and the transition is one way,
// reopening the same candidate produces a new Library.
type Library struct {
	name string
	sys  uintptr
	ld   Loader

	// refs counts the owning set plus every in-flight resolution.
	refs atomic.Int64
	// closed marks the begin of an unload; new retains are refused from
	// then on while in-flight lookups run to completion.
	closed atomic.Bool
	// epoch is stamped into resolved call sites and bumped on unload to
	// make values cached against this handle detectably stale.
	epoch atomic.Uint64

	mu    sync.Mutex
	idle  *sync.Cond
	bound map[*slot]struct{}
}

func newLibrary(ld Loader, name string, sys uintptr) *Library {
	l := &Library{name: name, sys: sys, ld: ld}
	l.refs.Store(1)
	l.epoch.Store(1)
	l.bound = make(map[*slot]struct{})
	l.idle = sync.NewCond(&l.mu)
	return l
}

// Name is the identifier that opened this library, empty for the process image.
func (l *Library) Name() string { return l.name }

// Epoch is the current generation of this handle.
func (l *Library) Epoch() uint64 { return l.epoch.Load() }

// Closed reports whether this handle started closing.
func (l *Library) Closed() bool { return l.closed.Load() }

// Symbol resolves name within this library, failing with ErrClosed once
// the handle started closing and with SymbolError when the platform
// loader reports no such symbol.
func (l *Library) Symbol(name string) (Sym, error) {
	if !l.retain() {
		return 0, ErrClosed
	}
	defer l.release()
	return l.lookup(name)
}

// lookup must only run under a retained reference.
func (l *Library) lookup(name string) (Sym, error) {
	addr, err := l.ld.Lookup(l.sys, name)
	if err != nil || addr == 0 {
		return 0, &SymbolError{Library: l.name, Symbol: name, Cause: err}
	}
	return Sym(addr), nil
}

// retain takes a transient reference, refusing once closing began.
func (l *Library) retain() bool {
	for {
		n := l.refs.Load()
		if n < 1 || l.closed.Load() {
			return false
		}
		if l.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops one reference and wakes a draining unload when only the
// owning reference is left.
func (l *Library) release() {
	if l.refs.Add(-1) == 1 {
		l.mu.Lock()
		l.idle.Broadcast()
		l.mu.Unlock()
	}
}

// awaitIdle blocks until every in-flight resolution released its reference.
func (l *Library) awaitIdle() {
	l.mu.Lock()
	for l.refs.Load() != 1 {
		l.idle.Wait()
	}
	l.mu.Unlock()
}

// discard closes a redundant handle that lost the install race of a set.
func (l *Library) discard() {
	l.closed.Store(true)
	if l.refs.Add(-1) == 0 {
		_ = l.ld.Close(l.sys)
	}
}

// track records a call site resolved through this library so an unload
// can walk and invalidate it later.
func (l *Library) track(s *slot) {
	l.mu.Lock()
	l.bound[s] = struct{}{}
	l.mu.Unlock()
}

// snapshot copies the bound call sites for the unload walk.
func (l *Library) snapshot() []*slot {
	l.mu.Lock()
	out := make([]*slot, 0, len(l.bound))
	for s := range l.bound {
		out = append(out, s)
	}
	l.mu.Unlock()
	return out
}
