package lazylink

import (
	"syscall"

	"github.com/ebitengine/purego"
)

// Func is the permanent fixture of one call site: one symbol name bound
// against one set, backed by exactly one cache slot. Fixtures are created
// through [Set.Bind] and live until process exit.
//
// A Func is safe for concurrent use by any number of goroutines.
type Func struct {
	set  *set
	name string
	slot *slot
}

// Name of the target symbol.
func (f *Func) Name() string { return f.name }

// Fetch resolves the symbol on first use and returns the cached address on
// every later call without touching the platform loader again.
//
// Concurrent first calls agree on one resolution: exactly one open and one
// lookup run, every caller observes the identical result. A failed
// resolution poisons the call site and Fetch keeps returning that same
// error until [Func.Reset].
func (f *Func) Fetch() (Sym, error) {
	return f.slot.fetch(f.set, f.name)
}

// MustFetch is Fetch but panics on a resolution failure.
func (f *Func) MustFetch() Sym {
	v, err := f.Fetch()
	if err != nil {
		panic(err)
	}
	return v
}

// Cached returns the resolved address without ever resolving or blocking.
// It reports false while the call site is unresolved, in flight, poisoned
// or holding a value stale against the current handle generation.
func (f *Func) Cached() (Sym, bool) {
	o := f.slot.out.Load()
	if o == nil || o == claimed || o.err != nil || o.epoch != o.lib.epoch.Load() {
		return 0, false
	}
	return o.addr, true
}

// Reset forces the call site back to unresolved, clearing a sticky poison.
// An in-flight resolution is waited out first, never aborted.
func (f *Func) Reset() {
	f.slot.reset()
}

// Call resolves the symbol and invokes it with the C calling convention.
// Arguments and results are raw machine words; r2 is only meaningful on
// platforms returning a second word. A nonzero error word reported by the
// platform call is surfaced as [syscall.Errno].
func (f *Func) Call(args ...uintptr) (r1, r2 uintptr, err error) {
	v, err := f.Fetch()
	if err != nil {
		return 0, 0, err
	}
	r1, r2, errno := purego.SyscallN(uintptr(v), args...)
	if errno != 0 {
		return r1, r2, syscall.Errno(errno)
	}
	return r1, r2, nil
}

// Make resolves the call site and binds the address as a Go function of
// type T. The asserted signature must match the native symbol; that
// contract cannot be checked here and misuse is undefined behavior.
// T must be a function type purego can marshal or Make panics.
func Make[T any](f *Func) (fn T, err error) {
	v, err := f.Fetch()
	if err != nil {
		return fn, err
	}
	purego.RegisterFunc(&fn, uintptr(v))
	return fn, nil
}
