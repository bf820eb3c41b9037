package lazylink

import (
	"errors"
	"sync"
	"sync/atomic"
)

// fakeLoader is a counting Loader double. Candidates are declared up
// front with lib and deny; every open, lookup and close is counted so
// tests can assert the exactly-once properties.
type fakeLoader struct {
	mu       sync.Mutex
	libs     map[string]map[string]uintptr
	fail     map[string]error
	handles  map[uintptr]string
	opened   []string
	next     uintptr
	closeErr error

	opens   atomic.Int64
	lookups atomic.Int64
	closes  atomic.Int64

	// when non-nil every lookup blocks until the gate closes, used to
	// pin a resolution in flight.
	gate chan struct{}
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		libs:    make(map[string]map[string]uintptr),
		fail:    make(map[string]error),
		handles: make(map[uintptr]string),
	}
}

func (f *fakeLoader) lib(name string, syms map[string]uintptr) *fakeLoader {
	f.libs[name] = syms
	return f
}

func (f *fakeLoader) deny(name string, err error) *fakeLoader {
	f.fail[name] = err
	return f
}

func (f *fakeLoader) openedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

func (f *fakeLoader) Open(name string) (uintptr, error) {
	f.opens.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[name]; ok {
		return 0, err
	}
	if _, ok := f.libs[name]; !ok {
		return 0, errors.New("no such library")
	}
	f.next++
	f.handles[f.next] = name
	f.opened = append(f.opened, name)
	return f.next, nil
}

func (f *fakeLoader) Lookup(handle uintptr, symbol string) (uintptr, error) {
	f.lookups.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.handles[handle]
	if !ok {
		return 0, errors.New("stale handle")
	}
	addr, ok := f.libs[name][symbol]
	if !ok {
		return 0, errors.New("undefined symbol")
	}
	return addr, nil
}

func (f *fakeLoader) Close(handle uintptr) error {
	f.closes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handles, handle)
	return f.closeErr
}
