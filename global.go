package lazylink

import (
	"errors"
	"sync"

	"github.com/ZenLiuCN/fn"
	"github.com/hashicorp/go-multierror"
)

var (
	sharedMu sync.RWMutex
	sets     = make(map[string]Set)
)

var (
	// ErrAlreadyDefined occurs when defining a shared set under a taken name.
	ErrAlreadyDefined = errors.New("already defined shared set")
)

// Define registers a process-wide named set so hand written call sites can
// share one logical dependency without plumbing the Set around.
func Define(name string, candidates ...string) (Set, error) {
	return define(name, New(candidates...))
}

// DefineUnloadable is Define for a set that may be unloaded again.
func DefineUnloadable(name string, reopen bool, candidates ...string) (Set, error) {
	return define(name, NewUnloadable(reopen, candidates...))
}

func define(name string, s Set) (Set, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if _, ok := sets[name]; ok {
		return nil, ErrAlreadyDefined
	}
	sets[name] = s
	return s, nil
}

// Shared fetches a set registered by Define.
func Shared(name string) (Set, bool) {
	sharedMu.RLock()
	defer sharedMu.RUnlock()
	s, ok := sets[name]
	return s, ok
}

// SharedNames dumps the registered set names.
func SharedNames() []string {
	sharedMu.RLock()
	defer sharedMu.RUnlock()
	return fn.MapKeys(sets)
}

// CloseShared unloads every unloadable shared set and drops all
// definitions. This should only be used when no call site is live.
func CloseShared() error {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	var errs *multierror.Error
	for k, s := range sets {
		if err := s.Unload(); err != nil && err != ErrNotUnloadable && err != ErrNotOpen {
			errs = multierror.Append(errs, err)
		}
		delete(sets, k)
	}
	return errs.ErrorOrNil()
}
