package lazylink

import (
	"fmt"
	"log"
)

// Unload closes the set's library so that no call site can hand out an
// address into unmapped memory afterwards.
//
// Only sets created through NewUnloadable may unload. The sequence is:
// detach the handle so no new resolution can reach it, wait for every
// in-flight resolution to publish its terminal state, bump the handle
// generation, force every call site resolved through the handle back to
// unresolved, and only then issue the platform close. Call sites that
// already read a raw address and are executing through it concurrently
// with the unload are the caller's obligation to serialize.
//
// A platform close failure is returned to the unload caller only; it
// poisons nothing.
func (s *set) Unload() error {
	if !s.unloadable {
		return ErrNotUnloadable
	}
	s.unloadMu.Lock()
	defer s.unloadMu.Unlock()
	armed := false
	if !s.reopen {
		armed = s.gone.CompareAndSwap(false, true)
	}
	lib := s.lib.Swap(nil)
	if lib == nil {
		// only undo the terminal state this call established; a failed
		// unload must never reset a prior one
		if armed {
			s.gone.Store(false)
		}
		return ErrNotOpen
	}
	lib.closed.Store(true)
	lib.awaitIdle()
	lib.epoch.Add(1)
	for _, sl := range lib.snapshot() {
		sl.invalidate(lib)
	}
	if s.debug {
		log.Printf("unloaded %s", lib.name)
	}
	lib.refs.Add(-1)
	if err := lib.ld.Close(lib.sys); err != nil {
		return fmt.Errorf("platform close %s: %w", lib.name, err)
	}
	return nil
}
