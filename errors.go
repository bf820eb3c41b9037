package lazylink

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrClosed occurs when a symbol lookup reaches a library handle that already started closing.
	ErrClosed = errors.New("library handle closed")
	// ErrUnloaded occurs when resolving through a set whose library was unloaded and not yet reset.
	ErrUnloaded = errors.New("library unloaded")
	// ErrNotUnloadable occurs when unloading a set opened for the process lifetime.
	ErrNotUnloadable = errors.New("library not opened unloadable")
	// ErrNotOpen occurs when unloading a set that holds no opened library.
	ErrNotOpen = errors.New("library not open")
)

// OpenError reports that every candidate of a set failed to open. Tried
// preserves the candidate order; Causes carries one failure per candidate.
type OpenError struct {
	Tried  []string
	Causes *multierror.Error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("no candidate opened of %v: %v", e.Tried, e.Causes)
}
func (e *OpenError) Unwrap() error { return e.Causes }

// candidateError tags one open failure with the candidate that produced it.
type candidateError struct {
	name  string
	cause error
}

func (e *candidateError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: invalid handle", e.name)
	}
	return fmt.Sprintf("%s: %v", e.name, e.cause)
}
func (e *candidateError) Unwrap() error { return e.cause }

// SymbolError reports a symbol missing from a library that did open.
// It never triggers a fallback to the next candidate of the set.
type SymbolError struct {
	Library string
	Symbol  string
	Cause   error
}

func (e *SymbolError) Error() string {
	lib := e.Library
	if lib == "" {
		lib = "<process>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("symbol %q not found in %q", e.Symbol, lib)
	}
	return fmt.Sprintf("symbol %q not found in %q: %v", e.Symbol, lib, e.Cause)
}
func (e *SymbolError) Unwrap() error { return e.Cause }
