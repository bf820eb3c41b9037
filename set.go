package lazylink

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
)

type (
	//Set is an ordered list of candidate library identifiers backing one
	//logical dependency. Candidates are tried in order on first use and
	//the first successful open is memoized; every call site bound through
	//the set shares that one handle. An empty candidate list stands for
	//the process image itself. This interface can not be implemented
	//outside this package.
	//
	//Use Steps:
	//
	//	1. New or NewUnloadable to declare the candidates.
	//	2. [Set.Bind] once per call site, keep the returned [Func].
	//	3. [Func.Fetch] or [Func.Call] on invocation; the first call
	//	   resolves, later calls hit the cache.
	//	4. Optionally [Set.Unload] (unloadable sets only) and [Set.Reset].
	Set interface {
		Bind(name string) *Func           //call-site fixture, one per symbol name
		Resolve(name string) (Sym, error) //Bind then Fetch in one step
		Names() []string                  //candidate identifiers in order
		Opened() bool                     //whether a library is installed, never blocks
		Library() *Library                //installed handle or nil, never blocks
		Reset()                           //re-arm after an unload or a failed open
		Unload() error                    //close the library, see unload.go
		internal()
	}
	set struct {
		names      []string
		ld         Loader
		unloadable bool
		reopen     bool
		debug      bool

		lib    atomic.Pointer[Library]
		failed atomic.Pointer[OpenError]
		gone   atomic.Bool
		// unloadMu serializes unloads only; resolution never takes it.
		unloadMu sync.Mutex

		mu    sync.RWMutex
		binds map[string]*Func
	}
)

// New creates a process-lifetime set over the native loader. The set can
// not be unloaded. An empty names list binds against the process image.
func New(names ...string) Set {
	return NewWith(System(), names)
}

// NewUnloadable creates a set whose library may be closed again through
// [Set.Unload]. With reopen false an unload is terminal until an explicit
// [Set.Reset]; with reopen true the next resolution reopens transparently.
func NewUnloadable(reopen bool, names ...string) Set {
	return NewUnloadableWith(System(), reopen, names)
}

// NewWith is New with a custom loader, an optional debug parameter will
// enable debug logging inside the set.
func NewWith(ld Loader, names []string, debug ...bool) Set {
	x := new(set)
	x.names = append(x.names, names...)
	x.ld = ld
	x.debug = len(debug) > 0 && debug[0]
	x.binds = make(map[string]*Func)
	return x
}

// NewUnloadableWith is NewUnloadable with a custom loader.
func NewUnloadableWith(ld Loader, reopen bool, names []string, debug ...bool) Set {
	x := NewWith(ld, names, debug...).(*set)
	x.unloadable = true
	x.reopen = reopen
	return x
}

func (s *set) internal() {}

func (s *set) Names() []string {
	return append([]string(nil), s.names...)
}

func (s *set) Opened() bool {
	return s.lib.Load() != nil
}

func (s *set) Library() *Library {
	return s.lib.Load()
}

func (s *set) Bind(name string) *Func {
	s.mu.RLock()
	f := s.binds[name]
	s.mu.RUnlock()
	if f != nil {
		return f
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f = s.binds[name]; f == nil {
		f = &Func{set: s, name: name, slot: newSlot()}
		s.binds[name] = f
	}
	return f
}

func (s *set) Resolve(name string) (Sym, error) {
	return s.Bind(name).Fetch()
}

// Reset clears the unloaded state and the memoized open failure so the
// next resolution attempts the candidates again. Poisoned call sites
// keep their error until their own [Func.Reset].
func (s *set) Reset() {
	s.failed.Store(nil)
	s.gone.Store(false)
}

// handle returns the memoized library, opening it on first use. The
// returned library is retained; callers must release it. Concurrent
// first resolutions may both open, the install is a single-winner CAS
// and the loser closes its redundant handle.
func (s *set) handle() (*Library, error) {
	for {
		if s.gone.Load() {
			return nil, ErrUnloaded
		}
		if l := s.lib.Load(); l != nil {
			if l.retain() {
				return l, nil
			}
			continue
		}
		if e := s.failed.Load(); e != nil {
			return nil, e
		}
		l, err := s.open()
		if err != nil {
			oe := err.(*OpenError)
			if s.failed.CompareAndSwap(nil, oe) {
				return nil, oe
			}
			// a concurrent Reset may have cleared the memo already; the
			// local failure is always a valid non-nil value
			if e := s.failed.Load(); e != nil {
				return nil, e
			}
			return nil, oe
		}
		if !s.lib.CompareAndSwap(nil, l) {
			l.discard()
			continue
		}
		if s.gone.Load() {
			// an unload began while we were opening
			if s.lib.CompareAndSwap(l, nil) {
				l.discard()
			}
			return nil, ErrUnloaded
		}
		if l.retain() {
			return l, nil
		}
	}
}

// open tries each candidate in order and returns the first success.
func (s *set) open() (*Library, error) {
	if len(s.names) == 0 {
		h, err := s.ld.Open("")
		if err != nil {
			return nil, &OpenError{Causes: multierror.Append(nil, err)}
		}
		if s.debug {
			log.Printf("opened process image: %x", h)
		}
		return newLibrary(s.ld, "", h), nil
	}
	var causes *multierror.Error
	for _, name := range s.names {
		h, err := s.ld.Open(name)
		if err != nil || h == 0 {
			if s.debug {
				log.Printf("open %s failed: %v", name, err)
			}
			causes = multierror.Append(causes, &candidateError{name: name, cause: err})
			continue
		}
		if s.debug {
			log.Printf("opened %s: %x", name, h)
		}
		return newLibrary(s.ld, name, h), nil
	}
	return nil, &OpenError{Tried: s.Names(), Causes: causes}
}
