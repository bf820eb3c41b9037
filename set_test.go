package lazylink

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackOrder(t *testing.T) {
	ld := newFakeLoader().
		deny("libA.so", errors.New("not found")).
		lib("libB.so", map[string]uintptr{"foo": 0x1000})
	s := NewWith(ld, []string{"libA.so", "libB.so"})
	v, err := s.Resolve("foo")
	require.NoError(t, err)
	assert.Equal(t, Sym(0x1000), v)
	assert.Equal(t, []string{"libB.so"}, ld.openedNames())
	assert.Equal(t, "libB.so", s.Library().Name())

	v, err = s.Library().Symbol("foo")
	require.NoError(t, err)
	assert.Equal(t, Sym(0x1000), v)
}

func TestAllCandidatesFailed(t *testing.T) {
	ld := newFakeLoader().
		deny("libA.so", errors.New("bad elf")).
		deny("libB.so", errors.New("not found"))
	s := NewWith(ld, []string{"libA.so", "libB.so"})
	_, err := s.Resolve("foo")
	require.Error(t, err)
	var oe *OpenError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, []string{"libA.so", "libB.so"}, oe.Tried)
	require.NotNil(t, oe.Causes)
	assert.Len(t, oe.Causes.Errors, 2)
	assert.Contains(t, oe.Causes.Errors[0].Error(), "libA.so")
	assert.Contains(t, oe.Causes.Errors[1].Error(), "libB.so")

	// the failed state is memoized, no re-attempt storm
	before := ld.opens.Load()
	_, err2 := s.Resolve("bar")
	require.ErrorAs(t, err2, &oe)
	assert.Equal(t, before, ld.opens.Load())
}

func TestAllCandidatesFailedReset(t *testing.T) {
	ld := newFakeLoader().
		deny("libA.so", errors.New("not found"))
	s := NewWith(ld, []string{"libA.so"})
	_, err := s.Resolve("foo")
	require.Error(t, err)

	// make the candidate appear after the fact
	ld.mu.Lock()
	delete(ld.fail, "libA.so")
	ld.libs["libA.so"] = map[string]uintptr{"foo": 0x2000}
	ld.mu.Unlock()

	// still sticky until the explicit reset, for the set and the slot
	_, err = s.Resolve("foo")
	require.Error(t, err)
	s.Reset()
	s.Bind("foo").Reset()
	v, err := s.Resolve("foo")
	require.NoError(t, err)
	assert.Equal(t, Sym(0x2000), v)
}

func TestOpenFailureUnderConcurrentReset(t *testing.T) {
	ld := newFakeLoader().deny("libA.so", errors.New("not found"))
	s := NewWith(ld, []string{"libA.so"})
	stop := make(chan struct{})
	var w sync.WaitGroup
	w.Add(1)
	go func() {
		defer w.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.Reset()
			}
		}
	}()
	for i := 0; i < 500; i++ {
		_, err := s.Resolve(fmt.Sprintf("sym%d", i))
		require.Error(t, err)
		// the failure must always be a usable value, never a typed nil
		require.NotEmpty(t, err.Error())
	}
	close(stop)
	w.Wait()
}

func TestSymbolMissingDoesNotCascade(t *testing.T) {
	ld := newFakeLoader().
		lib("libA.so", map[string]uintptr{}).
		lib("libB.so", map[string]uintptr{"foo": 0x1000})
	s := NewWith(ld, []string{"libA.so", "libB.so"})
	_, err := s.Resolve("foo")
	var se *SymbolError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "libA.so", se.Library)
	assert.Equal(t, "foo", se.Symbol)
	assert.Equal(t, []string{"libA.so"}, ld.openedNames())
	assert.EqualValues(t, 1, ld.opens.Load())
}

func TestProcessImage(t *testing.T) {
	ld := newFakeLoader().
		lib("", map[string]uintptr{"getpid": 0x42})
	s := NewWith(ld, nil)
	v, err := s.Resolve("getpid")
	require.NoError(t, err)
	assert.Equal(t, Sym(0x42), v)
	assert.Equal(t, "", s.Library().Name())
}

func TestBindIdentity(t *testing.T) {
	ld := newFakeLoader().lib("libA.so", map[string]uintptr{"foo": 1})
	s := NewWith(ld, []string{"libA.so"})
	assert.Same(t, s.Bind("foo"), s.Bind("foo"))
	assert.NotSame(t, s.Bind("foo"), s.Bind("bar"))
}

func TestInstallSingleWinnerNoLeak(t *testing.T) {
	ld := newFakeLoader().lib("libA.so", map[string]uintptr{"foo": 1, "bar": 2})
	s := NewWith(ld, []string{"libA.so"})
	const n = 16
	var w sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		name := "foo"
		if i%2 == 1 {
			name = "bar"
		}
		f := s.Bind(name)
		w.Add(1)
		go func() {
			defer w.Done()
			<-start
			_, err := f.Fetch()
			assert.NoError(t, err)
		}()
	}
	close(start)
	w.Wait()
	// racing first resolutions may open redundantly, but exactly one
	// handle survives and the rest were closed back
	require.NotNil(t, s.Library())
	assert.EqualValues(t, ld.opens.Load()-1, ld.closes.Load())
	assert.False(t, s.Library().Closed())
}

func TestNamesIsACopy(t *testing.T) {
	ld := newFakeLoader().lib("libA.so", map[string]uintptr{"foo": 1})
	s := NewWith(ld, []string{"libA.so"})
	s.Names()[0] = "mutated"
	assert.Equal(t, []string{"libA.so"}, s.Names())
}
