/*
Package lazylink lazily binds symbols of native shared libraries.

# License

Source codes are under Apache License Version 2.0.

# Underwater

 1. A call site is a [Func] fixture holding one atomic cache slot. The first
    call resolves through the platform loader, every later call is two atomic
    loads with no dispatch overhead and no allocation.
 2. Resolution is exactly-once: concurrent first callers race one CAS claim,
    the winner opens and looks up, losers block until the winner publishes,
    and all of them observe the identical terminal result.
 3. A failed resolution poisons its call site; the same error is returned on
    every later call until an explicit [Func.Reset]. Poisoning never retries
    silently.
 4. Unloading is fearless: [Set.Unload] invalidates every call site resolved
    through the handle before the platform close is issued, so no new lookup
    can return an address into unmapped memory. A call already executing
    through a previously fetched raw address is the caller's to serialize.

# Notes

 1. Sets declare ordered candidate identifiers; the first that opens wins and
    is memoized. A candidate that opens but lacks a symbol does not fall back
    to the next candidate.
 2. An empty candidate list binds against the process image itself.
 3. Casting a resolved [Sym] to a callable requires the caller to assert the
    correct signature, see [Make] and [Func.Call].
 4. Unload is terminal for the set by default, until [Set.Reset]; construct
    with reopen to revive transparently on the next call.

# Probe tool

The dlprobe cli opens candidates, resolves symbols and invokes no-argument
probes through the same engine. Install by:

	go install github.com/ZenLiuCN/lazylink/dlprobe@latest

# Samples

See tests.
*/
package lazylink
