package lazylink

type (
	//Sym is a resolved symbol address, a simple alias of uintptr.
	//
	//Casting it to a callable of a concrete signature is the caller's
	//responsibility and is only sound when the asserted signature matches
	//the native symbol, see [Make].
	Sym uintptr
	//Loader is the platform capability consumed by this package: open a
	//library by identifier, resolve a symbol inside an opened handle,
	//close a handle. The empty identifier opens the process image itself.
	//
	//Production code uses [System]; tests may inject their own doubles.
	Loader interface {
		Open(name string) (handle uintptr, err error)
		Lookup(handle uintptr, symbol string) (addr uintptr, err error)
		Close(handle uintptr) error
	}
)

// System returns the native loader of the current platform, dlopen based
// on unix and LoadLibrary based on windows.
func System() Loader {
	return sysLoader{}
}
