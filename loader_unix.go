//go:build !windows

package lazylink

import (
	"github.com/ebitengine/purego"
)

type sysLoader struct{}

func (sysLoader) Open(name string) (uintptr, error) {
	if name == "" {
		return uintptr(purego.RTLD_DEFAULT), nil
	}
	return purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func (sysLoader) Lookup(handle uintptr, symbol string) (uintptr, error) {
	return purego.Dlsym(handle, symbol)
}

func (sysLoader) Close(handle uintptr) error {
	if handle == uintptr(purego.RTLD_DEFAULT) {
		return nil
	}
	return purego.Dlclose(handle)
}
