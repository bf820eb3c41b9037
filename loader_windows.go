//go:build windows

package lazylink

import (
	"golang.org/x/sys/windows"
)

type sysLoader struct{}

func (sysLoader) Open(name string) (uintptr, error) {
	if name == "" {
		h, err := windows.GetModuleHandle(nil)
		return uintptr(h), err
	}
	h, err := windows.LoadLibrary(name)
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

func (sysLoader) Lookup(handle uintptr, symbol string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), symbol)
}

func (sysLoader) Close(handle uintptr) error {
	if self, err := windows.GetModuleHandle(nil); err == nil && uintptr(self) == handle {
		return nil
	}
	return windows.FreeLibrary(windows.Handle(handle))
}
