//go:build windows

package mmap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func osMap(f *os.File, size int) ([]byte, func([]byte) error, func([]byte) error, error) {
	// PAGE_READWRITE so writes through the view reach the file.
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READWRITE, 0, 0, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	// The view holds a reference, so the mapping handle can be closed now.
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		return nil, nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)

	unmapFunc := func(b []byte) error {
		return windows.UnmapViewOfFile(addr)
	}
	syncFunc := func(b []byte) error {
		return windows.FlushViewOfFile(addr, uintptr(size))
	}

	return data, unmapFunc, syncFunc, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	// Windows has no direct equivalent to madvise; the page cache still
	// handles sequential and random access well. No-op.
	_ = data
	_ = pattern
	return nil
}
