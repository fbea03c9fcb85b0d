// Package mmap provides writable memory-mapped file access.
//
// # Overview
//
// A Mapping is a shared, read-write view over a prefix of an open file.
// Writes through the mapped bytes land in the page cache and become part
// of the file; Sync forces them to stable storage. This is the mechanism
// behind random-access reads and in-place writes over a growing array
// file: the owner remaps after every size change instead of copying data
// through read/write syscalls.
//
// # Usage
//
//	m, err := mmap.Map(f, size)
//	if err != nil { ... }
//	defer m.Close()
//
//	copy(m.Bytes()[off:], record)
//	m.Sync()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with PROT_READ|PROT_WRITE and
//     MAP_SHARED; Sync uses msync(2) with MS_SYNC.
//   - Windows: CreateFileMapping/MapViewOfFile with write access; Sync
//     uses FlushViewOfFile.
//
// # Thread Safety
//
// A Mapping is safe for concurrent reads. Writers require external
// coordination, as do remap cycles: callers must ensure no goroutine
// touches Bytes() after Close() returns.
package mmap
