//go:build !unix

// Package mmfile provides platform-specific helpers for mapping working memory.
package mmfile

import "fmt"

// Anon allocates size zeroed bytes on the Go heap when anonymous mappings are
// not available.
func Anon(size int) ([]byte, func() error, error) {
	if size < 0 {
		return nil, nil, fmt.Errorf("mmfile: negative mapping size (%d bytes)", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}

// Mapped reports whether Anon returns memory outside the Go heap on this platform.
func Mapped() bool { return false }
