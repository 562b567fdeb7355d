//go:build unix

package arena

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Adapted from https://github.com/johnsiilver/golib

// Region is arena backing memory that lives outside the Go heap, either
// mapped from a file or anonymous.
type Region struct {
	mu     sync.Mutex
	data   []byte
	f      *os.File
	locked bool
}

type MapOption func(r *mapConfig)

type mapConfig struct {
	prot  int
	flags int
}

// Private maps the file copy-on-write so arena contents never reach disk.
func Private() MapOption {
	return func(c *mapConfig) {
		c.flags = unix.MAP_PRIVATE
	}
}

// MapRegion maps size bytes of the file at path, creating or growing the file
// as needed. The mapping is shared unless Private is passed.
func MapRegion(path string, size int, opts ...MapOption) (*Region, error) {
	if size <= 0 {
		return nil, errors.New("cannot mmap 0 length region")
	}
	c := &mapConfig{
		prot:  unix.PROT_READ | unix.PROT_WRITE,
		flags: unix.MAP_SHARED,
	}
	for _, opt := range opts {
		opt(c)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	s, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if s.Size() < int64(size) {
		if err = f.Truncate(int64(size)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("cannot grow %s: %w", path, err)
		}
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, c.prot, c.flags)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("problem with mmap system call: %w", err)
	}
	return &Region{data: data, f: f}, nil
}

// MapAnonymous maps size bytes of zeroed memory that is not backed by a file.
func MapAnonymous(size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.New("cannot mmap 0 length region")
	}
	data, err := unix.Mmap(
		-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		return nil, fmt.Errorf("problem with mmap system call: %w", err)
	}
	return &Region{data: data}, nil
}

func (r *Region) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

func (r *Region) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// Pin keeps the region resident in RAM.
func (r *Region) Pin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locked {
		return nil
	}
	if err := unix.Mlock(r.data); err != nil {
		return fmt.Errorf("cannot lock memory: %w", err)
	}
	r.locked = true
	return nil
}

func (r *Region) Unpin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.locked {
		return nil
	}
	r.locked = false
	return unix.Munlock(r.data)
}

// Close unmaps the region. Any Arena bound to it must not be used again.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	r.locked = false
	if r.f != nil {
		if cerr := r.f.Close(); err == nil {
			err = cerr
		}
		r.f = nil
	}
	return err
}
