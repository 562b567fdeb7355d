package arena

import (
	"errors"
	"fmt"
	"math"
	"unsafe"
)

// Alignment every block is padded to, so typed views over a block
// (see internal/buffer) never straddle a word boundary.
const Alignment = 8

var ErrOutOfMemory = errors.New("arena: out of memory")

// OutOfMemoryError reports an allocation the arena could not serve.
type OutOfMemoryError struct {
	Requested int
	Used      int
	Capacity  int
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf(
		"arena: out of memory: requested %d bytes with %d of %d used",
		e.Requested, e.Used, e.Capacity,
	)
}

func (e *OutOfMemoryError) Is(target error) bool {
	return target == ErrOutOfMemory
}

type Option func(a *Arena)

// OnOutOfMemory registers a hook called with the number of bytes the failed
// allocation would have needed in total and the arena capacity.
func OnOutOfMemory(f func(needed, capacity int)) Option {
	return func(a *Arena) {
		a.oom = f
	}
}

// Arena is a bump allocator over a caller supplied region. Blocks are carved
// off the front of the region in order and are never freed individually; the
// whole region is reclaimed with Reset or by dropping the Arena.
//
// An Arena is not safe for concurrent use.
type Arena struct {
	region []byte
	cursor int
	peak   int
	oom    func(needed, capacity int)
}

func New(region []byte, opts ...Option) *Arena {
	a := &Arena{}
	for _, opt := range opts {
		opt(a)
	}
	a.Init(region)
	return a
}

// Init binds the arena to region and forgets every previous allocation.
func (a *Arena) Init(region []byte) {
	a.region = region
	a.cursor = 0
	a.peak = 0
}

// padding is the number of bytes needed to move the cursor to an address
// that is a multiple of Alignment. Regions are not required to start aligned.
func (a *Arena) padding() int {
	if len(a.region) == 0 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(&a.region[0])) + uintptr(a.cursor)
	return int((Alignment - addr%Alignment) % Alignment)
}

// Allocate returns a zeroed block of exactly size bytes starting at an
// aligned address. The block's capacity is clamped to its length so appending
// to it never writes into a neighbour.
func (a *Arena) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("arena: negative allocation size %d", size)
	}
	pad := a.padding()
	available := len(a.region) - a.cursor - pad
	// size is checked before rounding up so the rounding cannot overflow
	if size > available {
		return nil, a.outOfMemory(size, pad)
	}
	extra := (Alignment - size%Alignment) % Alignment
	if extra > available-size {
		return nil, a.outOfMemory(size, pad)
	}
	start := a.cursor + pad
	a.cursor = start + size + extra
	if a.cursor > a.peak {
		a.peak = a.cursor
	}
	block := a.region[start : start+size : start+size]
	for i := range block {
		block[i] = 0
	}
	return block, nil
}

func (a *Arena) outOfMemory(size, pad int) error {
	if a.oom != nil {
		needed := math.MaxInt
		extra := (Alignment - size%Alignment) % Alignment
		if size <= math.MaxInt-a.cursor-pad-extra {
			needed = a.cursor + pad + size + extra
		}
		a.oom(needed, len(a.region))
	}
	return &OutOfMemoryError{
		Requested: size,
		Used:      a.cursor,
		Capacity:  len(a.region),
	}
}

// Reallocate always hands out a fresh block and copies min(len(block), size)
// bytes into it. The space behind block stays used until the next Reset.
// A nil block behaves like Allocate.
func (a *Arena) Reallocate(block []byte, size int) ([]byte, error) {
	n, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}
	copy(n, block)
	return n, nil
}

// Reset reclaims every block at once. Blocks handed out before the call must
// not be used afterwards.
func (a *Arena) Reset() {
	a.cursor = 0
}

// Len returns the number of bytes in use, alignment padding included.
func (a *Arena) Len() int { return a.cursor }

func (a *Arena) Cap() int { return len(a.region) }

func (a *Arena) Available() int { return len(a.region) - a.cursor }

// Peak is the high-water mark of Len. It survives Reset but not Init.
func (a *Arena) Peak() int { return a.peak }

func (a *Arena) String() string {
	return fmt.Sprintf("arena %d/%d bytes", a.cursor, len(a.region))
}
