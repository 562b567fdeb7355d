package buffer

import (
	"errors"
	"fmt"
	"math"
	"unsafe"
)

// MinCapacity is the capacity an empty buffer grows to on its first append.
const MinCapacity = 2

// ErrTooLarge is returned when a growth would not fit in an int.
var ErrTooLarge = errors.New("buffer: too large")

// Allocator hands out raw blocks. Blocks must start at an address aligned
// for the widest Element, which *arena.Arena guarantees.
type Allocator interface {
	Allocate(size int) ([]byte, error)
	Reallocate(block []byte, size int) ([]byte, error)
}

// Element lists the types a Buffer can hold. They must be free of pointers
// since their storage is a raw block the garbage collector does not scan.
type Element interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 |
		~int64 | ~uint64 | ~int | ~uint | ~uintptr | ~float32 | ~float64
}

// Buffer is a stretchy buffer whose storage comes from an Allocator. Every
// growth requests a fresh block and leaves the old one to the allocator, so
// on an arena each doubling abandons the previous copy until the arena is
// reset.
//
// The element after the last one is always the zero value, which makes a
// Buffer[byte] usable as NUL terminated text.
type Buffer[T Element] struct {
	alloc Allocator
	raw   []byte
	data  []T
	count int
}

func New[T Element](alloc Allocator) *Buffer[T] {
	return &Buffer[T]{alloc: alloc}
}

func sizeOf[T Element]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

func view[T Element](raw []byte) []T {
	n := len(raw) / sizeOf[T]()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), n)
}

// grow makes room for increment more elements plus the sentinel.
func (b *Buffer[T]) grow(increment int) error {
	if increment > math.MaxInt-1-b.count {
		return fmt.Errorf("buffer: %d more elements: %w", increment, ErrTooLarge)
	}
	needed := b.count + increment
	if needed < len(b.data) {
		return nil
	}
	capacity := MinCapacity
	if len(b.data) > 0 && len(b.data) <= math.MaxInt/2 {
		capacity = 2 * len(b.data)
	}
	if capacity < needed+1 {
		capacity = needed + 1
	}
	if capacity > math.MaxInt/sizeOf[T]() {
		return fmt.Errorf("buffer: grow to %d elements: %w", capacity, ErrTooLarge)
	}
	raw, err := b.alloc.Reallocate(b.raw, capacity*sizeOf[T]())
	if err != nil {
		return fmt.Errorf("buffer: grow to %d elements: %w", capacity, err)
	}
	b.raw = raw
	b.data = view[T](raw)
	return nil
}

// Append adds v to the end of the buffer. On allocation failure the buffer
// is left as it was.
func (b *Buffer[T]) Append(v T) error {
	if err := b.grow(1); err != nil {
		return err
	}
	b.data[b.count] = v
	b.count++
	b.data[b.count] = 0
	return nil
}

// Extend appends every element of vs with at most one growth.
func (b *Buffer[T]) Extend(vs ...T) error {
	if len(vs) == 0 {
		return nil
	}
	if err := b.grow(len(vs)); err != nil {
		return err
	}
	b.count += copy(b.data[b.count:], vs)
	b.data[b.count] = 0
	return nil
}

func (b *Buffer[T]) Len() int {
	if b == nil {
		return 0
	}
	return b.count
}

func (b *Buffer[T]) Cap() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Reset empties the buffer but keeps its storage for reuse.
func (b *Buffer[T]) Reset() {
	if b == nil {
		return
	}
	b.count = 0
	if len(b.data) > 0 {
		b.data[0] = 0
	}
}

// Slice returns the contents. The result aliases the buffer storage and is
// only valid until the next Append, Extend or Reset.
func (b *Buffer[T]) Slice() []T {
	if b == nil || b.data == nil {
		return nil
	}
	return b.data[:b.count:b.count]
}

// Terminated returns the contents followed by the zero sentinel.
func (b *Buffer[T]) Terminated() []T {
	if b == nil || b.data == nil {
		return nil
	}
	n := b.count + 1
	return b.data[:n:n]
}

// Copy returns the contents in memory owned by the caller.
func (b *Buffer[T]) Copy() []T {
	if b.Len() == 0 {
		return nil
	}
	out := make([]T, b.count)
	copy(out, b.data[:b.count])
	return out
}

func (b *Buffer[T]) String() string {
	return fmt.Sprintf("buffer %d/%d", b.Len(), b.Cap())
}
