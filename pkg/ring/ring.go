// Package ring implements a fixed-size, lock-free byte ring shared by exactly
// one producer and one consumer.
//
// The producer may run in interrupt context and the consumer in the main loop
// (or the other way around). Each side only ever stores its own index: Put
// advances head, Get advances tail. Indices are free-running uint32 counters,
// so Used is a plain subtraction that stays correct across wraparound.
package ring

import "sync/atomic"

// Size is the capacity of a Buffer in bytes. It must be a power of two.
const Size = 256

const mask = Size - 1

// Buffer is a single-producer/single-consumer byte ring.
// The zero value is an empty buffer ready for use.
type Buffer struct {
	data [Size]byte
	head atomic.Uint32 // written by the producer only
	tail atomic.Uint32 // written by the consumer only
}

// Used returns the number of bytes waiting to be read.
func (b *Buffer) Used() int {
	return int(b.head.Load() - b.tail.Load())
}

// Free returns the number of bytes that can be written without loss.
func (b *Buffer) Free() int {
	return Size - b.Used()
}

// Put stores a byte. It returns false if the buffer is full.
// Producer side.
func (b *Buffer) Put(c byte) bool {
	head := b.head.Load()
	if head-b.tail.Load() == Size {
		return false
	}
	b.data[head&mask] = c
	b.head.Store(head + 1)
	return true
}

// Get removes and returns the oldest byte. It returns false if the buffer is
// empty. Consumer side.
func (b *Buffer) Get() (byte, bool) {
	tail := b.tail.Load()
	if b.head.Load() == tail {
		return 0, false
	}
	c := b.data[tail&mask]
	b.tail.Store(tail + 1)
	return c, true
}

// Peek returns the oldest byte without removing it. Consumer side.
func (b *Buffer) Peek() (byte, bool) {
	tail := b.tail.Load()
	if b.head.Load() == tail {
		return 0, false
	}
	return b.data[tail&mask], true
}

// Write stores as many bytes of p as fit and returns the count stored.
// Producer side.
func (b *Buffer) Write(p []byte) int {
	for i, c := range p {
		if !b.Put(c) {
			return i
		}
	}
	return len(p)
}

// Read moves up to len(p) bytes into p and returns the count moved.
// Consumer side.
func (b *Buffer) Read(p []byte) int {
	for i := range p {
		c, ok := b.Get()
		if !ok {
			return i
		}
		p[i] = c
	}
	return len(p)
}

// Clear discards all buffered bytes. Consumer side; the producer must not be
// running concurrently.
func (b *Buffer) Clear() {
	b.tail.Store(b.head.Load())
}
