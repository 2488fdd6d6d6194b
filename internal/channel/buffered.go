package channel

// Buffered is a channel with a fixed-capacity queue. The tick stream uses
// it so a slow evaluation cycle does not stall the host bridge.
type Buffered[T any] struct {
	ch chan T
}

// NewBuffered creates a buffered channel with the given capacity.
func NewBuffered[T any](size int) *Buffered[T] {
	return &Buffered[T]{ch: make(chan T, size)}
}

// Send enqueues a value, blocking when the buffer is full.
func (b *Buffered[T]) Send(v T) {
	b.ch <- v
}

// Receive returns the receive side of the channel.
func (b *Buffered[T]) Receive() <-chan T {
	return b.ch
}

// Len returns the number of queued values.
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

// Close closes the channel.
func (b *Buffered[T]) Close() {
	close(b.ch)
}
