package channel

// Unbuffered is a rendezvous channel: Send blocks until the consumer takes
// the value, which surfaces backpressure problems immediately in debug builds.
type Unbuffered[T any] struct {
	ch chan T
}

// NewUnbuffered creates an unbuffered channel.
func NewUnbuffered[T any]() *Unbuffered[T] {
	return &Unbuffered[T]{ch: make(chan T)}
}

// Send hands a value to the consumer, blocking until it is received.
func (u *Unbuffered[T]) Send(v T) {
	u.ch <- v
}

// Receive returns the receive side of the channel.
func (u *Unbuffered[T]) Receive() <-chan T {
	return u.ch
}

// Len always returns 0; an unbuffered channel never queues.
func (u *Unbuffered[T]) Len() int {
	return 0
}

// Close closes the channel.
func (u *Unbuffered[T]) Close() {
	close(u.ch)
}
