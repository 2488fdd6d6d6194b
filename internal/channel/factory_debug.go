//go:build debug

package channel

// New returns an unbuffered channel in debug builds; size is ignored so
// every Send blocks until the consumer keeps up.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
