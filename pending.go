package varia

// Pending is the eventual result of an async operation.
type Pending[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// spawn runs fn on its own goroutine. Store I/O inside fn goes through the
// runner's pool; the goroutine itself only waits.
func spawn[T any](fn func() (T, error)) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.val, p.err = fn()
	}()
	return p
}

// Done is closed when the result is available.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Wait blocks until the operation finishes and returns its result.
func (p *Pending[T]) Wait() (T, error) {
	<-p.done
	return p.val, p.err
}
