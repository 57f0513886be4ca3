package engine

import (
	"context"
	"sync"
)

// Result is the completion of an asynchronous engine operation. It completes
// exactly once; the error it carries never changes afterwards.
type Result struct {
	done chan struct{}
	once sync.Once
	err  error // written before done is closed
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

// Go runs fn in a new goroutine and returns a Result completed with its
// error.
func Go(fn func() error) *Result {
	r := newResult()
	go func() {
		r.complete(fn())
	}()
	return r
}

// Completed returns a Result that has already completed with err.
func Completed(err error) *Result {
	r := newResult()
	r.complete(err)
	return r
}

func (r *Result) complete(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Done returns a channel that is closed when the operation completes.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the operation completes and returns its error.
func (r *Result) Wait() error {
	<-r.done
	return r.err
}

// WaitContext is Wait bounded by ctx. It returns ctx.Err() if ctx is done
// first; the operation keeps running.
func (r *Result) WaitContext(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the operation error, or nil while it is still running.
func (r *Result) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}
