// Package async holds the pending/success/failure result type that screens
// render instead of juggling loading flags.
package async

type Status int

const (
	Pending Status = iota
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "success"
	case Failed:
		return "failure"
	default:
		return "pending"
	}
}

// Result is the outcome of one asynchronous read.
type Result[T any] struct {
	Status Status
	Value  T
	Err    error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Status: Succeeded, Value: v}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Status: Failed, Err: err}
}

// From converts a (value, error) pair into a Result.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

func (r Result[T]) IsPending() bool { return r.Status == Pending }
func (r Result[T]) OK() bool        { return r.Status == Succeeded }
func (r Result[T]) Failed() bool    { return r.Status == Failed }

// Go runs fn on its own goroutine and delivers its Result on the returned
// channel. The channel is buffered so an abandoned result never blocks fn.
func Go[T any](fn func() (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		ch <- From(fn())
	}()
	return ch
}
