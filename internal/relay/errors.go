package relay

import "errors"

var (
	// ErrQueueFull is returned by Gate.Submit when the pending queue has
	// reached its configured cap. The rejected line is dropped.
	ErrQueueFull = errors.New("pending input queue is full")

	// ErrInputDropped is returned when a line could not be written to the
	// child's stdin, typically because the child has already exited.
	ErrInputDropped = errors.New("input dropped: child stdin is not writable")

	// ErrNoChild is returned by New when no child handle is supplied.
	ErrNoChild = errors.New("relay requires a child process")
)
