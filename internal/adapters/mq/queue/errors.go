package queue

import "errors"

// Sentinel errors returned by Enqueue.
var (
	ErrFull   = errors.New("warm-up queue is full")
	ErrClosed = errors.New("warm-up queue is closed")
)
