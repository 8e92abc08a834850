package filestore

import (
	"context"
	"errors"
	"syscall"
	"time"
)

// ErrBusy reports that another process holds the file lock.
var ErrBusy = errors.New("file store busy")

// Policy bounds how often a busy operation is retried.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPolicy retries five times, 100ms apart.
var DefaultPolicy = Policy{Attempts: 5, Delay: 100 * time.Millisecond}

// Retryable reports whether err is a transient "resource busy" condition.
func Retryable(err error) bool {
	return errors.Is(err, ErrBusy) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EAGAIN)
}

// Retry runs op until it succeeds, fails with a non-retryable error, or the
// policy is exhausted. Attempts counts retries after the first call.
func Retry(ctx context.Context, p Policy, op func() error) error {
	err := op()
	for i := 0; i < p.Attempts && err != nil && Retryable(err); i++ {
		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		err = op()
	}
	return err
}
