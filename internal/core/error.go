/*
Package core provides the central logic for iocx: the sharded worker scheduler and the
extractor that turns scan targets into per-file indicator results. It defines the data
structures and constants shared by these components.
*/
package core

/*
iocx — fast tool in Go for extracting network indicators from text artifacts
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import "errors"

// customError is an error type that includes a retryable flag.
// Components use it to decide whether an operation should be attempted again.
type customError struct {
	message   string
	retryable bool
}

// NewError creates a new customError with the given message and retryable status.
func NewError(msg string, retryable bool) error {
	return &customError{
		message:   msg,
		retryable: retryable,
	}
}

// Error implements the standard Go `error` interface.
func (e *customError) Error() string {
	return e.message
}

// IsRetryable reports whether the condition is transient.
func (e *customError) IsRetryable() bool {
	return e.retryable
}

// IsRetryable reports whether err, or any error it wraps, is a retryable *customError.
// Unknown error types are treated as permanent.
func IsRetryable(err error) bool {
	var ce *customError
	if errors.As(err, &ce) {
		return ce.IsRetryable()
	}
	return false
}

// Common error values used within the core package.
var (
	// ErrQueueFull indicates that a worker's queue is at capacity. The caller may retry.
	ErrQueueFull = NewError("queue full", true)
	// ErrWorkerShutdown indicates that the scheduler stopped before the item ran.
	ErrWorkerShutdown = NewError("worker shutdown", false)
	// ErrWorkerPanic marks a work item whose callback panicked.
	ErrWorkerPanic = NewError("worker panic", false)
)
