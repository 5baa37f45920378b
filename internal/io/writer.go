package io

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

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the buffer placed in front of the destination.
const DefaultBufferSize = 64 * 1024

// ErrWriterClosed is returned when writing to a closed SyncWriter.
var ErrWriterClosed = errors.New("section writer closed")

// WriterMetrics holds counters for a SyncWriter.
type WriterMetrics struct {
	BytesWritten atomic.Int64
	BlockCount   atomic.Int64
	FlushCount   atomic.Int64
	ErrorCount   atomic.Int64
}

// SyncWriter serialises whole blocks onto a shared destination. A block handed
// to WriteBlock is never interleaved with another caller's block.
type SyncWriter struct {
	mu      sync.Mutex
	buf     *bufio.Writer
	closed  bool
	metrics WriterMetrics
}

// NewSyncWriter wraps w. size <= 0 selects DefaultBufferSize.
func NewSyncWriter(w io.Writer, size int) *SyncWriter {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &SyncWriter{buf: bufio.NewWriterSize(w, size)}
}

// WriteBlock appends block atomically.
func (sw *SyncWriter) WriteBlock(block []byte) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return ErrWriterClosed
	}
	n, err := sw.buf.Write(block)
	sw.metrics.BytesWritten.Add(int64(n))
	if err != nil {
		sw.metrics.ErrorCount.Add(1)
		return fmt.Errorf("failed to write block: %w", err)
	}
	sw.metrics.BlockCount.Add(1)
	return nil
}

// Flush pushes buffered blocks to the destination.
func (sw *SyncWriter) Flush() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return ErrWriterClosed
	}
	return sw.flushLocked()
}

func (sw *SyncWriter) flushLocked() error {
	if sw.buf.Buffered() == 0 {
		return nil
	}
	if err := sw.buf.Flush(); err != nil {
		sw.metrics.ErrorCount.Add(1)
		return fmt.Errorf("failed to flush output: %w", err)
	}
	sw.metrics.FlushCount.Add(1)
	return nil
}

// Close flushes and marks the writer closed. The destination is not closed.
func (sw *SyncWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return nil
	}
	sw.closed = true
	return sw.flushLocked()
}

// Metrics returns the writer's counters.
func (sw *SyncWriter) Metrics() *WriterMetrics {
	return &sw.metrics
}
