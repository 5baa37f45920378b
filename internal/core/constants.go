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

import (
	"time"
)

// Tuning constants for the scheduler and extractor.
const (
	// MaxWorkers is the upper limit on worker goroutines regardless of configuration.
	MaxWorkers = 2048

	// DefaultQueueSize is the capacity of each worker's queue.
	DefaultQueueSize = 256

	// InflightPerWorker bounds how many finished-but-unreported results may be
	// buffered per worker while an earlier file is still being processed.
	InflightPerWorker = 64

	// MaxSubmitRetries is how often a submission is retried when the target
	// worker's queue is full (ErrQueueFull).
	MaxSubmitRetries = 50

	// Retry delays for queue-full backoff.
	RetryBaseDelay         = 2 * time.Millisecond
	RetryMaxDelay          = 250 * time.Millisecond
	RetryBackoffMultiplier = 1.5

	// DefaultDecodeTolerance accepts any amount of undecodable content.
	DefaultDecodeTolerance = 1.0
)
