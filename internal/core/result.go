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
	"github.com/x-stp/iocx/internal/ioc"
	"github.com/x-stp/iocx/internal/scanner"
)

// ExtractionResult is the outcome for one file: indicators or an error, never both.
type ExtractionResult struct {
	Path       string
	Indicators map[ioc.Kind][]string
	Err        *scanner.FileError
}

// OK reports whether the file was scanned successfully.
func (r ExtractionResult) OK() bool { return r.Err == nil }

// Values returns the sorted indicators of kind k.
func (r ExtractionResult) Values(k ioc.Kind) []string { return r.Indicators[k] }

// Sink receives results in scan order. Write is called from a single goroutine.
type Sink interface {
	Write(ExtractionResult) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ExtractionResult) error

// Write calls f(res).
func (f SinkFunc) Write(res ExtractionResult) error { return f(res) }
