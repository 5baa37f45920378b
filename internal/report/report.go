/*
Package report renders extraction results as the plain-text per-file report.

Each file produces one block:

	=== <path> ===
	[URLS]
	http://evil.com/path
	<blank>
	[DOMAINS]
	...

An error result prints "Error: <message>" in place of the sections.
*/
package report

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
	"bytes"
	"sync/atomic"

	"github.com/x-stp/iocx/internal/core"
	"github.com/x-stp/iocx/internal/ioc"
	iox "github.com/x-stp/iocx/internal/io"
)

// Reporter writes result blocks to a SyncWriter. It implements core.Sink.
type Reporter struct {
	out   *iox.SyncWriter
	kinds []ioc.Kind

	files  atomic.Int64
	errors atomic.Int64
}

// New returns a Reporter printing kinds in canonical order.
func New(out *iox.SyncWriter, kinds []ioc.Kind) *Reporter {
	return &Reporter{out: out, kinds: ioc.Canonical(kinds)}
}

// Render formats res as a single block.
func (r *Reporter) Render(res core.ExtractionResult) []byte {
	var b bytes.Buffer
	b.WriteString("=== ")
	b.WriteString(res.Path)
	b.WriteString(" ===\n")

	if res.Err != nil {
		b.WriteString("Error: ")
		b.WriteString(res.Err.Error())
		b.WriteByte('\n')
		return b.Bytes()
	}

	for _, k := range r.kinds {
		b.WriteString(k.Header())
		b.WriteByte('\n')
		for _, v := range res.Values(k) {
			b.WriteString(v)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Write renders res and writes it with one locked write.
func (r *Reporter) Write(res core.ExtractionResult) error {
	if err := r.out.WriteBlock(r.Render(res)); err != nil {
		return err
	}
	r.files.Add(1)
	if res.Err != nil {
		r.errors.Add(1)
	}
	return nil
}

// Files is the number of blocks written.
func (r *Reporter) Files() int64 { return r.files.Load() }

// Errors counts the error blocks among them.
func (r *Reporter) Errors() int64 { return r.errors.Load() }
