package suffix

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
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed data/public_suffix_list.dat
var embeddedList []byte

const (
	beginPrivateMarker = "===BEGIN PRIVATE DOMAINS==="
	endPrivateMarker   = "===END PRIVATE DOMAINS==="
)

var (
	// ErrEmptyDataset is returned when a dataset yields no rules at all.
	ErrEmptyDataset = errors.New("suffix dataset contains no rules")
	// ErrMalformedRule is returned for a rule line that cannot be parsed.
	ErrMalformedRule = errors.New("malformed suffix rule")
)

// Options controls how a dataset is turned into a Table.
type Options struct {
	// IncludePrivate makes rules from the PRIVATE DOMAINS section
	// (github.io, blogspot.com, ...) take part in matching.
	IncludePrivate bool
}

// Table is the immutable rule index. It is safe for concurrent use.
//
// Rules are keyed by their dotted name. Wildcard rules are keyed by the
// parent name, so "*.ck" lives under "ck" in the wildcard index.
type Table struct {
	normal    map[string]Section
	wildcard  map[string]Section
	exception map[string]Section
	opts      Options
	rules     int
}

// LoadEmbedded parses the dataset compiled into the binary.
func LoadEmbedded(opts Options) (*Table, error) {
	t, err := Parse(bytes.NewReader(embeddedList), opts)
	if err != nil {
		return nil, fmt.Errorf("bundled suffix list: %w", err)
	}
	return t, nil
}

// LoadFile parses the dataset at path.
func LoadFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open suffix list: %w", err)
	}
	defer f.Close()

	t, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("suffix list %s: %w", path, err)
	}
	return t, nil
}

// Parse reads a Public Suffix List formatted dataset.
// Any malformed rule fails the whole parse; the caller is expected to treat
// that as fatal.
func Parse(r io.Reader, opts Options) (*Table, error) {
	t := &Table{
		normal:    make(map[string]Section, 8192),
		wildcard:  make(map[string]Section, 128),
		exception: make(map[string]Section, 16),
		opts:      opts,
	}

	sc := bufio.NewScanner(r)
	section := ICANN
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "//") {
			switch {
			case strings.Contains(line, beginPrivateMarker):
				section = Private
			case strings.Contains(line, endPrivateMarker):
				section = ICANN
			}
			continue
		}

		// Only the first field is significant.
		field := strings.Fields(line)[0]
		rule, err := parseRule(field, section)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		t.add(rule)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read suffix list: %w", err)
	}
	if t.rules == 0 {
		return nil, ErrEmptyDataset
	}
	return t, nil
}

func (t *Table) add(r Rule) {
	var idx map[string]Section
	switch r.Kind {
	case Wildcard:
		idx = t.wildcard
	case Exception:
		idx = t.exception
	default:
		idx = t.normal
	}
	name := r.Name()
	// A name listed in both sections stays ICANN.
	if prev, ok := idx[name]; ok && prev == ICANN {
		return
	}
	if _, ok := idx[name]; !ok {
		t.rules++
	}
	idx[name] = r.Section
}

// Len reports the number of distinct rules in the table, private rules included.
func (t *Table) Len() int { return t.rules }

// IncludesPrivate reports whether private-section rules take part in matching.
func (t *Table) IncludesPrivate() bool { return t.opts.IncludePrivate }

func (t *Table) has(idx map[string]Section, name string) bool {
	s, ok := idx[name]
	if !ok {
		return false
	}
	return s == ICANN || t.opts.IncludePrivate
}

// Match finds the longest public suffix of host and returns the byte offset
// at which it starts. host must be lower-case ASCII.
//
// Exception rules win over everything else; otherwise the longest matching
// rule wins, and at equal length a wildcard is tried before a plain rule.
// There is no implicit "*" rule, so a host under an unlisted TLD does not match.
func (t *Table) Match(host string) (int, bool) {
	if host == "" {
		return 0, false
	}
	starts := labelStarts(host)

	for i, off := range starts {
		if t.has(t.exception, host[off:]) {
			if i+1 < len(starts) {
				return starts[i+1], true
			}
			return 0, false
		}
	}

	for i, off := range starts {
		if i+1 < len(starts) {
			next := starts[i+1]
			// The wildcard position must hold a non-empty label.
			if next-1 > off && t.has(t.wildcard, host[next:]) {
				return off, true
			}
		}
		if t.has(t.normal, host[off:]) {
			return off, true
		}
	}
	return 0, false
}

// labelStarts returns the byte offset of every label in host,
// most specific label first.
func labelStarts(host string) []int {
	starts := make([]int, 1, 8)
	for i := 0; i < len(host); i++ {
		if host[i] == '.' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
