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
	"strings"

	"golang.org/x/net/idna"
)

// DefaultNoiseDenylist lists suffixes that are real TLDs but mostly show up in
// source-like text as file extensions or method names (read.py, file.open).
var DefaultNoiseDenylist = []string{
	"py", "post", "tab", "read", "menu", "save", "place", "call", "run", "select", "open",
}

// Reject explains why Resolve returned no ParsedHost.
type Reject uint8

const (
	Accepted Reject = iota
	NoSuffix
	BareSuffix
	Denylisted
)

func (r Reject) String() string {
	switch r {
	case NoSuffix:
		return "no_suffix"
	case BareSuffix:
		return "bare_suffix"
	case Denylisted:
		return "denylisted"
	}
	return "accepted"
}

// ParsedHost is a registrable domain split into its label and public suffix.
// Both parts keep the casing they had in the input.
type ParsedHost struct {
	Domain string
	Suffix string
}

func (p ParsedHost) String() string {
	return p.Domain + "." + p.Suffix
}

// Resolver turns raw hosts into registrable domains.
// It only reads its Table and denylist, so one Resolver can be shared by all workers.
type Resolver struct {
	table    *Table
	denylist map[string]struct{}
}

// NewResolver builds a Resolver. denylist entries are compared case-insensitively;
// a nil denylist disables noise filtering.
func NewResolver(table *Table, denylist []string) *Resolver {
	deny := make(map[string]struct{}, len(denylist))
	for _, s := range denylist {
		s = strings.Trim(strings.TrimSpace(s), ".")
		if s == "" {
			continue
		}
		deny[strings.ToLower(s)] = struct{}{}
	}
	return &Resolver{table: table, denylist: deny}
}

// Denylisted reports whether suffix is on the noise denylist.
func (r *Resolver) Denylisted(suffix string) bool {
	_, ok := r.denylist[strings.ToLower(suffix)]
	return ok
}

// Resolve returns the registrable domain of host, or ok == false when host has
// no known public suffix, consists only of a suffix, or its suffix is denylisted.
//
// Internationalized hosts are converted to punycode before matching and the
// result is returned in that form.
func (r *Resolver) Resolve(host string) (ParsedHost, bool) {
	p, reason := r.resolve(host)
	return p, reason == Accepted
}

// Explain is Resolve with the rejection reason exposed.
func (r *Resolver) Explain(host string) (ParsedHost, Reject) {
	return r.resolve(host)
}

func (r *Resolver) resolve(host string) (ParsedHost, Reject) {
	if !isASCII(host) {
		ascii, err := idna.ToASCII(host)
		if err != nil {
			return ParsedHost{}, NoSuffix
		}
		host = ascii
	}

	start, ok := r.table.Match(lowerASCII(host))
	if !ok {
		return ParsedHost{}, NoSuffix
	}
	if start == 0 {
		return ParsedHost{}, BareSuffix
	}

	// host[start-1] is the dot in front of the suffix.
	left := host[:start-1]
	domain := left[strings.LastIndexByte(left, '.')+1:]
	if domain == "" {
		return ParsedHost{}, BareSuffix
	}

	suffix := host[start:]
	if r.Denylisted(suffix) {
		return ParsedHost{}, Denylisted
	}
	return ParsedHost{Domain: domain, Suffix: suffix}, Accepted
}
