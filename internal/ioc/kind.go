/*
Package ioc defines the indicator kinds iocx extracts and the pattern matchers that
find raw candidates for each kind in text.
*/
package ioc

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
	"sort"
	"strings"
)

// Kind is an indicator type.
type Kind string

const (
	URL    Kind = "urls"
	Domain Kind = "domains"
	IP     Kind = "ips"
)

// AllKinds lists every kind in canonical report order.
var AllKinds = []Kind{URL, Domain, IP}

// Header is the report section header for the kind, e.g. "[URLS]".
func (k Kind) Header() string {
	return "[" + strings.ToUpper(string(k)) + "]"
}

// Canonical returns kinds deduplicated and in canonical order.
func Canonical(kinds []Kind) []Kind {
	want := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	out := make([]Kind, 0, len(want))
	for _, k := range AllKinds {
		if want[k] {
			out = append(out, k)
		}
	}
	return out
}

// Set is a per-file, per-kind set of indicator values.
type Set map[string]struct{}

// Add inserts v.
func (s Set) Add(v string) { s[v] = struct{}{} }

// Sorted returns the members in byte order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
