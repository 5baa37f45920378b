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

import "regexp"

var (
	// Scheme, host with at least one alphabetic segment, optional port and path.
	// The path stops at whitespace, quotes, angle brackets and parentheses.
	urlPattern = regexp.MustCompile(`(?i)\b(?:https?|ftp)://[a-zA-Z0-9.-]+(?:\.[a-zA-Z]{2,})(?::\d{1,5})?(?:/[^\s"'<>()]*)?`)

	// Octets are not range checked: 999.999.999.999 matches.
	ipv4Pattern = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)

	// Final label must be at least two lower-case letters.
	hostPattern = regexp.MustCompile(`\b[a-zA-Z0-9.-]+\.[a-z]{2,}\b`)
)

// Matcher finds raw candidates of one kind. Implementations are stateless
// and safe for concurrent use.
type Matcher interface {
	Kind() Kind
	Match(text string) []string
}

// RegexMatcher is a Matcher backed by a single compiled pattern.
type RegexMatcher struct {
	kind    Kind
	pattern *regexp.Regexp
}

// NewRegexMatcher wraps pattern as a Matcher for kind.
func NewRegexMatcher(kind Kind, pattern *regexp.Regexp) *RegexMatcher {
	return &RegexMatcher{kind: kind, pattern: pattern}
}

func (m *RegexMatcher) Kind() Kind { return m.kind }

// Match returns every non-overlapping match in text, verbatim and in order of appearance.
func (m *RegexMatcher) Match(text string) []string {
	return m.pattern.FindAllString(text, -1)
}

// URLMatcher matches http, https and ftp URLs.
func URLMatcher() Matcher { return NewRegexMatcher(URL, urlPattern) }

// IPv4Matcher matches dotted quads.
func IPv4Matcher() Matcher { return NewRegexMatcher(IP, ipv4Pattern) }

// HostMatcher matches host candidates; they still need suffix resolution
// before they become Domain indicators.
func HostMatcher() Matcher { return NewRegexMatcher(Domain, hostPattern) }

// MatcherFor returns the matcher that feeds kind.
func MatcherFor(kind Kind) Matcher {
	switch kind {
	case URL:
		return URLMatcher()
	case IP:
		return IPv4Matcher()
	case Domain:
		return HostMatcher()
	}
	return nil
}
