/*
Package suffix implements public suffix resolution for iocx.

A Table is parsed once from a Public Suffix List dataset (the bundled copy or a file
named on the command line) and is read-only afterwards. A Resolver combines a Table with
a noise denylist and turns raw host candidates into registrable domains.
*/
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
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// RuleKind distinguishes the three rule forms of the dataset.
type RuleKind uint8

const (
	// Normal rules match their labels exactly ("com", "co.uk").
	Normal RuleKind = iota
	// Wildcard rules ("*.ck") match any single label in the leftmost position.
	Wildcard
	// Exception rules ("!www.ck") carve a name out of a wildcard match.
	Exception
)

func (k RuleKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Wildcard:
		return "wildcard"
	case Exception:
		return "exception"
	}
	return fmt.Sprintf("RuleKind(%d)", uint8(k))
}

// Section records which part of the list a rule came from.
type Section uint8

const (
	ICANN Section = iota
	Private
)

func (s Section) String() string {
	if s == Private {
		return "private"
	}
	return "icann"
}

// Rule is one parsed entry of the dataset.
// Labels holds the rule's labels without the "*." or "!" marker, in
// written order ("co", "uk"), lower-cased and in ASCII (punycode) form.
type Rule struct {
	Labels  []string
	Kind    RuleKind
	Section Section
}

// Name returns the dotted suffix the rule is keyed by.
func (r Rule) Name() string {
	return strings.Join(r.Labels, ".")
}

func (r Rule) String() string {
	switch r.Kind {
	case Wildcard:
		return "*." + r.Name()
	case Exception:
		return "!" + r.Name()
	}
	return r.Name()
}

// parseRule converts the first field of a dataset line into a Rule.
func parseRule(field string, section Section) (Rule, error) {
	rule := Rule{Kind: Normal, Section: section}
	switch {
	case strings.HasPrefix(field, "*."):
		rule.Kind = Wildcard
		field = field[2:]
	case strings.HasPrefix(field, "!"):
		rule.Kind = Exception
		field = field[1:]
	}
	if field == "" {
		return Rule{}, fmt.Errorf("%w: empty rule", ErrMalformedRule)
	}
	if strings.ContainsAny(field, "*!") {
		return Rule{}, fmt.Errorf("%w: %q has a marker outside the leading position", ErrMalformedRule, field)
	}

	name, err := toASCII(field)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %q: %v", ErrMalformedRule, field, err)
	}

	rule.Labels = strings.Split(name, ".")
	for _, l := range rule.Labels {
		if l == "" {
			return Rule{}, fmt.Errorf("%w: %q has an empty label", ErrMalformedRule, field)
		}
	}
	if rule.Kind == Exception && len(rule.Labels) < 2 {
		return Rule{}, fmt.Errorf("%w: exception %q must have at least two labels", ErrMalformedRule, field)
	}
	return rule, nil
}

// toASCII lower-cases s and, for internationalized names, converts it to punycode.
func toASCII(s string) (string, error) {
	if isASCII(s) {
		return lowerASCII(s), nil
	}
	return idna.ToASCII(strings.ToLower(s))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// lowerASCII lower-cases A-Z only, so byte offsets into s stay valid.
func lowerASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'A' && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
