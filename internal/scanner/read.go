package scanner

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
	"os"
	"strings"
	"unicode/utf8"
)

// replacementChar is substituted for every invalid UTF-8 sequence.
const replacementChar = "\uFFFD"

// ReadText reads path as UTF-8 text, substituting U+FFFD for invalid sequences.
//
// tolerance is the largest accepted share of invalid bytes (0..1). Content above
// it fails with a DecodeFailure FileError; 1 accepts anything.
func ReadText(path string, tolerance float64) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", newFileError(path, err)
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	if tolerance < 1 && len(raw) > 0 {
		bad := invalidBytes(raw)
		if ratio := float64(bad) / float64(len(raw)); ratio > tolerance {
			return "", &FileError{
				Kind: DecodeFailure,
				Path: path,
				Err: fmt.Errorf("%s: %.1f%% of bytes are not valid UTF-8 (tolerance %.1f%%)",
					path, ratio*100, tolerance*100),
			}
		}
	}
	return strings.ToValidUTF8(string(raw), replacementChar), nil
}

// invalidBytes counts the bytes that do not belong to a valid UTF-8 sequence.
func invalidBytes(b []byte) int {
	bad := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			bad++
		}
		b = b[size:]
	}
	return bad
}
