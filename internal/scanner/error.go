/*
Package scanner enumerates the files to scan and reads them as text.

Failures that concern a single file are returned as *FileError values so callers
can carry them as data in that file's result instead of aborting the scan.
*/
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
	"errors"
	"io/fs"
)

// ErrorKind classifies a per-file failure.
type ErrorKind uint8

const (
	Other ErrorKind = iota
	NotFound
	PermissionDenied
	DecodeFailure
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case PermissionDenied:
		return "permission_denied"
	case DecodeFailure:
		return "decode_failure"
	}
	return "other"
}

// Sentinel errors matched by FileError.Is, one per ErrorKind.
var (
	ErrNotFound         = errors.New("file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrDecodeFailure    = errors.New("content could not be decoded as text")
	ErrOther            = errors.New("file could not be read")
)

// FileError is a failure scoped to one file.
type FileError struct {
	Kind ErrorKind
	Path string
	Err  error
}

// Error returns the underlying message; the path is already part of fs errors.
func (e *FileError) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return e.Err.Error()
}

func (e *FileError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPermissionDenied) and friends match on Kind.
func (e *FileError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k ErrorKind) sentinel() error {
	switch k {
	case NotFound:
		return ErrNotFound
	case PermissionDenied:
		return ErrPermissionDenied
	case DecodeFailure:
		return ErrDecodeFailure
	}
	return ErrOther
}

// newFileError wraps err, deriving the kind from the fs sentinel it carries.
func newFileError(path string, err error) *FileError {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe
	}
	kind := Other
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = NotFound
	case errors.Is(err, fs.ErrPermission):
		kind = PermissionDenied
	}
	return &FileError{Kind: kind, Path: path, Err: err}
}

// AsFileError converts any error into a *FileError for path.
func AsFileError(path string, err error) *FileError {
	if err == nil {
		return nil
	}
	return newFileError(path, err)
}
