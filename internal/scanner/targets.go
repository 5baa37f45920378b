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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Target is one entry of the scan plan. Err is set when the entry could not
// be opened at all (a root that vanished or is not readable).
type Target struct {
	Path string
	Err  *FileError
}

// Targets returns the files to scan under root.
//
// A regular file (or a symlink to one) yields itself. A directory is walked
// recursively in lexical order and every regular file below it is returned;
// directories, devices, sockets and pipes are skipped. Symlinked directories
// are not followed. Subdirectories that cannot be listed are skipped with a
// warning.
//
// A root that does not exist or cannot be read yields a single errored
// Target so the failure is reported like any other per-file error.
func Targets(root string, logger zerolog.Logger) ([]Target, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return []Target{{Path: root, Err: newFileError(root, err)}}, nil
		}
		return nil, fmt.Errorf("scan target %s: %w", root, err)
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("scan target %s: not a regular file or directory", root)
		}
		return []Target{{Path: root}}, nil
	}

	var targets []Target
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				targets = append(targets, Target{Path: root, Err: newFileError(root, walkErr)})
				return fs.SkipDir
			}
			logger.Warn().Err(walkErr).Str("path", path).Msg("Skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if isRegularFile(path, d) {
			targets = append(targets, Target{Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return targets, nil
}

func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
