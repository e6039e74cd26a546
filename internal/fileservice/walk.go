/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package fileservice

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// fsFS adapts platform.FileSystem to fs.FS (and fs.ReadDirFS) rooted at
// a directory, so the standard library's fs.WalkDir can traverse it
// without codebuddy re-implementing directory recursion. Names are
// slash-separated and relative to root, per the fs.FS contract.
type fsFS struct {
	s    *Service
	root string
}

func (a fsFS) join(name string) string {
	if name == "." {
		return a.root
	}
	return filepath.Join(a.root, filepath.FromSlash(name))
}

func (a fsFS) Open(name string) (fs.File, error)          { return a.s.fs.Open(a.join(name)) }
func (a fsFS) ReadDir(name string) ([]fs.DirEntry, error) { return a.s.fs.ReadDir(a.join(name)) }

var defaultSkipDirs = map[string]bool{
	".git": true, "node_modules": true, "target": true, "dist": true,
	".venv": true, "__pycache__": true, "vendor": true,
}

// WalkWorkspace enumerates every file under root whose extension is in
// extensions (with leading dot, e.g. ".go"), honoring a root-level
// .gitignore if present and skipping the usual language build-output
// directories. Used by the refactor planner's dependency-graph
// construction and by consolidation's workspace-wide import rewrite.
func (s *Service) WalkWorkspace(root string, extensions []string) ([]string, error) {
	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[strings.ToLower(e)] = true
	}

	var ignore *gitignore.GitIgnore
	if data, err := s.fs.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		ignore = gitignore.CompileIgnoreLines(strings.Split(string(data), "\n")...)
	}

	var out []string
	err := fs.WalkDir(fsFS{s, root}, ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries rather than aborting the whole walk
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if defaultSkipDirs[d.Name()] {
				return fs.SkipDir
			}
			if ignore != nil && ignore.MatchesPath(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}
		if !extSet[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}
		if root == "." || root == "" {
			out = append(out, filepath.FromSlash(rel))
		} else {
			out = append(out, filepath.Join(root, filepath.FromSlash(rel)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MatchesAny reports whether path matches any of the doublestar glob
// patterns, used by analysis scope include/exclude filtering.
func MatchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
