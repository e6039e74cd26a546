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

// Package fileservice is the file service: reads, atomic single-file
// writes, and the snapshot/rollback apply_edit_plan pipeline that applies an
// EditPlan's typed operations across many files with an all-or-nothing
// outcome.
package fileservice

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"codebuddy.dev/codebuddy/internal/logging"
	"codebuddy.dev/codebuddy/internal/platform"
	"codebuddy.dev/codebuddy/internal/proto"
)

// Consolidator runs the directory-consolidation post-processing pipeline
// for a plan whose metadata carries ConsolidationMetadata. The file
// service depends only on this interface, not on internal/consolidation
// directly, so consolidation can depend on fileservice for its own file
// operations without an import cycle. All of the pipeline's mutations must
// go through txn so a later failure rolls them back with the rest of the
// plan.
type Consolidator interface {
	Consolidate(ctx context.Context, plan *proto.EditPlan, txn *Txn) error
}

// ChangeNotifier is the slice of *lspmanager.Manager the file service needs:
// tell every server with path open about new content, so each open
// document's version matches what was last sent even for a write made
// outside the LSP's own didChange flow.
type ChangeNotifier interface {
	NotifyFileChanged(path, newContent string) error
}

// Service is the File Service. It is safe for concurrent use; callers that
// touch overlapping file sets serialize via per-path locks held only for
// the duration of one atomic operation, not across a whole handler.
type Service struct {
	fs     platform.FileSystem
	notify ChangeNotifier // optional
	consol Consolidator   // optional

	validator       PostEditValidator // optional
	validatorPolicy string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	logger *logging.Logger
}

// New constructs a Service over fs. notify and consol may be nil; a nil
// notify skips LSP didChange synchronization, a nil consol causes
// consolidation-tagged plans to fail with ConsolidationFailed.
func New(fs platform.FileSystem, notify ChangeNotifier, consol Consolidator) *Service {
	return &Service{
		fs:     fs,
		notify: notify,
		consol: consol,
		locks:  make(map[string]*sync.Mutex),
		logger: logging.Global().WithCorrelation("fileservice"),
	}
}

// SetConsolidator wires the consolidation pipeline after construction,
// avoiding a constructor cycle between fileservice and consolidation at
// application-bootstrap time.
func (s *Service) SetConsolidator(c Consolidator) { s.consol = c }

func (s *Service) pathLock(path string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// lockAll locks every path in paths, in sorted order, to avoid deadlocking
// against a concurrent operation that touches an overlapping file set in a
// different order.
func (s *Service) lockAll(paths []string) func() {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	seen := make(map[string]bool, len(sorted))
	var locks []*sync.Mutex
	for _, p := range sorted {
		if seen[p] {
			continue
		}
		seen[p] = true
		l := s.pathLock(p)
		l.Lock()
		locks = append(locks, l)
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

// Read returns path's content.
func (s *Service) Read(path string) (string, error) {
	content, err := s.fs.ReadFile(path)
	if err != nil {
		return "", proto.ErrorIo(path, err)
	}
	return string(content), nil
}

// Write atomically replaces path's content (write-temp-then-rename) and
// notifies any open LSP buffer of the new content.
func (s *Service) Write(path, content string) error {
	unlock := s.lockAll([]string{path})
	defer unlock()
	return s.writeLocked(path, content)
}

func (s *Service) writeLocked(path, content string) error {
	if err := s.atomicWrite(path, content); err != nil {
		return proto.ErrorIo(path, err)
	}
	if s.notify != nil {
		if err := s.notify.NotifyFileChanged(path, content); err != nil {
			s.logger.Warning("notify change for %s: %v", path, err)
		}
	}
	return nil
}

// Move renames oldPath to newPath, locking both paths for the duration
// and creating newPath's parent directory if needed.
func (s *Service) Move(oldPath, newPath string) error {
	unlock := s.lockAll([]string{oldPath, newPath})
	defer unlock()
	if dir := filepath.Dir(newPath); dir != "." && dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return proto.ErrorIo(newPath, err)
		}
	}
	if err := s.fs.Rename(oldPath, newPath); err != nil {
		return proto.ErrorIo(oldPath, err)
	}
	return nil
}

// Delete removes path, locking it for the duration.
func (s *Service) Delete(path string) error {
	unlock := s.lockAll([]string{path})
	defer unlock()
	if err := s.fs.Remove(path); err != nil {
		return proto.ErrorIo(path, err)
	}
	return nil
}

// Exists reports whether path exists.
func (s *Service) Exists(path string) bool { return s.fs.Exists(path) }

// ReadDir lists the entries directly under path.
func (s *Service) ReadDir(path string) ([]fs.DirEntry, error) { return s.fs.ReadDir(path) }

// atomicWrite writes data to a sibling temp file then renames it over path,
// so a crash mid-write never leaves a half-written file at path. The
// same no-residue principle behind in-memory rollback snapshots applies
// to ordinary single-file writes.
func (s *Service) atomicWrite(path, content string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("fileservice: mkdir %s: %w", dir, err)
		}
	}
	mode := os.FileMode(0o644)
	if info, err := s.fs.Stat(path); err == nil {
		mode = info.Mode()
	}
	tmp := path + ".codebuddy-tmp"
	if err := s.fs.WriteFile(tmp, []byte(content), mode); err != nil {
		return fmt.Errorf("fileservice: write temp for %s: %w", path, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("fileservice: rename temp onto %s: %w", path, err)
	}
	return nil
}
