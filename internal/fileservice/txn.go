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

	"codebuddy.dev/codebuddy/internal/proto"
)

// Txn is the mutation surface ApplyEditPlan hands to the consolidation
// hook. Every mutation made through it lands in the owning apply call's
// rollback journal, and every path is snapshotted before its first
// mutation, so a failure during or after consolidation unwinds the
// hook's moves, writes and deletes together with the plan's own typed
// operations: a failed consolidation leaves no partial mutation
// behind.
//
// Txn methods take no per-path locks: they run inside the apply call's
// critical section, which already holds the lock for every path the
// plan names. Mutating a path outside that set through the Service's
// own Write/Move/Delete while an apply is in flight would race it; the
// hook must route every mutation through its Txn.
type Txn struct {
	svc       *Service
	snapshots map[string]fileSnapshot
	completed *[]completedOp
}

func (s *Service) newTxn(snapshots map[string]fileSnapshot, completed *[]completedOp) *Txn {
	return &Txn{svc: s, snapshots: snapshots, completed: completed}
}

// snapshot records path's pre-state unless an earlier operation (the
// plan's own snapshot pass included) already did.
func (t *Txn) snapshot(path string) {
	if _, ok := t.snapshots[path]; ok {
		return
	}
	content, err := t.svc.fs.ReadFile(path)
	if err != nil {
		t.snapshots[path] = fileSnapshot{existed: false}
		return
	}
	t.snapshots[path] = fileSnapshot{existed: true, content: string(content)}
}

// Exists reports whether path exists.
func (t *Txn) Exists(path string) bool { return t.svc.fs.Exists(path) }

// Read returns path's current content.
func (t *Txn) Read(path string) (string, error) {
	content, err := t.svc.fs.ReadFile(path)
	if err != nil {
		return "", proto.ErrorIo(path, err)
	}
	return string(content), nil
}

// ReadDir lists the entries directly under path.
func (t *Txn) ReadDir(path string) ([]fs.DirEntry, error) { return t.svc.fs.ReadDir(path) }

// Write atomically replaces path's content, journaling the operation so
// rollback restores the prior content, or removes the file if it did
// not exist before this transaction.
func (t *Txn) Write(path, content string) error {
	t.snapshot(path)
	kind := proto.PlanOpEdit
	if !t.snapshots[path].existed {
		kind = proto.PlanOpCreate
	}
	if err := t.svc.atomicWrite(path, content); err != nil {
		return proto.ErrorIo(path, err)
	}
	*t.completed = append(*t.completed, completedOp{kind: kind, path: path})
	return nil
}

// Move renames oldPath to newPath, creating newPath's parent directory
// if needed; rollback reverses the rename.
func (t *Txn) Move(oldPath, newPath string) error {
	t.snapshot(oldPath)
	if dir := filepath.Dir(newPath); dir != "." && dir != "" {
		if err := t.svc.fs.MkdirAll(dir, 0o755); err != nil {
			return proto.ErrorIo(newPath, err)
		}
	}
	if err := t.svc.fs.Rename(oldPath, newPath); err != nil {
		return proto.ErrorIo(oldPath, err)
	}
	*t.completed = append(*t.completed, completedOp{kind: proto.PlanOpMove, path: oldPath, newPath: newPath})
	return nil
}

// Delete removes path; rollback recreates it with its snapshotted
// content. Deleting an (empty) directory journals too, but a directory
// has no content snapshot: its restoration falls out of reversing the
// moves that re-populate it.
func (t *Txn) Delete(path string) error {
	t.snapshot(path)
	if err := t.svc.fs.Remove(path); err != nil {
		return proto.ErrorIo(path, err)
	}
	*t.completed = append(*t.completed, completedOp{kind: proto.PlanOpDelete, path: path})
	return nil
}
