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
	"context"
	"fmt"
	"path/filepath"

	"codebuddy.dev/codebuddy/internal/proto"
)

// EditPlanResult is the outcome of a successful apply_edit_plan call.
// Warnings carries post-edit validation complaints under the Report
// policy; under Rollback those fail the apply instead.
type EditPlanResult struct {
	AppliedFiles []string `json:"appliedFiles"`
	Empty        bool     `json:"empty"`
	Warnings     []string `json:"warnings,omitempty"`
}

type fileSnapshot struct {
	existed bool
	content string
}

type completedOp struct {
	kind    proto.PlanOpKind
	path    string
	newPath string
}

// ApplyEditPlan applies an EditPlan: validate every operation before
// touching disk, snapshot pre-content in memory, execute in dependency
// order (edits, then creates, then moves, then the consolidation hook if
// tagged, then deletes last), and roll back to the pre-call state on any
// failure, so no partial outcome is ever visible on disk.
func (s *Service) ApplyEditPlan(ctx context.Context, plan *proto.EditPlan) (*EditPlanResult, error) {
	if plan.IsEmpty() {
		// Per the "empty apply" open question decision in DESIGN.md: success
		// with an empty applied-files list, not an error.
		return &EditPlanResult{Empty: true}, nil
	}

	affected := plan.AffectedFiles()
	unlock := s.lockAll(affected)
	defer unlock()

	editsByPath, err := s.validatePlan(plan)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.snapshotAll(plan, affected)
	if err != nil {
		return nil, err
	}

	var completed []completedOp
	changedContent := make(map[string]string)

	rollback := func(cause error) error {
		s.rollbackAll(completed, snapshots)
		return proto.ErrorRollbackPerformed(cause)
	}

	// 1. Text edits, grouped per path (PlanOp edits merged with
	// DependencyUpdates targeting the same manifest path).
	for path, edits := range editsByPath {
		original := snapshots[path].content
		newContent := applyTextEdits(original, edits)
		if err := s.atomicWrite(path, newContent); err != nil {
			return nil, rollback(fmt.Errorf("fileservice: apply edits to %s: %w", path, err))
		}
		completed = append(completed, completedOp{kind: proto.PlanOpEdit, path: path})
		changedContent[path] = newContent
	}

	// 2. Creates.
	for _, op := range plan.Edits {
		if op.Kind != proto.PlanOpCreate {
			continue
		}
		if err := s.atomicWrite(op.Path, op.Content); err != nil {
			return nil, rollback(fmt.Errorf("fileservice: create %s: %w", op.Path, err))
		}
		completed = append(completed, completedOp{kind: proto.PlanOpCreate, path: op.Path})
		changedContent[op.Path] = op.Content
	}

	// 3. Moves.
	for _, op := range plan.Edits {
		if op.Kind != proto.PlanOpMove {
			continue
		}
		if dir := filepath.Dir(op.NewPath); dir != "." && dir != "" {
			if err := s.fs.MkdirAll(dir, 0o755); err != nil {
				return nil, rollback(fmt.Errorf("fileservice: mkdir for move target %s: %w", op.NewPath, err))
			}
		}
		if err := s.fs.Rename(op.Path, op.NewPath); err != nil {
			return nil, rollback(fmt.Errorf("fileservice: move %s -> %s: %w", op.Path, op.NewPath, err))
		}
		completed = append(completed, completedOp{kind: proto.PlanOpMove, path: op.Path, newPath: op.NewPath})
	}

	// 4. Consolidation post-processing, strictly after every Move completes
	// and strictly before declaring success. The hook gets a
	// Txn sharing this call's journal, so its own mutations roll back with
	// the plan's.
	if plan.Metadata.Consolidation != nil {
		if s.consol == nil {
			s.rollbackAll(completed, snapshots)
			return nil, proto.ErrorConsolidationFailed("post-processing",
				fmt.Errorf("fileservice: plan tagged for consolidation but no consolidator is configured"))
		}
		if err := s.consol.Consolidate(ctx, plan, s.newTxn(snapshots, &completed)); err != nil {
			s.rollbackAll(completed, snapshots)
			return nil, proto.ErrorConsolidationFailed("post-processing", err)
		}
	}

	// 5. Deletes last among resource ops.
	for _, op := range plan.Edits {
		if op.Kind != proto.PlanOpDelete {
			continue
		}
		if err := s.fs.Remove(op.Path); err != nil {
			return nil, rollback(fmt.Errorf("fileservice: delete %s: %w", op.Path, err))
		}
		completed = append(completed, completedOp{kind: proto.PlanOpDelete, path: op.Path})
	}

	result := &EditPlanResult{AppliedFiles: affected}

	// 6. Post-edit validation hook, if configured. Under the Rollback
	// policy a failing validator unwinds the whole plan; under Report
	// (and the CLI-only Interactive, degraded here) the failure rides
	// along as a warning.
	if s.validator != nil {
		if err := s.validator.Validate(ctx, affected); err != nil {
			if s.validatorPolicy == FailureRollback {
				return nil, rollback(fmt.Errorf("fileservice: post-edit validation: %w", err))
			}
			s.logger.Warning("post-edit validation failed: %v", err)
			result.Warnings = append(result.Warnings, err.Error())
		}
	}

	// 7. LSP sync for every file whose content changed on disk, the
	// consolidation hook's own Txn writes included.
	if s.notify != nil {
		for _, op := range completed {
			if op.kind != proto.PlanOpEdit && op.kind != proto.PlanOpCreate {
				continue
			}
			if _, ok := changedContent[op.path]; ok {
				continue
			}
			if content, err := s.fs.ReadFile(op.path); err == nil {
				changedContent[op.path] = string(content)
			}
		}
		for path, content := range changedContent {
			if err := s.notify.NotifyFileChanged(path, content); err != nil {
				s.logger.Warning("notify change for %s: %v", path, err)
			}
		}
	}

	return result, nil
}

// snapshotAll records the pre-content (or absence) of every affected path,
// in memory only; no .bak files ever reach disk.
func (s *Service) snapshotAll(plan *proto.EditPlan, affected []string) (map[string]fileSnapshot, error) {
	snapshots := make(map[string]fileSnapshot, len(affected))
	for _, path := range affected {
		content, err := s.fs.ReadFile(path)
		if err != nil {
			if s.fs.Exists(path) {
				return nil, proto.ErrorIo(path, err)
			}
			snapshots[path] = fileSnapshot{existed: false}
			continue
		}
		snapshots[path] = fileSnapshot{existed: true, content: string(content)}
	}
	return snapshots, nil
}

// rollbackAll reverses every operation in completed, most-recent first,
// restoring every snapshotted file to its pre-call state.
func (s *Service) rollbackAll(completed []completedOp, snapshots map[string]fileSnapshot) {
	for i := len(completed) - 1; i >= 0; i-- {
		op := completed[i]
		switch op.kind {
		case proto.PlanOpCreate:
			if err := s.fs.Remove(op.path); err != nil {
				s.logger.Warning("rollback: remove created file %s: %v", op.path, err)
			}
		case proto.PlanOpMove:
			if dir := filepath.Dir(op.path); dir != "." && dir != "" {
				_ = s.fs.MkdirAll(dir, 0o755)
			}
			if err := s.fs.Rename(op.newPath, op.path); err != nil {
				s.logger.Warning("rollback: reverse move %s -> %s: %v", op.newPath, op.path, err)
			}
		case proto.PlanOpEdit:
			snap := snapshots[op.path]
			if snap.existed {
				if err := s.atomicWrite(op.path, snap.content); err != nil {
					s.logger.Warning("rollback: restore %s: %v", op.path, err)
				}
			}
		case proto.PlanOpDelete:
			snap := snapshots[op.path]
			if snap.existed {
				if err := s.atomicWrite(op.path, snap.content); err != nil {
					s.logger.Warning("rollback: recreate deleted file %s: %v", op.path, err)
				}
			}
		}
	}
}
