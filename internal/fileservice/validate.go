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
	"fmt"

	"codebuddy.dev/codebuddy/internal/proto"
)

// validatePlan runs every check that must pass before the plan may
// touch disk, and returns the per-path TextEdit groups (PlanOpEdit
// entries merged with DependencyUpdates targeting the same file) the
// apply step will use.
func (s *Service) validatePlan(plan *proto.EditPlan) (map[string][]proto.TextEdit, error) {
	editsByPath := make(map[string][]proto.TextEdit)
	for _, op := range plan.Edits {
		if op.Kind == proto.PlanOpEdit {
			editsByPath[op.Path] = append(editsByPath[op.Path], op.Edits...)
		}
	}
	for _, du := range plan.DependencyUpdates {
		editsByPath[du.ManifestPath] = append(editsByPath[du.ManifestPath], du.Edits...)
	}

	for path, edits := range editsByPath {
		if overlappingEdits(edits) {
			return nil, proto.ErrorValidationFailed(fmt.Sprintf("overlapping edits in %s", path))
		}
		content, err := s.fs.ReadFile(path)
		if err != nil {
			return nil, proto.ErrorValidationFailed(fmt.Sprintf("file does not exist: %s", path))
		}
		lines := splitLines(string(content))
		for _, e := range edits {
			if !rangeWithinLines(lines, e.Range) {
				return nil, proto.ErrorValidationFailed(
					fmt.Sprintf("edit range out of bounds in %s: %+v", path, e.Range))
			}
		}
	}

	for _, op := range plan.Edits {
		switch op.Kind {
		case proto.PlanOpCreate:
			if s.fs.Exists(op.Path) {
				return nil, proto.ErrorConflict(op.Path)
			}
		case proto.PlanOpMove:
			if !s.fs.Exists(op.Path) {
				return nil, proto.ErrorValidationFailed(fmt.Sprintf("move source does not exist: %s", op.Path))
			}
			if s.fs.Exists(op.NewPath) {
				return nil, proto.ErrorConflict(op.NewPath)
			}
		case proto.PlanOpDelete:
			if !s.fs.Exists(op.Path) {
				return nil, proto.ErrorValidationFailed(fmt.Sprintf("delete target does not exist: %s", op.Path))
			}
		}
	}

	return editsByPath, nil
}

// rangeWithinLines reports whether r's start and end both sit within the
// bounds of lines: start.character <= end_of_line(start.line), and
// likewise for end. A character beyond line length must fail validation,
// never silently truncate.
func rangeWithinLines(lines []string, r proto.Range) bool {
	startLen := lineLength(lines, r.Start.Line)
	if startLen < 0 || int(r.Start.Character) > startLen {
		return false
	}
	endLen := lineLength(lines, r.End.Line)
	if endLen < 0 || int(r.End.Character) > endLen {
		return false
	}
	if r.End.Line < r.Start.Line {
		return false
	}
	if r.End.Line == r.Start.Line && r.End.Character < r.Start.Character {
		return false
	}
	return true
}
