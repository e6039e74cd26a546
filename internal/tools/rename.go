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

package tools

import (
	"context"
	"encoding/json"

	"codebuddy.dev/codebuddy/internal/dispatcher"
	"codebuddy.dev/codebuddy/internal/proto"
	"codebuddy.dev/codebuddy/internal/refactor"
)

type renameSymbolArgs struct {
	Path      string `json:"path"`
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
	NewName   string `json:"newName"`
}

// RenameSymbol exposes Planner.PlanRenameSymbol as "rename.symbol":
// it always returns a dry-run EditPlan; a client applies it with a
// separate "workspace.apply_edit" call.
func RenameSymbol() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name:        "rename.symbol",
		Description: "Plan renaming the symbol at a position across every referencing file. Returns a dry-run EditPlan.",
		Visibility:  dispatcher.Public,
		Schema: object([]string{"path", "line", "character", "newName"}, map[string]any{
			"path":      prop("string", "File containing the symbol's declaration or a reference to it."),
			"line":      prop("integer", "Zero-based line of the symbol."),
			"character": prop("integer", "Zero-based UTF-16 character offset of the symbol."),
			"newName":   prop("string", "The symbol's new name."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args renameSymbolArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			pos := proto.Position{Line: args.Line, Character: args.Character}
			return svc.Planner.PlanRenameSymbol(ctx, args.Path, pos, args.NewName)
		},
	}
}

type renamePathArgs struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}

// RenamePath exposes Planner.PlanRenamePath as "rename.path":
// Move operations for the file/directory plus the workspace-wide import
// rewriting pipeline.
func RenamePath() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name:        "rename.path",
		Description: "Plan moving/renaming a file or directory, rewriting every importer's specifier and manifest dependency entry. Returns a dry-run EditPlan.",
		Visibility:  dispatcher.Public,
		Schema: object([]string{"oldPath", "newPath"}, map[string]any{
			"oldPath": prop("string", "Current file or directory path."),
			"newPath": prop("string", "Destination path."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args renamePathArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			return svc.Planner.PlanRenamePath(ctx, args.OldPath, args.NewPath)
		},
	}
}

type batchRenameTargetArgs struct {
	Path      string `json:"path,omitempty"`
	Line      uint32 `json:"line,omitempty"`
	Character uint32 `json:"character,omitempty"`
	NewName   string `json:"newName,omitempty"`
	OldPath   string `json:"oldPath,omitempty"`
	NewPath   string `json:"newPath,omitempty"`
}

type batchRenameArgs struct {
	Targets []batchRenameTargetArgs `json:"targets"`
}

// RenameBatch exposes Planner.PlanBatchRename as "rename.batch": a list
// of symbol- or path-rename targets planned together with per-file
// merged edits.
func RenameBatch() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name:        "rename.batch",
		Description: "Plan several renames (symbols and/or paths) together, merging edits per file. Returns a dry-run EditPlan.",
		Visibility:  dispatcher.Public,
		Schema: object([]string{"targets"}, map[string]any{
			"targets": prop("array", "List of {path,line,character,newName} or {oldPath,newPath} targets."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args batchRenameArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			if len(args.Targets) == 0 {
				return nil, proto.ErrorValidationFailed("targets must be non-empty")
			}
			targets := make([]refactor.RenameTarget, 0, len(args.Targets))
			for _, t := range args.Targets {
				targets = append(targets, refactor.RenameTarget{
					Path:     t.Path,
					Position: proto.Position{Line: t.Line, Character: t.Character},
					NewName:  t.NewName,
					OldPath:  t.OldPath,
					NewPath:  t.NewPath,
				})
			}
			return svc.Planner.PlanBatchRename(ctx, targets)
		},
	}
}
