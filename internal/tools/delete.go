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
)

type deleteFileArgs struct {
	Path string `json:"path"`
}

// DeleteFile exposes Planner.PlanDeleteFile as "delete.file".
func DeleteFile() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name:        "delete.file",
		Description: "Plan deleting a single file. Returns a dry-run EditPlan.",
		Visibility:  dispatcher.Public,
		Schema: object([]string{"path"}, map[string]any{
			"path": prop("string", "File to delete."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args deleteFileArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			return svc.Planner.PlanDeleteFile(args.Path), nil
		},
	}
}

type deleteSymbolArgs struct {
	Path      string `json:"path"`
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
	Cascade   bool   `json:"cascade"`
}

// DeleteSymbol exposes Planner.PlanDeleteSymbol as "delete.symbol". When
// cascade is true, references found via textDocument/references are
// excised too; otherwise they are left for the caller to treat as
// diagnostics.
func DeleteSymbol() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name:        "delete.symbol",
		Description: "Plan deleting the symbol at a position, optionally cascading to its references. Returns a dry-run EditPlan.",
		Visibility:  dispatcher.Public,
		Schema: object([]string{"path", "line", "character"}, map[string]any{
			"path":      prop("string", "File containing the symbol."),
			"line":      prop("integer", "Zero-based line of the symbol."),
			"character": prop("integer", "Zero-based UTF-16 character offset of the symbol."),
			"cascade":   prop("boolean", "Also excise every reference to the symbol."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args deleteSymbolArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			if args.Path == "" {
				return nil, proto.ErrorInvalidRequest("path is required")
			}
			pos := proto.Position{Line: args.Line, Character: args.Character}
			return svc.Planner.PlanDeleteSymbol(ctx, args.Path, pos, args.Cascade)
		},
	}
}
