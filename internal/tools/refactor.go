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

type codeActionRefactorArgs struct {
	Intent    string         `json:"intent"`
	Path      string         `json:"path"`
	StartLine uint32         `json:"startLine"`
	StartChar uint32         `json:"startCharacter"`
	EndLine   uint32         `json:"endLine"`
	EndChar   uint32         `json:"endCharacter"`
	Params    map[string]any `json:"params,omitempty"`
}

// CodeActionRefactor exposes Planner.PlanCodeActionRefactor as
// "refactor.plan": extract, inline, move (symbol-level), reorder
// and transform all route through the owning LSP server's code actions,
// falling back to the plugin's own refactor primitive of the matching
// kind.
func CodeActionRefactor() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name: "refactor.plan",
		Description: "Plan an extract/inline/move/reorder/transform refactor over a range, " +
			"preferring the owning language server's code actions and falling back to the " +
			"language plugin's own primitive. Returns a dry-run EditPlan.",
		Visibility: dispatcher.Public,
		Schema: object([]string{"intent", "path", "startLine", "startCharacter", "endLine", "endCharacter"}, map[string]any{
			"intent":         prop("string", "One of extract, inline, move, reorder, transform."),
			"path":           prop("string", "File the range is in."),
			"startLine":      prop("integer", "Zero-based start line."),
			"startCharacter": prop("integer", "Zero-based start character."),
			"endLine":        prop("integer", "Zero-based end line."),
			"endCharacter":   prop("integer", "Zero-based end character."),
			"params":         prop("object", "Intent-specific parameters forwarded to the plugin primitive when the LSP server has no code action."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args codeActionRefactorArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			intent := refactor.Intent(args.Intent)
			switch intent {
			case refactor.IntentExtract, refactor.IntentInline, refactor.IntentMove,
				refactor.IntentReorder, refactor.IntentTransform:
			default:
				return nil, proto.ErrorInvalidRequest("intent must be one of extract, inline, move, reorder, transform")
			}
			rng := proto.Range{
				Start: proto.Position{Line: args.StartLine, Character: args.StartChar},
				End:   proto.Position{Line: args.EndLine, Character: args.EndChar},
			}
			content, err := svc.Files.Read(args.Path)
			if err != nil {
				return nil, err
			}
			return svc.Planner.PlanCodeActionRefactor(ctx, intent, args.Path, rng, content, args.Params)
		},
	}
}
