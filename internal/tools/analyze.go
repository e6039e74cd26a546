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

	"codebuddy.dev/codebuddy/internal/analysis"
	"codebuddy.dev/codebuddy/internal/dispatcher"
	"codebuddy.dev/codebuddy/internal/proto"
)

type analyzeArgs struct {
	Kind            string   `json:"kind"`
	ScopeKind       string   `json:"scopeKind"`
	Path            string   `json:"path,omitempty"`
	IncludePatterns []string `json:"includePatterns,omitempty"`
	ExcludePatterns []string `json:"excludePatterns,omitempty"`
	Files           []string `json:"files,omitempty"`
	Options         map[string]any `json:"options,omitempty"`
}

// Analyze exposes analysis.Service.Analyze as "analyze": the
// unified quality/dead_code/dependencies/structure/documentation/tests/
// batch entrypoint.
func Analyze() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name: "analyze",
		Description: "Run quality, dead_code, dependencies, structure, documentation, tests, or batch " +
			"analysis over a file or workspace scope.",
		Visibility: dispatcher.Public,
		Schema: object([]string{"kind", "scopeKind"}, map[string]any{
			"kind":            prop("string", "quality | dead_code | dependencies | structure | documentation | tests | batch"),
			"scopeKind":       prop("string", "file | workspace"),
			"path":            prop("string", "File path (scopeKind=file) or workspace subtree root (scopeKind=workspace)."),
			"includePatterns": prop("array", "Glob patterns a workspace-scoped file must match."),
			"excludePatterns": prop("array", "Glob patterns a workspace-scoped file must not match."),
			"files":           prop("array", "Explicit file list, required when kind=batch."),
			"options":         prop("object", "Kind-specific options."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args analyzeArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			kind := analysis.Kind(args.Kind)
			scopeKind := analysis.ScopeKind(args.ScopeKind)
			switch scopeKind {
			case analysis.ScopeFile, analysis.ScopeWorkspace:
			default:
				return nil, proto.ErrorInvalidRequest("scopeKind must be file or workspace")
			}
			scope := analysis.Scope{
				Kind:            scopeKind,
				Path:            args.Path,
				IncludePatterns: args.IncludePatterns,
				ExcludePatterns: args.ExcludePatterns,
				Files:           args.Files,
			}
			return svc.Analysis.Analyze(ctx, kind, scope, args.Options)
		},
	}
}
