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

package analysis

import (
	"context"

	"codebuddy.dev/codebuddy/internal/proto"
)

// batchKindsOption is the options key naming which analyses to run per
// file; defaults to {quality, documentation} when absent.
const batchKindsOption = "kinds"

// analyzeBatch runs several per-file analyses over scope.Files, building
// one file scope per file and reusing it across every requested kind
// instead of walking the workspace once per kind. codebuddy has no
// shared AST cache, and each kind reads the file's content itself.
func (s *Service) analyzeBatch(ctx context.Context, scope Scope, options map[string]any) (*Result, error) {
	if len(scope.Files) == 0 {
		return nil, proto.ErrorInvalidRequest("batch analysis requires a non-empty file list")
	}

	kinds := batchKinds(options)
	result := newResult(KindBatch)
	result.Summary["kinds"] = kinds

	for _, f := range scope.Files {
		fileScope := Scope{Kind: ScopeFile, Path: f}
		fr := result.file(f)
		fr.Metrics["perKind"] = make(map[string]any, len(kinds))

		for _, kind := range kinds {
			if kind == KindBatch {
				continue
			}
			sub, err := s.Analyze(ctx, kind, fileScope, options)
			if err != nil {
				fr.Diagnostics = append(fr.Diagnostics, errorDiagnostic(string(kind)+": "+err.Error()))
				continue
			}
			if subFile, ok := sub.Files[f]; ok {
				fr.Metrics["perKind"].(map[string]any)[string(kind)] = subFile.Metrics
				fr.Diagnostics = append(fr.Diagnostics, subFile.Diagnostics...)
			}
		}
	}

	return result, nil
}

func batchKinds(options map[string]any) []Kind {
	raw, ok := options[batchKindsOption]
	if !ok {
		return []Kind{KindQuality, KindDocumentation}
	}
	var kinds []Kind
	switch v := raw.(type) {
	case []string:
		for _, k := range v {
			kinds = append(kinds, Kind(k))
		}
	case []any:
		for _, k := range v {
			if s, ok := k.(string); ok {
				kinds = append(kinds, Kind(s))
			}
		}
	}
	if len(kinds) == 0 {
		return []Kind{KindQuality, KindDocumentation}
	}
	return kinds
}
