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
	"path/filepath"
	"strings"

	"codebuddy.dev/codebuddy/internal/proto"
)

// conventionalEntryNames are file base names treated as workspace entry
// points regardless of plugin, never flagged dead even with zero
// importers.
var conventionalEntryNames = map[string]bool{
	"main.go": true, "index.ts": true, "index.js": true,
	"__init__.py": true, "lib.rs": true, "mod.rs": true, "main.rs": true,
}

// analyzeDeadCode finds files nothing in the workspace imports. Detection
// runs at file granularity: pluginapi has no per-symbol declaration
// enumeration, so a finer-grained unused-symbol analysis is out of reach
// without a dedicated AST pass per language. At workspace scope with an
// LSP server available, each candidate is corroborated with a
// textDocument/references query; at file scope, or when no LSP
// server is configured, the import-graph heuristic alone decides.
func (s *Service) analyzeDeadCode(ctx context.Context, scope Scope) (*Result, error) {
	result := newResult(KindDeadCode)

	if scope.Kind == ScopeFile {
		fr := result.file(scope.Path)
		fr.Diagnostics = append(fr.Diagnostics, infoDiagnostic("file-scope dead_code uses the import-graph heuristic only; symbol-level detection requires workspace scope"))
	}

	graph, files, err := s.planner.BuildWorkspaceDependencyGraph()
	if err != nil {
		return nil, err
	}
	scoped, err := s.scopeFiles(scope)
	if err != nil {
		return nil, err
	}
	scopedSet := make(map[string]bool, len(scoped))
	for _, f := range scoped {
		scopedSet[f] = true
	}

	for _, f := range files {
		if !scopedSet[f] {
			continue
		}
		if len(graph.DirectImporters(f)) > 0 || conventionalEntryNames[filepath.Base(f)] {
			continue
		}
		fr := result.file(f)
		confidence := "heuristic"
		if s.lsp != nil && scope.Kind == ScopeWorkspace {
			if corroborated := s.corroborateDeadFile(ctx, f); corroborated {
				confidence = "lsp-corroborated"
			} else {
				confidence = "lsp-found-references"
				fr.Metrics["dead"] = false
				continue
			}
		}
		fr.Metrics["dead"] = true
		fr.Metrics["confidence"] = confidence
		fr.Diagnostics = append(fr.Diagnostics, warningDiagnostic("no other workspace file imports this file"))
	}

	return result, nil
}

// corroborateDeadFile asks the file's owning LSP server for references at
// the start of the file (line 0, character 0), returning true if the server confirms
// no references outside the declaration itself (or does not support the
// capability, in which case the graph heuristic stands uncorroborated but
// unchallenged).
func (s *Service) corroborateDeadFile(ctx context.Context, path string) bool {
	plugin, ok := s.registry.LookupByPath(path)
	if !ok {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	server, err := s.lsp.EnsureOpen(ctx, ext, path, plugin.Name())
	if err != nil {
		return true
	}
	refs, err := server.References(ctx, path, proto.Position{Line: 0, Character: 0}, false)
	if err != nil {
		return true
	}
	return len(refs) == 0
}
