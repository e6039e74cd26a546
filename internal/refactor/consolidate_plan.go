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

package refactor

import (
	"context"
	"path/filepath"
	"strings"

	"codebuddy.dev/codebuddy/internal/proto"
)

// BuildWorkspaceDependencyGraph parses every workspace source file's
// imports and resolves them into a file-level DependencyGraph, used by
// both consolidation pre-validation and post-apply verification.
func (p *Planner) BuildWorkspaceDependencyGraph() (*DependencyGraph, []string, error) {
	files, err := p.allWorkspaceFiles()
	if err != nil {
		return nil, nil, err
	}
	allFiles := make(map[string]bool, len(files))
	for _, f := range files {
		allFiles[f] = true
	}

	graph := NewDependencyGraph()
	for _, f := range files {
		plugin, ok := p.registry.LookupByPath(f)
		if !ok {
			continue
		}
		content, err := p.files.Read(f)
		if err != nil {
			continue
		}
		ig, err := plugin.ParseImports(f, content)
		if err != nil {
			continue
		}
		for _, imp := range ig.Imports {
			if resolved, ok := ResolveImportTarget(f, imp.Target, plugin.Extensions(), allFiles); ok {
				graph.AddEdge(f, resolved)
			}
		}
	}
	return graph, files, nil
}

func filesUnder(files []string, dir string) []string {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var out []string
	for _, f := range files {
		if f == dir || strings.HasPrefix(f, prefix) {
			out = append(out, f)
		}
	}
	return out
}

// crossDependsOn reports whether any file in targets transitively
// imports any file in sources, returning one witnessing chain.
func crossDependsOn(graph *DependencyGraph, targets, sources []string) (bool, []string) {
	for _, t := range targets {
		for _, s := range sources {
			if ok, chain := graph.DependsOn(t, s); ok {
				return true, chain
			}
		}
	}
	return false, nil
}

// PlanConsolidate plans a directory-move reclassified as consolidation
// into a sibling package: it runs the dependency-cycle check before any
// files move, then builds the same Move + import-rewrite operations a
// plain PlanRenamePath would, tagging the result with
// ConsolidationMetadata so the file service invokes the consolidation
// post-processing hook after the moves land.
func (p *Planner) PlanConsolidate(ctx context.Context, sourcePath, targetPath string) (*proto.EditPlan, error) {
	graph, files, err := p.BuildWorkspaceDependencyGraph()
	if err != nil {
		return nil, err
	}

	sourceFiles := filesUnder(files, sourcePath)
	targetFiles := filesUnder(files, targetPath)
	if cyc, chain := crossDependsOn(graph, targetFiles, sourceFiles); cyc {
		return nil, proto.ErrorCircularDependency(chain, sourceFiles)
	}

	submodule := filepath.Base(sourcePath)
	newRoot := filepath.Join(targetPath, submodule)

	moves, err := p.movesForPathRename(sourcePath, newRoot)
	if err != nil {
		return nil, err
	}
	rewrites, depUpdates, err := p.rewriteImportsForRename(ctx, []pathRename{{sourcePath, newRoot}})
	if err != nil {
		return nil, err
	}

	ops := append(moves, rewrites...)
	plan := &proto.EditPlan{
		Edits:             ops,
		DependencyUpdates: depUpdates,
		Metadata: proto.PlanMetadata{
			PlanType:        "consolidate",
			Language:        p.languageForPath(sourcePath),
			EstimatedImpact: proto.EstimateImpact(len(ops)),
			Consolidation: &proto.ConsolidationMetadata{
				SourceCrate:      submodule,
				TargetCrate:      filepath.Base(targetPath),
				TargetModule:     submodule,
				SourcePath:       sourcePath,
				TargetPath:       targetPath,
				TargetModulePath: newRoot,
			},
		},
	}
	return plan, nil
}
