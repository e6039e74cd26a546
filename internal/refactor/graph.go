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
	"path/filepath"
	"strings"
)

// DefaultMaxTransitiveDepth bounds DependsOn's search so a very large,
// genuinely acyclic workspace cannot make consolidation pre-validation
// run unbounded; a path longer than this is not walked further, so a
// dependency reachable only through a longer chain is not reported.
const DefaultMaxTransitiveDepth = 64

// DependencyGraph is a file-level import graph: edges point from an
// importing file to the files it imports, resolved on a best-effort
// basis by ResolveImportTarget. It backs both the Refactor Planner's
// consolidation pre-validation and the post-apply verification.
type DependencyGraph struct {
	edges map[string]map[string]bool
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{edges: make(map[string]map[string]bool)}
}

// AddEdge records that from imports to.
func (g *DependencyGraph) AddEdge(from, to string) {
	if from == to {
		return
	}
	if g.edges[from] == nil {
		g.edges[from] = make(map[string]bool)
	}
	g.edges[from][to] = true
}

// Edges returns the files from directly imports, for fan-out reporting.
func (g *DependencyGraph) Edges(from string) []string {
	tos := g.edges[from]
	out := make([]string, 0, len(tos))
	for to := range tos {
		out = append(out, to)
	}
	return out
}

// DirectImporters returns every file with a direct import edge to
// target, used by the analysis service's dead-code detection (a file
// with zero direct importers, not merely zero transitive ones, is what
// "nothing imports this file" means).
func (g *DependencyGraph) DirectImporters(target string) []string {
	var out []string
	for from, tos := range g.edges {
		if tos[target] {
			out = append(out, from)
		}
	}
	return out
}

// DependsOn reports whether from transitively imports to, and if so
// returns one witnessing chain from -> ... -> to. Search is capped at
// DefaultMaxTransitiveDepth hops.
func (g *DependencyGraph) DependsOn(from, to string) (bool, []string) {
	type frame struct {
		path []string
	}
	visited := map[string]bool{from: true}
	queue := []frame{{path: []string{from}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		last := cur.path[len(cur.path)-1]
		if len(cur.path) > DefaultMaxTransitiveDepth {
			continue
		}
		for next := range g.edges[last] {
			if next == to {
				return true, append(append([]string(nil), cur.path...), next)
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, frame{path: append(append([]string(nil), cur.path...), next)})
		}
	}
	return false, nil
}

// HasCycle reports whether the graph contains any cycle reachable from
// roots, returning one witnessing chain.
func (g *DependencyGraph) HasCycle(roots []string) (bool, []string) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var chain []string

	var visit func(node string, path []string) bool
	visit = func(node string, path []string) bool {
		color[node] = gray
		path = append(path, node)
		for next := range g.edges[node] {
			switch color[next] {
			case gray:
				chain = append(append([]string(nil), path...), next)
				return true
			case white:
				if visit(next, path) {
					return true
				}
			}
		}
		color[node] = black
		return false
	}

	for _, r := range roots {
		if color[r] == white {
			if visit(r, nil) {
				return true, chain
			}
		}
	}
	return false, nil
}

// ResolveImportTarget maps a parsed Import's raw specifier to a concrete
// workspace file path, on a best-effort basis. This is heuristic, not a
// full per-language module resolver (that is the owning LSP server's
// job): relative specifiers resolve against the importing file's
// directory; bare specifiers resolve by matching the last path segment
// against a candidate's file stem. A miss is reported via ok=false and
// must never fail planning — dangling/unresolved imports surface as
// diagnostics, not errors.
func ResolveImportTarget(sourceFile string, target string, extensions []string, allFiles map[string]bool) (string, bool) {
	target = strings.Trim(target, `"'`)
	if target == "" {
		return "", false
	}

	if strings.HasPrefix(target, ".") {
		candidate := filepath.Clean(filepath.Join(filepath.Dir(sourceFile), target))
		if hit, ok := matchWithExtensions(candidate, extensions, allFiles); ok {
			return hit, true
		}
		return "", false
	}

	// Rust module paths: crate::a::b, self::x, super::x.
	if strings.Contains(target, "::") {
		parts := strings.Split(target, "::")
		parts = dropModulePrefixSegments(parts)
		if len(parts) == 0 {
			return "", false
		}
		rel := filepath.Join(parts...) + ".rs"
		for f := range allFiles {
			if strings.HasSuffix(f, "/"+rel) || f == rel {
				return f, true
			}
			if strings.HasSuffix(f, "/"+filepath.Join(parts...)+"/mod.rs") {
				return f, true
			}
		}
		return "", false
	}

	// Bare specifier (bare Go import path, Python dotted module, TS path
	// alias): match by trailing path segment against candidate file stems.
	segment := target
	if idx := strings.LastIndexAny(target, "./"); idx >= 0 {
		segment = target[idx+1:]
	}
	for f := range allFiles {
		stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		if stem == segment && strings.Contains(f, strings.ReplaceAll(strings.Trim(target, "."), ".", "/")) {
			return f, true
		}
	}
	return "", false
}

func dropModulePrefixSegments(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p == "crate" || p == "self" || p == "super" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchWithExtensions(candidate string, extensions []string, allFiles map[string]bool) (string, bool) {
	if allFiles[candidate] {
		return candidate, true
	}
	for _, ext := range extensions {
		if allFiles[candidate+ext] {
			return candidate + ext, true
		}
		indexed := filepath.Join(candidate, "index"+ext)
		if allFiles[indexed] {
			return indexed, true
		}
		initPy := filepath.Join(candidate, "__init__"+ext)
		if allFiles[initPy] {
			return initPy, true
		}
	}
	return "", false
}
