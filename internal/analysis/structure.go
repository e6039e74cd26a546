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

import "path/filepath"

// analyzeStructure reports, per file, its direct import fan-out and
// fan-in, then rolls those up per directory in the summary — a cheap
// byproduct of having a DependencyGraph already.
func (s *Service) analyzeStructure(scope Scope) (*Result, error) {
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

	result := newResult(KindStructure)
	type dirStats struct{ fanIn, fanOut int }
	perDir := make(map[string]*dirStats)

	dirStatsFor := func(dir string) *dirStats {
		d, ok := perDir[dir]
		if !ok {
			d = &dirStats{}
			perDir[dir] = d
		}
		return d
	}

	for _, f := range files {
		if !scopedSet[f] {
			continue
		}
		fanIn := len(graph.DirectImporters(f))
		fanOut := len(graph.Edges(f))
		fr := result.file(f)
		fr.Metrics["fanIn"] = fanIn
		fr.Metrics["fanOut"] = fanOut

		dir := filepath.Dir(f)
		ds := dirStatsFor(dir)
		ds.fanIn += fanIn
		ds.fanOut += fanOut
	}

	dirSummary := make(map[string]map[string]int, len(perDir))
	for dir, ds := range perDir {
		dirSummary[dir] = map[string]int{"fanIn": ds.fanIn, "fanOut": ds.fanOut}
	}
	result.Summary["directories"] = dirSummary
	return result, nil
}
