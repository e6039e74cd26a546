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

// analyzeDependencies is plugin-backed only: a file whose extension
// has no registered plugin is skipped with an informational diagnostic
// rather than falling back to a text/regex import scan.
func (s *Service) analyzeDependencies(scope Scope) (*Result, error) {
	files, err := s.scopeFiles(scope)
	if err != nil {
		return nil, err
	}

	result := newResult(KindDependencies)
	importers := make(map[string][]string)

	for _, f := range files {
		fr := result.file(f)
		plugin, ok := s.registry.LookupByPath(f)
		if !ok {
			fr.Diagnostics = append(fr.Diagnostics, infoDiagnostic("no plugin registered for this extension; dependency analysis skipped"))
			continue
		}
		content, err := s.files.Read(f)
		if err != nil {
			fr.Diagnostics = append(fr.Diagnostics, errorDiagnostic("could not read file: "+err.Error()))
			continue
		}
		graph, err := plugin.ParseImports(f, content)
		if err != nil {
			fr.Diagnostics = append(fr.Diagnostics, errorDiagnostic("could not parse imports: "+err.Error()))
			continue
		}
		fr.Metrics["imports"] = graph.Imports
		for _, imp := range graph.Imports {
			importers[imp.Target] = append(importers[imp.Target], f)
		}
	}

	result.Summary["importers"] = importers
	return result, nil
}
