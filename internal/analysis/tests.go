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

// analyzeTests reports a workspace-wide test/source file ratio plus a
// per-directory breakdown, using naming-convention recognition
// (_test.go, .test.ts, test_*.py, …) rather than a plugin hook: the
// conventions are stable enough per language that a parser adds
// nothing here.
func (s *Service) analyzeTests(scope Scope) (*Result, error) {
	files, err := s.scopeFiles(scope)
	if err != nil {
		return nil, err
	}

	result := newResult(KindTests)
	type dirCounts struct{ test, source int }
	perDir := make(map[string]*dirCounts)

	for _, f := range files {
		fr := result.file(f)
		isTest := isTestFile(f)
		fr.Metrics["isTest"] = isTest

		dir := filepath.Dir(f)
		d, ok := perDir[dir]
		if !ok {
			d = &dirCounts{}
			perDir[dir] = d
		}
		if isTest {
			d.test++
		} else {
			d.source++
		}
	}

	var totalTest, totalSource int
	dirSummary := make(map[string]map[string]any, len(perDir))
	for dir, d := range perDir {
		totalTest += d.test
		totalSource += d.source
		ratio := 0.0
		if d.source > 0 {
			ratio = float64(d.test) / float64(d.source)
		}
		dirSummary[dir] = map[string]any{"test": d.test, "source": d.source, "ratio": ratio}
	}
	result.Summary["directories"] = dirSummary
	result.Summary["testFiles"] = totalTest
	result.Summary["sourceFiles"] = totalSource
	if totalSource > 0 {
		result.Summary["ratio"] = float64(totalTest) / float64(totalSource)
	}
	return result, nil
}
