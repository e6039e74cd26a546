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

import "strings"

// analyzeQuality computes a per-file maintainability proxy — line count,
// longest line, and a comment-density ratio — then, for workspace scope,
// aggregates them into a workspace summary via explicit helper functions
// rather than a generic reducer.
func (s *Service) analyzeQuality(scope Scope, options map[string]any) (*Result, error) {
	files, err := s.scopeFiles(scope)
	if err != nil {
		return nil, err
	}

	result := newResult(KindQuality)
	for _, f := range files {
		fr := result.file(f)
		content, err := s.files.Read(f)
		if err != nil {
			fr.Diagnostics = append(fr.Diagnostics, errorDiagnostic("could not read file: "+err.Error()))
			continue
		}
		m := fileMaintainabilityMetrics(content)
		fr.Metrics["lines"] = m.lines
		fr.Metrics["longestLine"] = m.longestLine
		fr.Metrics["commentDensity"] = m.commentDensity
		if m.longestLine > 200 {
			fr.Diagnostics = append(fr.Diagnostics, warningDiagnostic("longest line exceeds 200 characters"))
		}
	}

	if scope.Kind == ScopeWorkspace {
		result.Summary = aggregateMaintainability(result.Files)
	}
	return result, nil
}

type maintainabilityMetrics struct {
	lines          int
	longestLine    int
	commentDensity float64
}

func fileMaintainabilityMetrics(content string) maintainabilityMetrics {
	lines := strings.Split(content, "\n")
	var longest, commentLines int
	for _, l := range lines {
		if len(l) > longest {
			longest = len(l)
		}
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "*") {
			commentLines++
		}
	}
	density := 0.0
	if len(lines) > 0 {
		density = float64(commentLines) / float64(len(lines))
	}
	return maintainabilityMetrics{lines: len(lines), longestLine: longest, commentDensity: density}
}

// aggregateMaintainability computes workspace-level totals/averages from
// each file's maintainability metrics.
func aggregateMaintainability(files map[string]*FileResult) map[string]any {
	var totalLines, maxLongest int
	var densitySum float64
	for _, fr := range files {
		if lines, ok := fr.Metrics["lines"].(int); ok {
			totalLines += lines
		}
		if longest, ok := fr.Metrics["longestLine"].(int); ok && longest > maxLongest {
			maxLongest = longest
		}
		if density, ok := fr.Metrics["commentDensity"].(float64); ok {
			densitySum += density
		}
	}
	avgDensity := 0.0
	if len(files) > 0 {
		avgDensity = densitySum / float64(len(files))
	}
	return map[string]any{
		"totalLines":            totalLines,
		"maxLongestLine":        maxLongest,
		"averageCommentDensity": avgDensity,
		"fileCount":             len(files),
	}
}
