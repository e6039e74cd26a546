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

// docCommentPrefixes recognizes the doc-comment leader for each language
// the plugin registry can see; a declaration line immediately preceded
// by one of these is considered documented.
var docCommentPrefixes = []string{"///", "//", "#", "*", "\"\"\""}

// declarationKeywords is the conservative, cross-language set of tokens
// that mark a top-level declaration worth checking for a leading comment.
var declarationKeywords = []string{"func ", "type ", "class ", "def ", "fn ", "pub fn ", "export function ", "export class ", "interface "}

// analyzeDocumentation reports, per file, the fraction of top-level
// declarations immediately preceded by a comment line.
func (s *Service) analyzeDocumentation(scope Scope) (*Result, error) {
	files, err := s.scopeFiles(scope)
	if err != nil {
		return nil, err
	}

	result := newResult(KindDocumentation)
	var totalDecls, totalDocumented int

	for _, f := range files {
		fr := result.file(f)
		content, err := s.files.Read(f)
		if err != nil {
			fr.Diagnostics = append(fr.Diagnostics, errorDiagnostic("could not read file: "+err.Error()))
			continue
		}
		decls, documented := countDocumentedDeclarations(content)
		fr.Metrics["declarations"] = decls
		fr.Metrics["documented"] = documented
		if decls > 0 {
			fr.Metrics["coverage"] = float64(documented) / float64(decls)
		}
		totalDecls += decls
		totalDocumented += documented
	}

	if totalDecls > 0 {
		result.Summary["coverage"] = float64(totalDocumented) / float64(totalDecls)
	}
	result.Summary["declarations"] = totalDecls
	result.Summary["documented"] = totalDocumented
	return result, nil
}

func countDocumentedDeclarations(content string) (decls int, documented int) {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		isDecl := false
		for _, kw := range declarationKeywords {
			if strings.HasPrefix(trimmed, kw) {
				isDecl = true
				break
			}
		}
		if !isDecl {
			continue
		}
		decls++
		if i > 0 && hasDocCommentPrefix(strings.TrimSpace(lines[i-1])) {
			documented++
		}
	}
	return decls, documented
}

func hasDocCommentPrefix(line string) bool {
	for _, p := range docCommentPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
