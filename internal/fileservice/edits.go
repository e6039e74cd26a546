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

package fileservice

import (
	"sort"
	"strings"

	"codebuddy.dev/codebuddy/internal/proto"
)

// splitLines splits content into lines without their terminating "\n", the
// same convention positionToOffset and lineLength below use to locate a
// Position within content.
func splitLines(content string) []string {
	return strings.Split(content, "\n")
}

// lineLength returns the rune length of the given 0-based line, or -1 if
// line is out of range. "Character" throughout this package is a rune
// count, the same approximation internal/plugins/tsutil uses for LSP
// positions rather than true UTF-16 code units.
func lineLength(lines []string, line uint32) int {
	if int(line) >= len(lines) {
		return -1
	}
	return len([]rune(lines[line]))
}

// positionToOffset converts pos into a byte offset within content. Callers
// must have already validated pos against lineLength.
func positionToOffset(content string, lines []string, pos proto.Position) int {
	offset := 0
	for i := uint32(0); i < pos.Line; i++ {
		offset += len(lines[i]) + 1 // +1 for the newline dropped by Split
	}
	line := lines[pos.Line]
	runes := []rune(line)
	n := int(pos.Character)
	if n > len(runes) {
		n = len(runes)
	}
	offset += len(string(runes[:n]))
	return offset
}

// applyTextEdits applies edits to content in the canonical order for
// multi-edit documents: descending by Range.Start, so earlier offsets
// are never invalidated by a later (in document order) edit applied
// first.
func applyTextEdits(content string, edits []proto.TextEdit) string {
	if len(edits) == 0 {
		return content
	}
	sorted := append([]proto.TextEdit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[j].Range.Before(sorted[i].Range)
	})

	out := content
	for _, e := range sorted {
		lines := splitLines(out)
		start := positionToOffset(out, lines, e.Range.Start)
		end := positionToOffset(out, lines, e.Range.End)
		out = out[:start] + e.NewText + out[end:]
	}
	return out
}

// overlappingEdits reports whether any two ranges in edits overlap, the validation
// rule that fails planning/apply with ConflictingEdits / ValidationFailed.
func overlappingEdits(edits []proto.TextEdit) bool {
	for i := 0; i < len(edits); i++ {
		for j := i + 1; j < len(edits); j++ {
			if edits[i].Range.Overlaps(edits[j].Range) {
				return true
			}
		}
	}
	return false
}
