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

// Package tsutil wraps the small slice of github.com/tree-sitter/go-tree-sitter
// every language plugin needs: parse source into a tree, run a query over
// it, and translate byte offsets into the LSP line/character positions
// internal/proto uses everywhere else.
package tsutil

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"codebuddy.dev/codebuddy/internal/proto"
)

// Capture is one named capture from a single query match.
type Capture struct {
	Name string
	Text string
	// StartByte/EndByte locate Text within the original source.
	StartByte uint
	EndByte   uint
}

// Parse parses src with lang and returns the resulting tree. Callers must
// call tree.Close() when done with it.
func Parse(lang *tree_sitter.Language, src []byte) (*tree_sitter.Tree, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, err
	}
	return parser.Parse(src, nil), nil
}

// QueryMatches runs queryStr against root and returns one []Capture slice
// per match, using each query's own capture names.
func QueryMatches(lang *tree_sitter.Language, root *tree_sitter.Node, src []byte, queryStr string) ([][]Capture, error) {
	query, err := tree_sitter.NewQuery(lang, queryStr)
	if err != nil {
		return nil, err
	}
	defer query.Close()

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	names := query.CaptureNames()
	matches := cursor.Matches(query, root, src)

	var out [][]Capture
	for {
		m := matches.Next()
		if m == nil {
			break
		}
		row := make([]Capture, 0, len(m.Captures))
		for _, c := range m.Captures {
			node := c.Node
			row = append(row, Capture{
				Name:      names[c.Index],
				Text:      node.Utf8Text(src),
				StartByte: uint(node.StartByte()),
				EndByte:   uint(node.EndByte()),
			})
		}
		out = append(out, row)
	}
	return out, nil
}

// ByteRangeToRange converts a [startByte, endByte) span within src into an
// LSP-style proto.Range (0-based lines; Character is a rune count within
// the line, which equals the UTF-16 count only inside the Basic
// Multilingual Plane).
func ByteRangeToRange(src []byte, startByte, endByte uint) proto.Range {
	return proto.Range{
		Start: byteOffsetToPosition(src, startByte),
		End:   byteOffsetToPosition(src, endByte),
	}
}

func byteOffsetToPosition(src []byte, offset uint) proto.Position {
	text := string(src[:min(offset, uint(len(src)))])
	line := uint32(strings.Count(text, "\n"))
	lastNL := strings.LastIndexByte(text, '\n')
	var col string
	if lastNL == -1 {
		col = text
	} else {
		col = text[lastNL+1:]
	}
	return proto.Position{Line: line, Character: uint32(len([]rune(col)))}
}

func min(a, b uint) uint {
	if a < b {
		return a
	}
	return b
}

// StripQuotes removes a leading/trailing matching quote character (' " `)
// from a raw string-literal capture, returning the inner text and the
// quote byte used, so callers can re-quote a rewritten specifier the same
// way.
func StripQuotes(raw string) (inner string, quote byte) {
	if len(raw) >= 2 {
		first := raw[0]
		last := raw[len(raw)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			return raw[1 : len(raw)-1], first
		}
	}
	return raw, '"'
}
