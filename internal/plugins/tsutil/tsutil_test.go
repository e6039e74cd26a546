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

package tsutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codebuddy.dev/codebuddy/internal/proto"
)

func TestStripQuotes(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		wantInner string
		wantQuote byte
	}{
		{"double quoted", `"fmt"`, "fmt", '"'},
		{"single quoted", `'fmt'`, "fmt", '\''},
		{"backtick quoted", "`fmt`", "fmt", '`'},
		{"unquoted passes through", "fmt", "fmt", '"'},
		{"mismatched quote chars left alone", `"fmt'`, `"fmt'`, '"'},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			inner, quote := StripQuotes(c.raw)
			assert.Equal(t, c.wantInner, inner)
			assert.Equal(t, c.wantQuote, quote)
		})
	}
}

func TestByteRangeToRange(t *testing.T) {
	src := []byte("line one\nline two\nfoo")
	// "foo" starts at byte 18, on the third line (0-indexed: line 2), column 0.
	got := ByteRangeToRange(src, 18, 21)
	want := proto.Range{
		Start: proto.Position{Line: 2, Character: 0},
		End:   proto.Position{Line: 2, Character: 3},
	}
	assert.Equal(t, want, got)
}

func TestByteRangeToRange_FirstLine(t *testing.T) {
	src := []byte("import fmt")
	got := ByteRangeToRange(src, 7, 10)
	assert.Equal(t, uint32(0), got.Start.Line)
	assert.Equal(t, uint32(7), got.Start.Character)
}
