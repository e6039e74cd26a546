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

package langgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/proto"
)

func TestParseImports(t *testing.T) {
	src := `package foo

import (
	"fmt"
	other "example.com/mod/pkg"
	_ "example.com/mod/sideeffect"
)

func Foo() { fmt.Println(other.Bar()) }
`
	p := New()
	graph, err := p.ParseImports("foo.go", src)
	require.NoError(t, err)
	require.Len(t, graph.Imports, 3)

	byTarget := map[string]proto.Import{}
	for _, imp := range graph.Imports {
		byTarget[imp.Target] = imp
	}

	fmtImport, ok := byTarget["fmt"]
	require.True(t, ok)
	assert.Equal(t, proto.ImportDefault, fmtImport.Kind)

	aliased, ok := byTarget["example.com/mod/pkg"]
	require.True(t, ok)
	assert.Equal(t, proto.ImportNamed, aliased.Kind)
	assert.Equal(t, "other", aliased.Alias)

	sideEffect, ok := byTarget["example.com/mod/sideeffect"]
	require.True(t, ok)
	assert.Equal(t, proto.ImportNamespace, sideEffect.Kind)
}

func TestManifestEditDependency_RenameRewritesRequireAndReplace(t *testing.T) {
	manifest := `module example.com/app

go 1.22

require example.com/old v1.2.3

replace example.com/old => ../old
`
	p := New()
	out, err := p.ManifestEditDependency(manifest, pluginapi.DependencyEdit{
		Op:      pluginapi.OpRenameDependency,
		OldName: "example.com/old",
		NewName: "example.com/new",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "example.com/new v1.2.3")
	assert.NotContains(t, out, "example.com/old v1.2.3")
	assert.Contains(t, out, "example.com/new => ../old")
}

func TestManifestEditDependency_AddAndRemove(t *testing.T) {
	p := New()
	base := "module example.com/app\n\ngo 1.22\n"

	added, err := p.ManifestEditDependency(base, pluginapi.DependencyEdit{
		Op:      pluginapi.OpAddDependency,
		NewName: "example.com/extra",
	})
	require.NoError(t, err)
	assert.Contains(t, added, "example.com/extra")

	removed, err := p.ManifestEditDependency(added, pluginapi.DependencyEdit{
		Op:      pluginapi.OpRemoveDependency,
		OldName: "example.com/extra",
	})
	require.NoError(t, err)
	assert.NotContains(t, removed, "example.com/extra")
}

func TestEntryFileRules_GoHasNoExplicitDeclaration(t *testing.T) {
	rules := New().EntryFileRules()
	assert.Equal(t, "", rules.EntryFileName)
	assert.Equal(t, "foo.go", rules.SubmoduleEntryName("foo"))
	assert.Equal(t, "", rules.ModuleDeclaration("foo"))
}

func TestExtensionsAndName(t *testing.T) {
	p := New()
	assert.Equal(t, "go", p.Name())
	assert.Equal(t, []string{".go"}, p.Extensions())
	assert.Equal(t, "go.mod", p.ManifestFileName())
}
