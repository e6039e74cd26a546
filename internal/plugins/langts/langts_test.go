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

package langts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/proto"
)

func TestParseImports_ClassifiesEachForm(t *testing.T) {
	src := `import defaultExport from "./foo";
import * as ns from "./bar";
import { a, b } from "./baz";
export * from "./qux";
`
	p := New()
	graph, err := p.ParseImports("foo.ts", src)
	require.NoError(t, err)
	require.Len(t, graph.Imports, 4)

	byTarget := map[string]proto.Import{}
	for _, imp := range graph.Imports {
		byTarget[imp.Target] = imp
	}

	assert.Equal(t, proto.ImportDefault, byTarget["./foo"].Kind)
	assert.Equal(t, proto.ImportNamespace, byTarget["./bar"].Kind)
	assert.Equal(t, proto.ImportNamed, byTarget["./baz"].Kind)
	assert.Equal(t, proto.ImportReExport, byTarget["./qux"].Kind)
}

func TestManifestEditDependency_RenameAddRemove(t *testing.T) {
	p := New()
	base := `{"name":"app","dependencies":{"example-old":"^1.0.0"}}`

	renamed, err := p.ManifestEditDependency(base, pluginapi.DependencyEdit{
		Op:      pluginapi.OpRenameDependency,
		OldName: "example-old",
		NewName: "example-new",
	})
	require.NoError(t, err)
	assert.Contains(t, renamed, `"example-new":"^1.0.0"`)
	assert.NotContains(t, renamed, "example-old")

	added, err := p.ManifestEditDependency(renamed, pluginapi.DependencyEdit{
		Op:      pluginapi.OpAddDependency,
		NewName: "example-extra",
	})
	require.NoError(t, err)
	assert.Contains(t, added, `"example-extra":"workspace:*"`)

	removed, err := p.ManifestEditDependency(added, pluginapi.DependencyEdit{
		Op:      pluginapi.OpRemoveDependency,
		OldName: "example-extra",
	})
	require.NoError(t, err)
	assert.NotContains(t, removed, "example-extra")
}

func TestManifestEditDependency_PnpmWorkspaceYAML(t *testing.T) {
	p := New()
	base := "packages:\n  - packages/old-pkg\n  - packages/other\n"

	renamed, err := p.ManifestEditDependency(base, pluginapi.DependencyEdit{
		Op:      pluginapi.OpRenameDependency,
		OldName: "old-pkg",
		NewName: "new-pkg",
	})
	require.NoError(t, err)
	assert.Contains(t, renamed, "packages/new-pkg")
	assert.NotContains(t, renamed, "packages/old-pkg")
	assert.Contains(t, renamed, "packages/other")

	removed, err := p.ManifestEditDependency(renamed, pluginapi.DependencyEdit{
		Op:   pluginapi.OpRemoveWorkspaceMember,
		Path: "packages/other",
	})
	require.NoError(t, err)
	assert.NotContains(t, removed, "packages/other")
}

func TestEntryFileRules(t *testing.T) {
	rules := New().EntryFileRules()
	assert.Equal(t, "index.ts", rules.EntryFileName)
	assert.Equal(t, "foo.ts", rules.SubmoduleEntryName("foo"))
	assert.Equal(t, "export * from './foo.js';", rules.ModuleDeclaration("foo"))
}

func TestExtensionsAndName(t *testing.T) {
	p := New()
	assert.Equal(t, "typescript", p.Name())
	assert.Contains(t, p.Extensions(), ".tsx")
	assert.Equal(t, "package.json", p.ManifestFileName())
}
