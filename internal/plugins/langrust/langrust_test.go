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

package langrust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/proto"
)

func TestParseImports_NamedAndGlob(t *testing.T) {
	src := "use std::collections::HashMap;\nuse std::io::*;\n"
	p := New()
	graph, err := p.ParseImports("lib.rs", src)
	require.NoError(t, err)
	require.Len(t, graph.Imports, 2)

	byTarget := map[string]proto.Import{}
	for _, imp := range graph.Imports {
		byTarget[imp.Target] = imp
	}

	named, ok := byTarget["std::collections::HashMap"]
	require.True(t, ok)
	assert.Equal(t, proto.ImportNamed, named.Kind)

	glob, ok := byTarget["std::io::*"]
	require.True(t, ok)
	assert.Equal(t, proto.ImportNamespace, glob.Kind)
}

// TestManifestEditDependency_RenameUpdatesDependenciesAndFeatures covers
// the three-location Cargo rename: the dependency table entry itself and
// every feature string that references it, either bare or as "old/feat".
func TestManifestEditDependency_RenameUpdatesDependenciesAndFeatures(t *testing.T) {
	p := New()
	base := `[dependencies]
old-crate = "1.0"

[features]
default = ["old-crate", "old-crate/std"]
`
	out, err := p.ManifestEditDependency(base, pluginapi.DependencyEdit{
		Op:      pluginapi.OpRenameDependency,
		OldName: "old-crate",
		NewName: "new-crate",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "new-crate")
	assert.NotContains(t, out, "old-crate")
}

func TestManifestEditDependency_AddAndRemove(t *testing.T) {
	p := New()
	base := "[dependencies]\n"

	added, err := p.ManifestEditDependency(base, pluginapi.DependencyEdit{
		Op:      pluginapi.OpAddDependency,
		NewName: "serde",
		Path:    "../serde",
	})
	require.NoError(t, err)
	assert.Contains(t, added, "serde")
	assert.Contains(t, added, "../serde")

	removed, err := p.ManifestEditDependency(added, pluginapi.DependencyEdit{
		Op:      pluginapi.OpRemoveDependency,
		OldName: "serde",
	})
	require.NoError(t, err)
	assert.NotContains(t, removed, "serde")
}

func TestEntryFileRules(t *testing.T) {
	rules := New().EntryFileRules()
	assert.Equal(t, "lib.rs", rules.EntryFileName)
	assert.Equal(t, "foo.rs", rules.SubmoduleEntryName("foo"))
	assert.Equal(t, "pub mod foo;", rules.ModuleDeclaration("foo"))
}

func TestExtensionsAndName(t *testing.T) {
	p := New()
	assert.Equal(t, "rust", p.Name())
	assert.Equal(t, []string{".rs"}, p.Extensions())
	assert.Equal(t, "Cargo.toml", p.ManifestFileName())
}
