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

package langpython

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/proto"
)

func TestParseImports_ImportAndFromForms(t *testing.T) {
	src := "import os\nfrom sys import path\n"
	p := New()
	graph, err := p.ParseImports("foo.py", src)
	require.NoError(t, err)
	require.Len(t, graph.Imports, 2)

	byTarget := map[string]proto.Import{}
	for _, imp := range graph.Imports {
		byTarget[imp.Target] = imp
	}

	os, ok := byTarget["os"]
	require.True(t, ok)
	assert.Equal(t, proto.ImportDefault, os.Kind)

	sys, ok := byTarget["sys"]
	require.True(t, ok)
	assert.Equal(t, proto.ImportNamed, sys.Kind)
}

func TestManifestEditDependency_RenamePreservesVersionSpecifier(t *testing.T) {
	p := New()
	base := "[project]\ndependencies = [\"requests>=2.0\"]\n"

	renamed, err := p.ManifestEditDependency(base, pluginapi.DependencyEdit{
		Op:      pluginapi.OpRenameDependency,
		OldName: "requests",
		NewName: "httpx",
	})
	require.NoError(t, err)
	assert.Contains(t, renamed, "httpx>=2.0")
	assert.NotContains(t, renamed, "requests")
}

func TestManifestEditDependency_AddAndRemove(t *testing.T) {
	p := New()
	base := "[project]\ndependencies = []\n"

	added, err := p.ManifestEditDependency(base, pluginapi.DependencyEdit{
		Op:      pluginapi.OpAddDependency,
		NewName: "flask",
	})
	require.NoError(t, err)
	assert.Contains(t, added, "flask")

	removed, err := p.ManifestEditDependency(added, pluginapi.DependencyEdit{
		Op:      pluginapi.OpRemoveDependency,
		OldName: "flask",
	})
	require.NoError(t, err)
	assert.NotContains(t, removed, "flask")
}

func TestEntryFileRules(t *testing.T) {
	rules := New().EntryFileRules()
	assert.Equal(t, "__init__.py", rules.EntryFileName)
	assert.Equal(t, "foo.py", rules.SubmoduleEntryName("foo"))
	assert.Equal(t, "from . import foo", rules.ModuleDeclaration("foo"))
}

func TestExtensionsAndName(t *testing.T) {
	p := New()
	assert.Equal(t, "python", p.Name())
	assert.Equal(t, []string{".py", ".pyi"}, p.Extensions())
	assert.Equal(t, "pyproject.toml", p.ManifestFileName())
}
