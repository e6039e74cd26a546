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

package refactor

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy.dev/codebuddy/internal/fileservice"
	"codebuddy.dev/codebuddy/internal/platform"
	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/plugins"
	"codebuddy.dev/codebuddy/internal/proto"
)

// fakePlugin is a minimal test-only plugin for ".fk" files: each import
// line looks like `import "target"` and the manifest is a flat
// "name = value" line format.
type fakePlugin struct{}

func (fakePlugin) Name() string          { return "fake" }
func (fakePlugin) Extensions() []string  { return []string{".fk"} }
func (fakePlugin) ManifestFileName() string { return "fake.manifest" }

func (fakePlugin) ParseImports(path string, content string) (proto.ImportGraph, error) {
	graph := proto.ImportGraph{SourceFile: path}
	for lineNo, line := range strings.Split(content, "\n") {
		const prefix = `import "`
		idx := strings.Index(line, prefix)
		if idx < 0 {
			continue
		}
		start := idx + len(prefix)
		end := strings.Index(line[start:], `"`)
		if end < 0 {
			continue
		}
		target := line[start : start+end]
		graph.Imports = append(graph.Imports, proto.Import{
			Target: target,
			Kind:   proto.ImportNamed,
			Quote:  '"',
			Location: proto.Range{
				Start: proto.Position{Line: uint32(lineNo), Character: uint32(start)},
				End:   proto.Position{Line: uint32(lineNo), Character: uint32(start + end)},
			},
		})
	}
	return graph, nil
}

func (fakePlugin) ManifestEditDependency(content string, edit pluginapi.DependencyEdit) (string, error) {
	// Only whole comma-separated values are renamed; keys are left alone.
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		key, value, ok := strings.Cut(line, " = ")
		if !ok {
			continue
		}
		values := strings.Split(value, ", ")
		for j, v := range values {
			if v == edit.OldName {
				values[j] = edit.NewName
			}
		}
		lines[i] = key + " = " + strings.Join(values, ", ")
	}
	return strings.Join(lines, "\n"), nil
}

func (fakePlugin) EntryFileRules() pluginapi.EntryFileRules { return pluginapi.EntryFileRules{} }
func (fakePlugin) RefactorPrimitives() []pluginapi.RefactorPrimitive { return nil }

func newTestPlanner(t *testing.T, files map[string]string) (*Planner, *platform.MapFS) {
	t.Helper()
	mapfs := platform.NewMapFS(map[string]string{})
	for path, content := range files {
		require.NoError(t, mapfs.WriteFile(path, []byte(content), 0o644))
	}
	svc := fileservice.New(mapfs, nil, nil)
	registry, err := plugins.NewRegistry(fakePlugin{})
	require.NoError(t, err)
	return NewPlanner(registry, nil, svc, "."), mapfs
}

func TestMovesForPathRename_Directory(t *testing.T) {
	planner, _ := newTestPlanner(t, map[string]string{
		"old/a.fk": "package a",
		"old/b.fk": "package b",
	})
	ops, err := planner.movesForPathRename("old", "new")
	require.NoError(t, err)
	require.Len(t, ops, 2)
	for _, op := range ops {
		assert.Equal(t, proto.PlanOpMove, op.Kind)
		assert.True(t, strings.HasPrefix(op.NewPath, "new/"))
	}
}

func TestMovesForPathRename_File(t *testing.T) {
	planner, _ := newTestPlanner(t, map[string]string{"a.fk": "x"})
	ops, err := planner.movesForPathRename("a.fk", "b.fk")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "a.fk", ops[0].Path)
	assert.Equal(t, "b.fk", ops[0].NewPath)
}

func TestRewriteImportsForRename_RelativeImport(t *testing.T) {
	planner, _ := newTestPlanner(t, map[string]string{
		"old/lib.fk":    "package lib",
		"consumer.fk":   "import \"./old/lib\"\n",
	})
	ops, _, err := planner.rewriteImportsForRename(context.Background(), []pathRename{{"old", "new"}})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "consumer.fk", ops[0].Path)
	require.Len(t, ops[0].Edits, 1)
	assert.Equal(t, "./new/lib", ops[0].Edits[0].NewText)
}

func TestManifestUpdatesForRenames(t *testing.T) {
	// The package's own manifest is read and edited at its pre-move path:
	// apply_edit_plan applies text edits before moves.
	planner, _ := newTestPlanner(t, map[string]string{
		"old/fake.manifest": "name = old\nversion = 1\n",
	})
	updates, err := planner.manifestUpdatesForRenames([]pathRename{{"old", "new"}})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "old/fake.manifest", updates[0].ManifestPath)
	assert.Contains(t, updates[0].Edits[0].NewText, "name = new")
}

func TestManifestUpdatesForRenames_WorkspaceRootMergedAcrossTargets(t *testing.T) {
	// Two package renames both touch the workspace-root manifest; they
	// must accumulate into a single update rather than two overlapping
	// whole-file edits.
	planner, _ := newTestPlanner(t, map[string]string{
		"fake.manifest": "members = a, b\n",
	})
	updates, err := planner.manifestUpdatesForRenames([]pathRename{
		{"crates/a", "crates/x"},
		{"crates/b", "crates/y"},
	})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "fake.manifest", updates[0].ManifestPath)
	if diff := cmp.Diff("members = x, y\n", updates[0].Edits[0].NewText); diff != "" {
		t.Errorf("merged manifest update mismatch (-want +got):\n%s", diff)
	}
}
