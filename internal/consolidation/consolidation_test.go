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

package consolidation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy.dev/codebuddy/internal/fileservice"
	"codebuddy.dev/codebuddy/internal/platform"
	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/plugins"
	"codebuddy.dev/codebuddy/internal/proto"
	"codebuddy.dev/codebuddy/internal/refactor"
)

// fakeRustLike is a minimal test-only plugin modeling Rust's entry-file
// and manifest conventions: "lib.rs" per package root, renamed to
// "<name>.rs" on consolidation, declared via "pub mod <name>;".
type fakeRustLike struct{}

func (fakeRustLike) Name() string            { return "fake-rust" }
func (fakeRustLike) Extensions() []string    { return []string{".rs"} }
func (fakeRustLike) ManifestFileName() string { return "Cargo.toml" }

func (fakeRustLike) ParseImports(path string, content string) (proto.ImportGraph, error) {
	graph := proto.ImportGraph{SourceFile: path}
	for lineNo, line := range strings.Split(content, "\n") {
		const prefix = "use "
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, prefix) {
			continue
		}
		target := strings.TrimSuffix(strings.TrimPrefix(trimmed, prefix), ";")
		start := strings.Index(line, target)
		if start < 0 {
			continue
		}
		graph.Imports = append(graph.Imports, proto.Import{
			Target: target,
			Kind:   proto.ImportNamed,
			Location: proto.Range{
				Start: proto.Position{Line: uint32(lineNo), Character: uint32(start)},
				End:   proto.Position{Line: uint32(lineNo), Character: uint32(start + len(target))},
			},
		})
	}
	return graph, nil
}

func (fakeRustLike) ManifestEditDependency(content string, edit pluginapi.DependencyEdit) (string, error) {
	switch edit.Op {
	case pluginapi.OpRemoveWorkspaceMember:
		lines := strings.Split(content, "\n")
		out := lines[:0]
		for _, l := range lines {
			if strings.Contains(l, edit.Path) {
				continue
			}
			out = append(out, l)
		}
		return strings.Join(out, "\n"), nil
	case pluginapi.OpAddDependency:
		return content + edit.NewName + " = { path = \"" + edit.Path + "\" }\n", nil
	default:
		return content, nil
	}
}

func (fakeRustLike) EntryFileRules() pluginapi.EntryFileRules {
	return pluginapi.EntryFileRules{
		EntryFileName:      "lib.rs",
		SubmoduleEntryName: func(name string) string { return name + ".rs" },
		ModuleDeclaration:  func(name string) string { return "pub mod " + name + ";" },
	}
}

func (fakeRustLike) RefactorPrimitives() []pluginapi.RefactorPrimitive { return nil }

// newTestWorkspace wires a Pipeline into a real file service over an
// in-memory filesystem; consolidation runs as it does in production,
// as the post-processing hook of an ApplyEditPlan call.
func newTestWorkspace(t *testing.T, files map[string]string) (*fileservice.Service, *Pipeline, *platform.MapFS) {
	t.Helper()
	mapfs := platform.NewMapFS(map[string]string{})
	for path, content := range files {
		require.NoError(t, mapfs.WriteFile(path, []byte(content), 0o644))
	}
	svc := fileservice.New(mapfs, nil, nil)
	registry, err := plugins.NewRegistry(fakeRustLike{})
	require.NoError(t, err)
	planner := refactor.NewPlanner(registry, nil, svc, ".")
	pipeline := New(registry, planner, ".")
	svc.SetConsolidator(pipeline)
	return svc, pipeline, mapfs
}

func consolidationMeta() *proto.ConsolidationMetadata {
	return &proto.ConsolidationMetadata{
		SourceCrate:      "a",
		TargetCrate:      "b",
		TargetModule:     "a",
		SourcePath:       "crates/a",
		TargetPath:       "crates/b",
		TargetModulePath: "crates/b/a",
	}
}

func TestConsolidate_FlattenRenameAndDeclare(t *testing.T) {
	svc, _, mapfs := newTestWorkspace(t, map[string]string{
		"crates/b/src/lib.rs":   "pub mod existing;\n",
		"crates/b/Cargo.toml":   "[dependencies]\n",
		"crates/a/src/lib.rs":   "pub fn hello() {}\n",
		"crates/a/Cargo.toml":   "[dependencies]\n",
		"Cargo.toml":            "members = [\n\"crates/a\",\n\"crates/b\",\n]\n",
	})

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpMove, Path: "crates/a/src/lib.rs", NewPath: "crates/b/a/src/lib.rs"},
			{Kind: proto.PlanOpMove, Path: "crates/a/Cargo.toml", NewPath: "crates/b/a/Cargo.toml"},
		},
		Metadata: proto.PlanMetadata{
			PlanType:      "consolidate",
			Language:      "fake-rust",
			Consolidation: consolidationMeta(),
		},
	}

	_, err := svc.ApplyEditPlan(context.Background(), plan)
	require.NoError(t, err)

	// the submodule's own manifest is gone
	assert.False(t, mapfs.Exists("crates/b/a/Cargo.toml"))
	// nested layout flattened, then the entry file renamed and moved up
	// into the destination's src/
	content, err := mapfs.ReadFile("crates/b/src/a.rs")
	require.NoError(t, err)
	assert.Contains(t, string(content), "pub fn hello")
	// destination's own entry file now declares the submodule
	destEntry, err := mapfs.ReadFile("crates/b/src/lib.rs")
	require.NoError(t, err)
	assert.Contains(t, string(destEntry), "pub mod a;")
	assert.Contains(t, string(destEntry), "pub mod existing;")
	// workspace manifest: source dropped from members, destination added
	// as a path dependency
	rootManifest, err := mapfs.ReadFile("Cargo.toml")
	require.NoError(t, err)
	assert.NotContains(t, string(rootManifest), "crates/a")
	assert.Contains(t, string(rootManifest), `b = { path = "crates/b" }`)
}

func TestConsolidate_SelfImportCorrection(t *testing.T) {
	svc, _, mapfs := newTestWorkspace(t, map[string]string{
		"crates/b/src/lib.rs": "pub mod existing;\n",
		"crates/b/Cargo.toml": "[dependencies]\n",
		"crates/a/mod.rs":     "use b::existing;\nfn f() {}\n",
	})

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpMove, Path: "crates/a/mod.rs", NewPath: "crates/b/a/mod.rs"},
		},
		Metadata: proto.PlanMetadata{
			PlanType:      "consolidate",
			Language:      "fake-rust",
			Consolidation: consolidationMeta(),
		},
	}

	_, err := svc.ApplyEditPlan(context.Background(), plan)
	require.NoError(t, err)

	content, err := mapfs.ReadFile("crates/b/a/mod.rs")
	require.NoError(t, err)
	assert.Contains(t, string(content), "use crate::existing;")
	assert.NotContains(t, string(content), "use b::existing;")
}

func TestConsolidate_MissingMetadataFails(t *testing.T) {
	_, pipeline, _ := newTestWorkspace(t, nil)
	err := pipeline.Consolidate(context.Background(), &proto.EditPlan{}, nil)
	require.Error(t, err)
}
