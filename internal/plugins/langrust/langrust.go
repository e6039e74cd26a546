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

// Package langrust is the Rust language plugin: import (`use`) parsing via
// tree-sitter-rust, and Cargo.toml editing via BurntSushi/toml, including
// the three-location dependency rename Cargo layouts need: dependency
// tables, feature string references, and workspace members.
package langrust

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/plugins/tsutil"
	"codebuddy.dev/codebuddy/internal/proto"
)

var language = tree_sitter.NewLanguage(tree_sitter_rust.Language())

const importQuery = `
(use_declaration
  argument: (_) @path) @spec
`

// Plugin is the Rust language plugin.
type Plugin struct{}

// New constructs the Rust plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "rust" }

func (p *Plugin) Extensions() []string { return []string{".rs"} }

func (p *Plugin) ManifestFileName() string { return "Cargo.toml" }

func (p *Plugin) ParseImports(path string, content string) (proto.ImportGraph, error) {
	src := []byte(content)
	tree, err := tsutil.Parse(language, src)
	if err != nil {
		return proto.ImportGraph{}, fmt.Errorf("langrust: parse %s: %w", path, err)
	}
	defer tree.Close()

	matches, err := tsutil.QueryMatches(language, tree.RootNode(), src, importQuery)
	if err != nil {
		return proto.ImportGraph{}, fmt.Errorf("langrust: query %s: %w", path, err)
	}

	graph := proto.ImportGraph{SourceFile: path}
	for _, caps := range matches {
		var pathCap, specCap *tsutil.Capture
		for i := range caps {
			switch caps[i].Name {
			case "path":
				pathCap = &caps[i]
			case "spec":
				specCap = &caps[i]
			}
		}
		if pathCap == nil || specCap == nil {
			continue
		}
		kind := proto.ImportNamed
		if strings.Contains(pathCap.Text, "::*") {
			kind = proto.ImportNamespace
		}
		graph.Imports = append(graph.Imports, proto.Import{
			Target:   pathCap.Text,
			Kind:     kind,
			Location: tsutil.ByteRangeToRange(src, specCap.StartByte, specCap.EndByte),
		})
	}
	return graph, nil
}

type cargoDoc map[string]any

// ManifestEditDependency implements the three-table Cargo rename:
// [dependencies]/[dev-dependencies]/[build-dependencies] entries, string
// elements in [features] matching the old name or "old/feature", and
// workspace members/dependencies.
func (p *Plugin) ManifestEditDependency(manifestContent string, edit pluginapi.DependencyEdit) (string, error) {
	var doc cargoDoc
	if _, err := toml.Decode(manifestContent, &doc); err != nil {
		return "", fmt.Errorf("langrust: decode Cargo.toml: %w", err)
	}

	switch edit.Op {
	case pluginapi.OpRenameDependency:
		for _, table := range []string{"dependencies", "dev-dependencies", "build-dependencies"} {
			renameDependencyTableEntry(doc, table, edit.OldName, edit.NewName)
		}
		renameFeatureReferences(doc, edit.OldName, edit.NewName)
		renameWorkspaceReferences(doc, edit.OldName, edit.NewName, edit.Path)
	case pluginapi.OpAddDependency:
		deps := ensureTable(doc, "dependencies")
		entry := map[string]any{}
		if edit.Path != "" {
			entry["path"] = edit.Path
		}
		if edit.Optional {
			entry["optional"] = true
		}
		deps[edit.NewName] = entry
	case pluginapi.OpRemoveDependency:
		for _, table := range []string{"dependencies", "dev-dependencies", "build-dependencies"} {
			if t, ok := doc[table].(map[string]any); ok {
				delete(t, edit.OldName)
			}
		}
	case pluginapi.OpAddWorkspaceMember:
		ws := ensureTable(doc, "workspace")
		members, _ := ws["members"].([]any)
		doc["workspace"].(map[string]any)["members"] = append(members, edit.Path)
	case pluginapi.OpRemoveWorkspaceMember:
		ws, _ := doc["workspace"].(map[string]any)
		if ws != nil {
			members, _ := ws["members"].([]any)
			kept := make([]any, 0, len(members))
			for _, m := range members {
				if s, ok := m.(string); ok && s != edit.Path {
					kept = append(kept, m)
				}
			}
			ws["members"] = kept
		}
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("langrust: encode Cargo.toml: %w", err)
	}
	return buf.String(), nil
}

func ensureTable(doc cargoDoc, key string) map[string]any {
	t, _ := doc[key].(map[string]any)
	if t == nil {
		t = map[string]any{}
		doc[key] = t
	}
	return t
}

func renameDependencyTableEntry(doc cargoDoc, table, oldName, newName string) {
	t, ok := doc[table].(map[string]any)
	if !ok {
		return
	}
	v, ok := t[oldName]
	if !ok {
		return
	}
	delete(t, oldName)
	if m, ok := v.(map[string]any); ok {
		if p, ok := m["path"].(string); ok {
			m["path"] = renamePathTail(p, oldName, newName)
		}
	}
	t[newName] = v
}

// renamePathTail replaces a trailing "../oldName" path component with
// "../newName", preserving everything before it.
func renamePathTail(path, oldName, newName string) string {
	suffix := "/" + oldName
	if strings.HasSuffix(path, suffix) {
		return strings.TrimSuffix(path, suffix) + "/" + newName
	}
	if path == oldName {
		return newName
	}
	return path
}

func renameFeatureReferences(doc cargoDoc, oldName, newName string) {
	features, ok := doc["features"].(map[string]any)
	if !ok {
		return
	}
	for key, v := range features {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				continue
			}
			switch {
			case s == oldName:
				list[i] = newName
			case strings.HasPrefix(s, oldName+"/"):
				list[i] = newName + strings.TrimPrefix(s, oldName)
			}
		}
		features[key] = list
	}
}

func renameWorkspaceReferences(doc cargoDoc, oldName, newName, newPath string) {
	ws, ok := doc["workspace"].(map[string]any)
	if !ok {
		return
	}
	if members, ok := ws["members"].([]any); ok {
		for i, m := range members {
			if s, ok := m.(string); ok && strings.HasSuffix(s, "/"+oldName) {
				members[i] = strings.TrimSuffix(s, "/"+oldName) + "/" + newName
			}
		}
		ws["members"] = members
	}
	if deps, ok := ws["dependencies"].(map[string]any); ok {
		renameDependencyTableEntry(cargoDoc{"dependencies": deps}, "dependencies", oldName, newName)
		_ = newPath
	}
}

func (p *Plugin) EntryFileRules() pluginapi.EntryFileRules {
	return pluginapi.EntryFileRules{
		EntryFileName: "lib.rs",
		SubmoduleEntryName: func(moduleName string) string {
			return moduleName + ".rs"
		},
		ModuleDeclaration: func(moduleName string) string {
			return fmt.Sprintf("pub mod %s;", moduleName)
		},
	}
}

func (p *Plugin) RefactorPrimitives() []pluginapi.RefactorPrimitive { return nil }
