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

// Package langpython is the Python language plugin: import parsing via
// tree-sitter-python, and pyproject.toml editing via BurntSushi/toml.
package langpython

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/plugins/tsutil"
	"codebuddy.dev/codebuddy/internal/proto"
)

var language = tree_sitter.NewLanguage(tree_sitter_python.Language())

const importQuery = `
[
  (import_statement
    name: (dotted_name) @module) @spec
  (import_from_statement
    module_name: (dotted_name) @module) @spec
]
`

// Plugin is the Python language plugin.
type Plugin struct{}

// New constructs the Python plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "python" }

func (p *Plugin) Extensions() []string { return []string{".py", ".pyi"} }

func (p *Plugin) ManifestFileName() string { return "pyproject.toml" }

func (p *Plugin) ParseImports(path string, content string) (proto.ImportGraph, error) {
	src := []byte(content)
	tree, err := tsutil.Parse(language, src)
	if err != nil {
		return proto.ImportGraph{}, fmt.Errorf("langpython: parse %s: %w", path, err)
	}
	defer tree.Close()

	matches, err := tsutil.QueryMatches(language, tree.RootNode(), src, importQuery)
	if err != nil {
		return proto.ImportGraph{}, fmt.Errorf("langpython: query %s: %w", path, err)
	}

	graph := proto.ImportGraph{SourceFile: path}
	for _, caps := range matches {
		var moduleCap, specCap *tsutil.Capture
		for i := range caps {
			switch caps[i].Name {
			case "module":
				moduleCap = &caps[i]
			case "spec":
				specCap = &caps[i]
			}
		}
		if moduleCap == nil || specCap == nil {
			continue
		}
		kind := proto.ImportDefault
		if string(src[specCap.StartByte]) != "i" { // "from" form vs "import" form
			kind = proto.ImportNamed
		}
		graph.Imports = append(graph.Imports, proto.Import{
			Target:   moduleCap.Text,
			Kind:     kind,
			Location: tsutil.ByteRangeToRange(src, specCap.StartByte, specCap.EndByte),
			Quote:    0,
		})
	}
	return graph, nil
}

// pyprojectDoc is a minimal structural view of the PEP 621 /
// Poetry-flavoured sections this plugin edits; unrecognized keys survive
// round-trips because toml.Decode into a generic map preserves them.
type pyprojectDoc map[string]any

func (p *Plugin) ManifestEditDependency(manifestContent string, edit pluginapi.DependencyEdit) (string, error) {
	var doc pyprojectDoc
	if _, err := toml.Decode(manifestContent, &doc); err != nil {
		return "", fmt.Errorf("langpython: decode pyproject.toml: %w", err)
	}

	project, _ := doc["project"].(map[string]any)
	if project == nil {
		project = map[string]any{}
		doc["project"] = project
	}
	deps, _ := project["dependencies"].([]any)

	switch edit.Op {
	case pluginapi.OpRenameDependency:
		for i, d := range deps {
			if name, ok := d.(string); ok && dependencyName(name) == edit.OldName {
				deps[i] = edit.NewName + dependencySuffix(name)
			}
		}
		project["dependencies"] = deps
	case pluginapi.OpAddDependency:
		spec := edit.NewName
		if edit.Path != "" {
			spec = fmt.Sprintf("%s @ file://%s", edit.NewName, edit.Path)
		}
		project["dependencies"] = append(deps, spec)
	case pluginapi.OpRemoveDependency:
		kept := make([]any, 0, len(deps))
		for _, d := range deps {
			if name, ok := d.(string); ok && dependencyName(name) == edit.OldName {
				continue
			}
			kept = append(kept, d)
		}
		project["dependencies"] = kept
	case pluginapi.OpAddWorkspaceMember, pluginapi.OpRemoveWorkspaceMember:
		tool, _ := doc["tool"].(map[string]any)
		if tool == nil {
			tool = map[string]any{}
			doc["tool"] = tool
		}
		uv, _ := tool["uv"].(map[string]any)
		if uv == nil {
			uv = map[string]any{}
			tool["uv"] = uv
		}
		workspace, _ := uv["workspace"].(map[string]any)
		if workspace == nil {
			workspace = map[string]any{}
			uv["workspace"] = workspace
		}
		members, _ := workspace["members"].([]any)
		if edit.Op == pluginapi.OpAddWorkspaceMember {
			workspace["members"] = append(members, edit.Path)
		} else {
			kept := make([]any, 0, len(members))
			for _, m := range members {
				if s, ok := m.(string); ok && s != edit.Path {
					kept = append(kept, m)
				}
			}
			workspace["members"] = kept
		}
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("langpython: encode pyproject.toml: %w", err)
	}
	return buf.String(), nil
}

func dependencyName(spec string) string {
	for i, r := range spec {
		switch r {
		case '=', '<', '>', '!', '~', '[', ' ', '@':
			return spec[:i]
		}
	}
	return spec
}

func dependencySuffix(spec string) string {
	name := dependencyName(spec)
	return spec[len(name):]
}

func (p *Plugin) EntryFileRules() pluginapi.EntryFileRules {
	return pluginapi.EntryFileRules{
		EntryFileName: "__init__.py",
		SubmoduleEntryName: func(moduleName string) string {
			return moduleName + ".py"
		},
		ModuleDeclaration: func(moduleName string) string {
			return fmt.Sprintf("from . import %s", moduleName)
		},
	}
}

func (p *Plugin) RefactorPrimitives() []pluginapi.RefactorPrimitive { return nil }
