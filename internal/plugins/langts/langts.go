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

// Package langts is the TypeScript/JavaScript language plugin: import
// parsing via tree-sitter-typescript, and package.json editing via
// gjson (read) and sjson (write).
package langts

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	"gopkg.in/yaml.v3"

	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/plugins/tsutil"
	"codebuddy.dev/codebuddy/internal/proto"
)

var language = tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())

const importQuery = `
[
  (import_statement
    source: (string) @path) @spec
  (export_statement
    source: (string) @path) @spec
]
`

// Plugin is the TypeScript/JavaScript language plugin.
type Plugin struct{}

// New constructs the TypeScript plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "typescript" }

func (p *Plugin) Extensions() []string { return []string{".ts", ".tsx", ".mts", ".js", ".jsx", ".mjs"} }

func (p *Plugin) ManifestFileName() string { return "package.json" }

func (p *Plugin) ParseImports(path string, content string) (proto.ImportGraph, error) {
	src := []byte(content)
	tree, err := tsutil.Parse(language, src)
	if err != nil {
		return proto.ImportGraph{}, fmt.Errorf("langts: parse %s: %w", path, err)
	}
	defer tree.Close()

	matches, err := tsutil.QueryMatches(language, tree.RootNode(), src, importQuery)
	if err != nil {
		return proto.ImportGraph{}, fmt.Errorf("langts: query %s: %w", path, err)
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
		target, quote := tsutil.StripQuotes(pathCap.Text)
		kind := classifySpecText(string(src[specCap.StartByte:specCap.EndByte]))
		graph.Imports = append(graph.Imports, proto.Import{
			Target:   target,
			Kind:     kind,
			Location: tsutil.ByteRangeToRange(src, specCap.StartByte, specCap.EndByte),
			Quote:    quote,
		})
	}
	return graph, nil
}

// classifySpecText looks at the raw import/export statement text to tell
// a re-export (`export ... from`), a namespace import (`import * as x
// from`), a named import (any `{`) and a default import apart. It uses
// plain substring checks anywhere in the statement, in that order; a full
// parse tree walk over the statement's children would be more precise.
func classifySpecText(stmt string) proto.ImportKind {
	switch {
	case containsAll(stmt, "export", "from"):
		return proto.ImportReExport
	case containsAll(stmt, "import", "* as"):
		return proto.ImportNamespace
	case containsAll(stmt, "{"):
		return proto.ImportNamed
	default:
		return proto.ImportDefault
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func (p *Plugin) ManifestEditDependency(manifestContent string, edit pluginapi.DependencyEdit) (string, error) {
	// pnpm monorepos keep workspace membership in pnpm-workspace.yaml
	// rather than package.json's "workspaces" array; the same ops apply,
	// just against a YAML document.
	if isPnpmWorkspaceManifest(manifestContent) {
		return editPnpmWorkspace(manifestContent, edit)
	}

	doc := manifestContent
	var err error

	switch edit.Op {
	case pluginapi.OpRenameDependency:
		for _, section := range []string{"dependencies", "devDependencies", "peerDependencies", "optionalDependencies"} {
			result := gjson.Get(doc, section+"."+gjsonEscape(edit.OldName))
			if !result.Exists() {
				continue
			}
			doc, err = sjson.Set(doc, section+"."+gjsonEscape(edit.NewName), result.String())
			if err != nil {
				return "", err
			}
			doc, err = sjson.Delete(doc, section+"."+gjsonEscape(edit.OldName))
			if err != nil {
				return "", err
			}
		}
	case pluginapi.OpAddDependency:
		version := "workspace:*"
		if edit.Path != "" {
			version = "file:" + edit.Path
		}
		doc, err = sjson.Set(doc, "dependencies."+gjsonEscape(edit.NewName), version)
		if err != nil {
			return "", err
		}
	case pluginapi.OpRemoveDependency:
		doc, err = sjson.Delete(doc, "dependencies."+gjsonEscape(edit.OldName))
		if err != nil {
			return "", err
		}
	case pluginapi.OpAddWorkspaceMember:
		doc, err = sjson.Set(doc, "workspaces.-1", edit.Path)
		if err != nil {
			return "", err
		}
	case pluginapi.OpRemoveWorkspaceMember:
		members := gjson.Get(doc, "workspaces").Array()
		kept := make([]string, 0, len(members))
		for _, m := range members {
			if m.String() != edit.Path {
				kept = append(kept, m.String())
			}
		}
		doc, err = sjson.Set(doc, "workspaces", kept)
		if err != nil {
			return "", err
		}
	}
	return doc, nil
}

func isPnpmWorkspaceManifest(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed != "" && !strings.HasPrefix(trimmed, "{")
}

func editPnpmWorkspace(content string, edit pluginapi.DependencyEdit) (string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return "", fmt.Errorf("langts: decode pnpm-workspace.yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	packages, _ := doc["packages"].([]any)

	switch edit.Op {
	case pluginapi.OpAddWorkspaceMember:
		doc["packages"] = append(packages, edit.Path)
	case pluginapi.OpRemoveWorkspaceMember:
		kept := make([]any, 0, len(packages))
		for _, m := range packages {
			if s, ok := m.(string); ok && s == edit.Path {
				continue
			}
			kept = append(kept, m)
		}
		doc["packages"] = kept
	case pluginapi.OpRenameDependency:
		for i, m := range packages {
			if s, ok := m.(string); ok && strings.HasSuffix(s, "/"+edit.OldName) {
				packages[i] = strings.TrimSuffix(s, "/"+edit.OldName) + "/" + edit.NewName
			}
		}
		doc["packages"] = packages
	default:
		return content, nil
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("langts: encode pnpm-workspace.yaml: %w", err)
	}
	return string(out), nil
}

// gjsonEscape escapes gjson/sjson path metacharacters in a package name
// (a name like "socket.io" contains a literal ".", which path syntax
// would otherwise treat as a key separator).
func gjsonEscape(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '.' || name[i] == '*' || name[i] == '?' {
			out = append(out, '\\')
		}
		out = append(out, name[i])
	}
	return string(out)
}

func (p *Plugin) EntryFileRules() pluginapi.EntryFileRules {
	return pluginapi.EntryFileRules{
		EntryFileName: "index.ts",
		SubmoduleEntryName: func(moduleName string) string {
			return moduleName + ".ts"
		},
		ModuleDeclaration: func(moduleName string) string {
			return fmt.Sprintf("export * from './%s.js';", moduleName)
		},
	}
}

func (p *Plugin) RefactorPrimitives() []pluginapi.RefactorPrimitive { return nil }
