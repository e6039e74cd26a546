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

// Package langgo is the Go language plugin: import parsing via
// tree-sitter-go, and go.mod editing via golang.org/x/mod/modfile.
package langgo

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	"golang.org/x/mod/modfile"

	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/plugins/tsutil"
	"codebuddy.dev/codebuddy/internal/proto"
)

var language = tree_sitter.NewLanguage(tree_sitter_go.Language())

const importQuery = `
(import_spec
  name: (_)? @alias
  path: (interpreted_string_literal) @path) @spec
`

// Plugin is the Go language plugin.
type Plugin struct{}

// New constructs the Go plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "go" }

func (p *Plugin) Extensions() []string { return []string{".go"} }

func (p *Plugin) ManifestFileName() string { return "go.mod" }

func (p *Plugin) ParseImports(path string, content string) (proto.ImportGraph, error) {
	src := []byte(content)
	tree, err := tsutil.Parse(language, src)
	if err != nil {
		return proto.ImportGraph{}, fmt.Errorf("langgo: parse %s: %w", path, err)
	}
	defer tree.Close()

	matches, err := tsutil.QueryMatches(language, tree.RootNode(), src, importQuery)
	if err != nil {
		return proto.ImportGraph{}, fmt.Errorf("langgo: query %s: %w", path, err)
	}

	graph := proto.ImportGraph{SourceFile: path}
	for _, caps := range matches {
		var pathCap, aliasCap, specCap *tsutil.Capture
		for i := range caps {
			switch caps[i].Name {
			case "path":
				pathCap = &caps[i]
			case "alias":
				aliasCap = &caps[i]
			case "spec":
				specCap = &caps[i]
			}
		}
		if pathCap == nil || specCap == nil {
			continue
		}
		target, quote := tsutil.StripQuotes(pathCap.Text)
		kind := proto.ImportDefault
		alias := ""
		if aliasCap != nil {
			kind = proto.ImportNamed
			alias = aliasCap.Text
			if alias == "_" {
				kind = proto.ImportNamespace
			}
		}
		graph.Imports = append(graph.Imports, proto.Import{
			Target:   target,
			Kind:     kind,
			Alias:    alias,
			Location: tsutil.ByteRangeToRange(src, specCap.StartByte, specCap.EndByte),
			Quote:    quote,
		})
	}
	return graph, nil
}

func (p *Plugin) ManifestEditDependency(manifestContent string, edit pluginapi.DependencyEdit) (string, error) {
	f, err := modfile.Parse("go.mod", []byte(manifestContent), nil)
	if err != nil {
		return "", fmt.Errorf("langgo: parse go.mod: %w", err)
	}

	switch edit.Op {
	case pluginapi.OpRenameDependency:
		for _, req := range f.Require {
			if req.Mod.Path == edit.OldName {
				if err := f.AddRequire(edit.NewName, req.Mod.Version); err != nil {
					return "", err
				}
				if err := f.DropRequire(edit.OldName); err != nil {
					return "", err
				}
			}
		}
		for _, rep := range f.Replace {
			if rep.Old.Path == edit.OldName {
				if err := f.AddReplace(edit.NewName, rep.Old.Version, rep.New.Path, rep.New.Version); err != nil {
					return "", err
				}
				if err := f.DropReplace(rep.Old.Path, rep.Old.Version); err != nil {
					return "", err
				}
			}
		}
	case pluginapi.OpAddDependency:
		if err := f.AddRequire(edit.NewName, "v0.0.0"); err != nil {
			return "", err
		}
	case pluginapi.OpRemoveDependency:
		if err := f.DropRequire(edit.OldName); err != nil {
			return "", err
		}
	case pluginapi.OpAddWorkspaceMember, pluginapi.OpRemoveWorkspaceMember:
		// go.mod has no workspace-members concept of its own (that is
		// go.work); single-module consolidation never needs these ops
		// for the Go plugin.
	}

	f.Cleanup()
	out, err := f.Format()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (p *Plugin) EntryFileRules() pluginapi.EntryFileRules {
	return pluginapi.EntryFileRules{
		EntryFileName: "",
		SubmoduleEntryName: func(moduleName string) string {
			return moduleName + ".go"
		},
		ModuleDeclaration: func(moduleName string) string {
			// Go has no explicit submodule declaration; package
			// membership is purely directory-based.
			return ""
		},
	}
}

func (p *Plugin) RefactorPrimitives() []pluginapi.RefactorPrimitive { return nil }
