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

// Package pluginapi declares the closed capability set every language
// plugin implements. Services depend only on this package, never on a
// concrete plugin package, so the dynamic-dispatch-over-concrete-types
// design note holds: the application layer is the only place that names
// langgo, langts, langpython or langrust directly.
package pluginapi

import "codebuddy.dev/codebuddy/internal/proto"

// ManifestOp is the closed set of manifest-level edits a plugin can make
// in response to a dependency identifier rename.
type ManifestOp string

const (
	// OpRenameDependency renames a dependency table entry and every
	// feature/member reference to it.
	OpRenameDependency ManifestOp = "rename-dependency"
	// OpAddDependency adds a workspace-relative path dependency.
	OpAddDependency ManifestOp = "add-dependency"
	// OpRemoveDependency removes a dependency entry.
	OpRemoveDependency ManifestOp = "remove-dependency"
	// OpAddWorkspaceMember adds an entry to the workspace/monorepo
	// members list.
	OpAddWorkspaceMember ManifestOp = "add-workspace-member"
	// OpRemoveWorkspaceMember removes an entry from the workspace
	// members list.
	OpRemoveWorkspaceMember ManifestOp = "remove-workspace-member"
)

// DependencyEdit describes one manifest mutation request handed to a
// plugin's ManifestEditDependency.
type DependencyEdit struct {
	Op       ManifestOp
	OldName  string
	NewName  string
	Path     string // relative path for add/rename, workspace-relative
	Optional bool
}

// EntryFileRules describes how a plugin names and locates a package's
// library entry point, and how it expresses a submodule declaration in
// that entry point — the information consolidation post-processing
// needs to rename an entry file and insert a module declaration.
type EntryFileRules struct {
	// EntryFileName is the conventional entry file name for a package
	// root (e.g. "lib.rs", "index.ts", "__init__.py", empty for Go
	// where the entry is implicit in the package's .go files).
	EntryFileName string
	// SubmoduleEntryName returns the file name a package-root entry
	// file must be renamed to when that package becomes a submodule
	// of another package (e.g. Rust's "lib.rs" -> "<name>.rs").
	SubmoduleEntryName func(moduleName string) string
	// ModuleDeclaration returns the source line declaring a submodule,
	// to be inserted into the parent entry file (e.g. "pub mod foo;").
	// Returns "" for languages with no explicit declaration (Go, TS).
	ModuleDeclaration func(moduleName string) string
}

// RefactorPrimitiveKind is the closed set of refactor intents a plugin
// may support natively when the owning LSP server lacks a code action
// for it.
type RefactorPrimitiveKind string

const (
	PrimitiveExtract RefactorPrimitiveKind = "extract"
	PrimitiveInline  RefactorPrimitiveKind = "inline"
	PrimitiveReorder RefactorPrimitiveKind = "reorder"
	PrimitiveTransform RefactorPrimitiveKind = "transform"
)

// RefactorPrimitive is a plugin-provided fallback implementation of one
// refactor intent over raw source text, used when the LSP server for
// this extension does not advertise a matching code action capability.
type RefactorPrimitive interface {
	Kind() RefactorPrimitiveKind
	Apply(content string, params map[string]any) ([]proto.TextEdit, error)
}

// Plugin is the closed plugin capability set: one implementation per
// supported language, looked up only by file extension via a Registry.
type Plugin interface {
	// Name is a short identifier for logs and tool metadata ("go",
	// "typescript", "python", "rust").
	Name() string

	// Extensions returns the file extensions (with leading dot) this
	// plugin claims, e.g. []string{".ts", ".tsx"}.
	Extensions() []string

	// ParseImports parses content (the text of a file with one of this
	// plugin's extensions) into an ImportGraph. Importers is left empty;
	// the caller fills it in from a workspace-wide reverse index.
	ParseImports(path string, content string) (proto.ImportGraph, error)

	// ManifestFileName returns the manifest file name this plugin edits
	// (e.g. "Cargo.toml", "package.json", "pyproject.toml", "go.mod").
	ManifestFileName() string

	// ManifestEditDependency applies one DependencyEdit to manifest
	// content, returning the updated content.
	ManifestEditDependency(manifestContent string, edit DependencyEdit) (string, error)

	// EntryFileRules returns this plugin's package-entry-file
	// conventions, used by consolidation post-processing.
	EntryFileRules() EntryFileRules

	// RefactorPrimitives returns the refactor intents this plugin can
	// perform without LSP code-action support, keyed by kind.
	RefactorPrimitives() []RefactorPrimitive
}
