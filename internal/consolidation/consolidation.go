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

// Package consolidation is the directory consolidation post-processing
// pipeline: it runs after a consolidation-tagged EditPlan's Move
// operations have landed on disk, and structurally satisfies
// fileservice.Consolidator so the file service can invoke it without
// importing this package directly.
package consolidation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"codebuddy.dev/codebuddy/internal/fileservice"
	"codebuddy.dev/codebuddy/internal/logging"
	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/plugins"
	"codebuddy.dev/codebuddy/internal/proto"
	"codebuddy.dev/codebuddy/internal/refactor"
)

// Pipeline implements fileservice.Consolidator. All of its disk
// mutations go through the fileservice.Txn the apply call hands it, so
// a failure at any stage rolls them back together with the plan's own
// operations.
type Pipeline struct {
	registry *plugins.Registry
	planner  *refactor.Planner
	root     string
	logger   *logging.Logger
}

// New constructs a Pipeline. planner is used only to rebuild the
// workspace dependency graph for step 7's post-apply verification.
func New(registry *plugins.Registry, planner *refactor.Planner, workspaceRoot string) *Pipeline {
	return &Pipeline{
		registry: registry,
		planner:  planner,
		root:     workspaceRoot,
		logger:   logging.Global().WithCorrelation("consolidation"),
	}
}

func (c *Pipeline) pluginByLanguage(name string) (pluginapi.Plugin, bool) {
	for _, pl := range c.registry.All() {
		if pl.Name() == name {
			return pl, true
		}
	}
	return nil, false
}

// Consolidate runs the post-move half of a consolidation. The caller
// (the file service) has
// already executed every Move in the plan; Consolidate flattens any
// duplicated inner package layout, renames the entry file to its
// submodule form, inserts a module declaration in the destination's
// entry file, updates the workspace-root manifest, corrects self-imports in
// the moved files, and verifies the result is still acyclic. Any
// failure here causes the file service to roll back the whole plan.
func (c *Pipeline) Consolidate(ctx context.Context, plan *proto.EditPlan, txn *fileservice.Txn) error {
	meta := plan.Metadata.Consolidation
	if meta == nil {
		return fmt.Errorf("consolidation: plan has no ConsolidationMetadata")
	}
	plugin, ok := c.pluginByLanguage(plan.Metadata.Language)
	if !ok {
		return fmt.Errorf("consolidation: no plugin registered for language %q", plan.Metadata.Language)
	}

	if err := c.flattenNestedLayout(txn, meta, plugin); err != nil {
		return fmt.Errorf("consolidation: flatten: %w", err)
	}

	entryPath, err := c.renameEntryFile(txn, meta, plugin)
	if err != nil {
		return fmt.Errorf("consolidation: rename entry file: %w", err)
	}

	if err := c.insertModuleDeclaration(txn, meta, plugin, entryPath); err != nil {
		return fmt.Errorf("consolidation: insert module declaration: %w", err)
	}

	if err := c.mergeManifestDependencies(txn, meta, plugin); err != nil {
		return fmt.Errorf("consolidation: merge manifest: %w", err)
	}

	if err := c.correctSelfImports(txn, meta); err != nil {
		return fmt.Errorf("consolidation: self-import correction: %w", err)
	}

	if err := c.verify(); err != nil {
		return err
	}

	return nil
}

// flattenNestedLayout lifts an inner package-root-shaped directory (the
// spec's example is a nested "src/") one level and discards any
// manifest left behind inside the moved directory, which would
// otherwise shadow the destination crate's own manifest.
func (c *Pipeline) flattenNestedLayout(txn *fileservice.Txn, meta *proto.ConsolidationMetadata, plugin pluginapi.Plugin) error {
	innerSrc := filepath.Join(meta.TargetModulePath, "src")
	if txn.Exists(innerSrc) {
		entries, err := txn.ReadDir(innerSrc)
		if err != nil {
			return err
		}
		for _, e := range entries {
			oldPath := filepath.Join(innerSrc, e.Name())
			newPath := filepath.Join(meta.TargetModulePath, e.Name())
			if err := txn.Move(oldPath, newPath); err != nil {
				return err
			}
		}
		_ = txn.Delete(innerSrc) // best-effort: some backends require an empty dir, others are no-ops
	}

	redundantManifest := filepath.Join(meta.TargetModulePath, plugin.ManifestFileName())
	if txn.Exists(redundantManifest) {
		if err := txn.Delete(redundantManifest); err != nil {
			return err
		}
	}
	return nil
}

// renameEntryFile renames the moved package's library entry file to
// the submodule form the target language requires (e.g. Rust's
// "lib.rs" -> "<name>.rs"), placing it alongside the destination
// crate's own entry file. Returns the new entry path, or "" if the
// plugin declares no entry-file convention (e.g. Go).
func (c *Pipeline) renameEntryFile(txn *fileservice.Txn, meta *proto.ConsolidationMetadata, plugin pluginapi.Plugin) (string, error) {
	rules := plugin.EntryFileRules()
	if rules.EntryFileName == "" || rules.SubmoduleEntryName == nil {
		return "", nil
	}

	oldEntry := filepath.Join(meta.TargetModulePath, rules.EntryFileName)
	if !txn.Exists(oldEntry) {
		return "", nil
	}

	entryDir := meta.TargetPath
	if txn.Exists(filepath.Join(meta.TargetPath, "src")) {
		entryDir = filepath.Join(meta.TargetPath, "src")
	}
	newEntry := filepath.Join(entryDir, rules.SubmoduleEntryName(meta.TargetModule))
	if err := txn.Move(oldEntry, newEntry); err != nil {
		return "", err
	}
	return newEntry, nil
}

// insertModuleDeclaration inserts a submodule declaration into the
// destination crate's own entry file, idempotently: if the declaration
// is already present, does nothing.
func (c *Pipeline) insertModuleDeclaration(txn *fileservice.Txn, meta *proto.ConsolidationMetadata, plugin pluginapi.Plugin, movedEntryPath string) error {
	rules := plugin.EntryFileRules()
	if rules.ModuleDeclaration == nil || rules.EntryFileName == "" {
		return nil
	}
	line := rules.ModuleDeclaration(meta.TargetModule)
	if line == "" {
		return nil
	}

	destEntryDir := meta.TargetPath
	if movedEntryPath != "" {
		destEntryDir = filepath.Dir(movedEntryPath)
	}
	destEntry := filepath.Join(destEntryDir, rules.EntryFileName)
	if !txn.Exists(destEntry) {
		return nil
	}
	content, err := txn.Read(destEntry)
	if err != nil {
		return err
	}
	if strings.Contains(content, line) {
		return nil
	}
	return txn.Write(destEntry, insertDeclarationLine(content, line))
}

// insertDeclarationLine inserts line after the last existing
// contiguous run of sibling module declaration lines and before the
// first non-declaration, non-comment line.
func insertDeclarationLine(content, line string) string {
	lines := strings.Split(content, "\n")
	insertAt := 0
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if looksLikeModuleDeclaration(trimmed) {
			insertAt = i + 1
			continue
		}
		break
	}
	out := append([]string(nil), lines[:insertAt]...)
	out = append(out, line)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n")
}

func looksLikeModuleDeclaration(line string) bool {
	return strings.HasPrefix(line, "mod ") || strings.HasPrefix(line, "pub mod ") ||
		strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "from ") ||
		strings.HasPrefix(line, "export ")
}

// mergeManifestDependencies edits the workspace-root manifest: it drops
// the source from the workspace members list and adds the destination
// crate as a path dependency. The source crate's own dependency entries
// are not copied into the destination's manifest, and the source
// manifest left inside the moved directory has already been deleted by
// flattenNestedLayout.
func (c *Pipeline) mergeManifestDependencies(txn *fileservice.Txn, meta *proto.ConsolidationMetadata, plugin pluginapi.Plugin) error {
	rootManifest := filepath.Join(c.root, plugin.ManifestFileName())
	if !txn.Exists(rootManifest) {
		return nil
	}
	content, err := txn.Read(rootManifest)
	if err != nil {
		return err
	}

	content, err = plugin.ManifestEditDependency(content, pluginapi.DependencyEdit{
		Op:   pluginapi.OpRemoveWorkspaceMember,
		Path: meta.SourcePath,
	})
	if err != nil {
		return err
	}
	content, err = plugin.ManifestEditDependency(content, pluginapi.DependencyEdit{
		Op:      pluginapi.OpAddDependency,
		NewName: meta.TargetCrate,
		Path:    meta.TargetPath,
	})
	if err != nil {
		return err
	}

	return txn.Write(rootManifest, content)
}

// correctSelfImports rewrites any `use <targetCrate>::` reference found
// within the moved files themselves to `use crate::`, since those files
// are now part of the destination crate rather than an external
// dependency of it.
func (c *Pipeline) correctSelfImports(txn *fileservice.Txn, meta *proto.ConsolidationMetadata) error {
	entries, err := txn.ReadDir(meta.TargetModulePath)
	if err != nil {
		return nil // nothing moved there (e.g. flatten already emptied it) is not an error
	}
	oldPrefix := meta.TargetCrate + "::"
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(meta.TargetModulePath, e.Name())
		content, err := txn.Read(path)
		if err != nil {
			continue
		}
		updated := strings.ReplaceAll(content, "use "+oldPrefix, "use crate::")
		updated = strings.ReplaceAll(updated, "from "+oldPrefix, "from crate::")
		if updated != content {
			if err := txn.Write(path, updated); err != nil {
				return err
			}
		}
	}
	return nil
}

// verify rebuilds the workspace dependency graph and fails if it still
// contains a cycle.
func (c *Pipeline) verify() error {
	graph, files, err := c.planner.BuildWorkspaceDependencyGraph()
	if err != nil {
		return fmt.Errorf("rebuild dependency graph: %w", err)
	}
	if ok, chain := graph.HasCycle(files); ok {
		return proto.ErrorCircularDependency(chain, files)
	}
	return nil
}
