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
	"fmt"
	"path/filepath"
	"strings"

	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/proto"
)

// pathRename is one old->new file or directory path pair being planned.
type pathRename struct {
	oldPath string
	newPath string
}

// allWorkspaceFiles enumerates every source file the registered plugins
// claim, via the file service's .gitignore-aware walk.
func (p *Planner) allWorkspaceFiles() ([]string, error) {
	var exts []string
	for _, pl := range p.registry.All() {
		exts = append(exts, pl.Extensions()...)
	}
	return p.files.WalkWorkspace(p.root, exts)
}

// movesForPathRename expands oldPath -> newPath into one Move PlanOp per
// affected file: a single move if oldPath names a file (has an
// extension), or one move per file nested under a renamed directory.
func (p *Planner) movesForPathRename(oldPath, newPath string) ([]proto.PlanOp, error) {
	if filepath.Ext(oldPath) != "" {
		return []proto.PlanOp{{Kind: proto.PlanOpMove, Path: oldPath, NewPath: newPath}}, nil
	}
	files, err := p.allWorkspaceFiles()
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(oldPath, "/") + "/"
	var ops []proto.PlanOp
	for _, f := range files {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		rel := strings.TrimPrefix(f, prefix)
		ops = append(ops, proto.PlanOp{Kind: proto.PlanOpMove, Path: f, NewPath: filepath.Join(newPath, rel)})
	}
	return ops, nil
}

// applyRenamesToPath rewrites resolved against every pending rename,
// reporting whether resolved fell under any of them (as an exact file
// match or as a descendant of a renamed directory). Targets resolving
// into a directory that is itself being moved use the *final* post-move
// layout.
func applyRenamesToPath(resolved string, renames []pathRename) (string, bool) {
	changed := false
	for _, r := range renames {
		if resolved == r.oldPath {
			resolved = r.newPath
			changed = true
			continue
		}
		prefix := strings.TrimSuffix(r.oldPath, "/") + "/"
		if strings.HasPrefix(resolved, prefix) {
			resolved = filepath.Join(r.newPath, strings.TrimPrefix(resolved, prefix))
			changed = true
		}
	}
	return resolved, changed
}

// deriveNewSpecifier computes the replacement import specifier text
// (without quotes) for an import whose resolved target moved from
// oldResolved to newResolved.
func deriveNewSpecifier(rawTarget string, sourceFile, oldResolved, newResolved string, ext string) string {
	trimmed := strings.Trim(rawTarget, `"'`)
	if strings.HasPrefix(trimmed, ".") {
		rel, err := filepath.Rel(filepath.Dir(sourceFile), newResolved)
		if err != nil {
			return trimmed
		}
		rel = filepath.ToSlash(rel)
		rel = strings.TrimSuffix(rel, ext)
		if !strings.HasPrefix(rel, ".") {
			rel = "./" + rel
		}
		return rel
	}
	oldBase := filepath.Base(strings.TrimSuffix(oldResolved, filepath.Ext(oldResolved)))
	newBase := filepath.Base(strings.TrimSuffix(newResolved, filepath.Ext(newResolved)))
	if oldBase == newBase {
		return trimmed
	}
	return strings.ReplaceAll(trimmed, oldBase, newBase)
}

// rewriteImportsForRename runs the import rewriting pipeline:
// for every workspace source file, parse its imports, resolve each
// target, and emit a TextEdit wherever the resolved target falls under
// one of renames. It additionally computes manifest-level dependency
// identifier updates for any renamed package-root directory.
func (p *Planner) rewriteImportsForRename(ctx context.Context, renames []pathRename) ([]proto.PlanOp, []proto.DependencyUpdate, error) {
	files, err := p.allWorkspaceFiles()
	if err != nil {
		return nil, nil, err
	}
	allFiles := make(map[string]bool, len(files))
	for _, f := range files {
		allFiles[f] = true
	}

	var ops []proto.PlanOp
	for _, f := range files {
		plugin, ok := p.registry.LookupByPath(f)
		if !ok {
			continue
		}
		content, err := p.files.Read(f)
		if err != nil {
			continue // unreadable file: surfaced by analysis, not a planning failure
		}
		graph, err := plugin.ParseImports(f, content)
		if err != nil {
			continue
		}

		var fileEdits []proto.TextEdit
		for _, imp := range graph.Imports {
			resolved, ok := ResolveImportTarget(f, imp.Target, plugin.Extensions(), allFiles)
			if !ok {
				continue
			}
			newResolved, changed := applyRenamesToPath(resolved, renames)
			if !changed {
				continue
			}
			ext := ""
			if len(plugin.Extensions()) > 0 {
				ext = plugin.Extensions()[0]
			}
			newSpec := deriveNewSpecifier(imp.Target, f, resolved, newResolved, ext)
			// Import.Location spans the specifier text only (quote
			// delimiters, if any, sit outside it and are left untouched);
			// Import.Quote exists for plugins that need it to emit a
			// brand-new literal elsewhere, not for this in-place rewrite.
			fileEdits = append(fileEdits, proto.TextEdit{
				Range:   imp.Location,
				NewText: newSpec,
			})
		}
		if len(fileEdits) > 0 {
			ops = append(ops, proto.PlanOp{Kind: proto.PlanOpEdit, Path: f, Edits: fileEdits})
		}
	}

	depUpdates, err := p.manifestUpdatesForRenames(renames)
	if err != nil {
		return nil, nil, err
	}
	return ops, depUpdates, nil
}

// manifestUpdatesForRenames produces a DependencyUpdate per manifest
// file affected by a renamed package-root directory: the renamed
// package's own manifest and the workspace-root manifest (member lists,
// workspace dependency tables), renaming the dependency identifier via
// the owning plugin's ManifestEditDependency. Manifest paths are resolved against the pre-move layout:
// apply_edit_plan applies text edits before moves, so the package's own
// manifest is still at its old path when the edit lands. Several
// renames touching the same manifest accumulate into one update, since
// two whole-file replacements of the same file would overlap.
func (p *Planner) manifestUpdatesForRenames(renames []pathRename) ([]proto.DependencyUpdate, error) {
	type pendingManifest struct {
		original string
		current  string
		descs    []string
	}
	byPath := make(map[string]*pendingManifest)
	var order []string

	apply := func(manifestPath string, plugin pluginapi.Plugin, edit pluginapi.DependencyEdit, desc string) error {
		entry, ok := byPath[manifestPath]
		if !ok {
			content, err := p.files.Read(manifestPath)
			if err != nil {
				return nil // no such manifest for this plugin
			}
			entry = &pendingManifest{original: content, current: content}
			byPath[manifestPath] = entry
			order = append(order, manifestPath)
		}
		updated, err := plugin.ManifestEditDependency(entry.current, edit)
		if err != nil {
			return fmt.Errorf("refactor: manifest edit for %s: %w", manifestPath, err)
		}
		if updated != entry.current {
			entry.current = updated
			entry.descs = append(entry.descs, desc)
		}
		return nil
	}

	for _, r := range renames {
		if filepath.Ext(r.oldPath) != "" {
			continue // a file rename, not a package-root rename
		}
		oldName, newName := filepath.Base(r.oldPath), filepath.Base(r.newPath)
		if oldName == newName {
			continue
		}
		edit := pluginapi.DependencyEdit{
			Op:      pluginapi.OpRenameDependency,
			OldName: oldName,
			NewName: newName,
			Path:    r.newPath,
		}
		desc := fmt.Sprintf("rename dependency %q to %q", oldName, newName)
		for _, plugin := range p.registry.All() {
			if err := apply(filepath.Join(r.oldPath, plugin.ManifestFileName()), plugin, edit, desc); err != nil {
				return nil, err
			}
			if err := apply(filepath.Join(p.root, plugin.ManifestFileName()), plugin, edit, desc); err != nil {
				return nil, err
			}
		}
	}

	var out []proto.DependencyUpdate
	for _, path := range order {
		entry := byPath[path]
		if entry.current == entry.original {
			continue
		}
		out = append(out, proto.DependencyUpdate{
			ManifestPath: path,
			Description:  strings.Join(entry.descs, "; "),
			Edits:        []proto.TextEdit{wholeFileReplacement(entry.original, entry.current)},
		})
	}
	return out, nil
}

// wholeFileReplacement returns a single TextEdit spanning all of
// oldContent and replacing it with newContent, used when a plugin's
// manifest editing operates on whole-document content rather than
// localized ranges.
func wholeFileReplacement(oldContent, newContent string) proto.TextEdit {
	lines := strings.Split(oldContent, "\n")
	lastLine := uint32(len(lines) - 1)
	lastChar := uint32(len([]rune(lines[len(lines)-1])))
	return proto.TextEdit{
		Range: proto.Range{
			Start: proto.Position{Line: 0, Character: 0},
			End:   proto.Position{Line: lastLine, Character: lastChar},
		},
		NewText: newContent,
	}
}
