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

// Package refactor is the refactor planner: it turns one of the
// closed refactor intents into a WorkspaceEdit and then an executable
// EditPlan. Every plan it returns defaults to dry-run; nothing here
// touches disk, that is the file service's job.
package refactor

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"codebuddy.dev/codebuddy/internal/fileservice"
	"codebuddy.dev/codebuddy/internal/logging"
	"codebuddy.dev/codebuddy/internal/lspmanager"
	"codebuddy.dev/codebuddy/internal/pluginapi"
	"codebuddy.dev/codebuddy/internal/plugins"
	"codebuddy.dev/codebuddy/internal/proto"
)

// Intent is the closed set of refactor operations.
type Intent string

const (
	IntentRename    Intent = "rename"
	IntentExtract   Intent = "extract"
	IntentInline    Intent = "inline"
	IntentMove      Intent = "move"
	IntentReorder   Intent = "reorder"
	IntentTransform Intent = "transform"
	IntentDelete    Intent = "delete"
)

// Planner is the Refactor Planner.
type Planner struct {
	registry *plugins.Registry
	lsp      *lspmanager.Manager
	files    *fileservice.Service
	root     string
	logger   *logging.Logger
}

// NewPlanner constructs a Planner over the given plugin registry, LSP
// manager and file service, rooted at workspaceRoot for workspace-wide
// operations like import rewriting.
func NewPlanner(registry *plugins.Registry, lsp *lspmanager.Manager, files *fileservice.Service, workspaceRoot string) *Planner {
	return &Planner{
		registry: registry,
		lsp:      lsp,
		files:    files,
		root:     workspaceRoot,
		logger:   logging.Global().WithCorrelation("refactor"),
	}
}

// RenameTarget is one element of a batch rename request: either a
// symbol rename (Path+Position+NewName) or a file/directory rename
// (OldPath+NewPath, Position left zero).
type RenameTarget struct {
	Path    string
	Position proto.Position
	NewName string
	OldPath string
	NewPath string
}

func (t RenameTarget) isPathRename() bool { return t.OldPath != "" }

func languageName(p pluginapi.Plugin) string {
	if p == nil {
		return ""
	}
	return p.Name()
}

// PlanRenameSymbol resolves path/pos's declaration via the owning LSP
// server (prepareRename + rename) and returns the resulting EditPlan.
func (p *Planner) PlanRenameSymbol(ctx context.Context, path string, pos proto.Position, newName string) (*proto.EditPlan, error) {
	plugin, _ := p.registry.LookupByPath(path)
	ext := strings.ToLower(filepath.Ext(path))

	server, err := p.lsp.EnsureOpen(ctx, ext, path, languageName(plugin))
	if err != nil {
		return nil, err
	}

	rng, err := server.PrepareRename(ctx, path, pos)
	if err != nil {
		return nil, err
	}
	_ = rng // the resolved range is informational; rename itself re-resolves at pos

	we, err := server.Rename(ctx, path, pos, newName)
	if err != nil {
		return nil, err
	}

	return p.planFromWorkspaceEdit(we, "rename", languageName(plugin), nil)
}

// PlanRenamePath plans a file or directory rename: Move operations for
// every file under oldPath, plus the import rewriting pipeline
// across the rest of the workspace.
func (p *Planner) PlanRenamePath(ctx context.Context, oldPath, newPath string) (*proto.EditPlan, error) {
	moves, err := p.movesForPathRename(oldPath, newPath)
	if err != nil {
		return nil, err
	}
	rewrites, depUpdates, err := p.rewriteImportsForRename(ctx, []pathRename{{oldPath, newPath}})
	if err != nil {
		return nil, err
	}

	ops := append(moves, rewrites...)
	plan := &proto.EditPlan{
		Edits:             ops,
		DependencyUpdates: depUpdates,
		Metadata: proto.PlanMetadata{
			PlanType:        "rename",
			Language:        p.languageForPath(oldPath),
			EstimatedImpact: proto.EstimateImpact(len(ops)),
		},
	}
	return plan, nil
}

// PlanBatchRename plans several rename targets together, merging edits
// per file (union of ranges) and failing with ConflictingEdits if two
// targets' ranges overlap in the same file.
func (p *Planner) PlanBatchRename(ctx context.Context, targets []RenameTarget) (*proto.EditPlan, error) {
	merged := proto.NewWorkspaceEdit()
	var pathRenames []pathRename
	language := ""

	for _, t := range targets {
		if t.isPathRename() {
			pathRenames = append(pathRenames, pathRename{t.OldPath, t.NewPath})
			continue
		}
		ext := strings.ToLower(filepath.Ext(t.Path))
		plugin, _ := p.registry.LookupByPath(t.Path)
		if language == "" {
			language = languageName(plugin)
		}
		server, err := p.lsp.EnsureOpen(ctx, ext, t.Path, languageName(plugin))
		if err != nil {
			return nil, err
		}
		we, err := server.Rename(ctx, t.Path, t.Position, t.NewName)
		if err != nil {
			return nil, err
		}
		for uri, edits := range we.Changes {
			for _, e := range edits {
				for _, existing := range merged.Changes[uri] {
					if existing.Range.Overlaps(e.Range) {
						return nil, proto.ErrorConflictingEdits(uri)
					}
				}
				merged.AddEdit(uri, e)
			}
		}
	}

	var moveOps []proto.PlanOp
	var depUpdates []proto.DependencyUpdate
	if len(pathRenames) > 0 {
		for _, pr := range pathRenames {
			m, err := p.movesForPathRename(pr.oldPath, pr.newPath)
			if err != nil {
				return nil, err
			}
			moveOps = append(moveOps, m...)
		}
		rewrites, du, err := p.rewriteImportsForRename(ctx, pathRenames)
		if err != nil {
			return nil, err
		}
		for uri, edits := range editsByPathFromOps(rewrites) {
			for _, e := range edits {
				merged.AddEdit(uri, e)
			}
		}
		depUpdates = du
		if language == "" && len(pathRenames) > 0 {
			language = p.languageForPath(pathRenames[0].oldPath)
		}
	}

	plan, err := p.planFromWorkspaceEdit(merged, "batch-rename", language, depUpdates)
	if err != nil {
		return nil, err
	}
	plan.Edits = append(plan.Edits, moveOps...)
	plan.Metadata.EstimatedImpact = proto.EstimateImpact(len(plan.AffectedFiles()))
	if plan.IsEmpty() {
		// No target produced a single edit or move: surface it rather
		// than hand back a plan that applies as a silent no-op.
		return nil, proto.ErrorValidationFailed("NoMatchingTargets")
	}
	return plan, nil
}

// PlanCodeActionRefactor plans Extract/Inline/Reorder/Transform: prefers
// the owning LSP server's code actions, falling back to the plugin's
// refactor primitive of the matching kind when the server does not
// advertise codeActionProvider (or has no action to offer).
func (p *Planner) PlanCodeActionRefactor(ctx context.Context, intent Intent, path string, rng proto.Range, content string, params map[string]any) (*proto.EditPlan, error) {
	plugin, _ := p.registry.LookupByPath(path)
	ext := strings.ToLower(filepath.Ext(path))

	server, err := p.lsp.EnsureOpen(ctx, ext, path, languageName(plugin))
	if err == nil && server.HasCapability("codeActionProvider") {
		raw, caErr := server.CodeActions(ctx, path, rng, string(intent))
		if caErr == nil && len(raw) > 2 { // more than "[]"
			we, decodeErr := decodeFirstCodeActionEdit(raw)
			if decodeErr == nil && we != nil {
				return p.planFromWorkspaceEdit(we, string(intent), languageName(plugin), nil)
			}
		}
	}

	if plugin == nil {
		return nil, proto.ErrorUnsupportedByServer(string(intent))
	}
	var primitive pluginapi.RefactorPrimitive
	for _, rp := range plugin.RefactorPrimitives() {
		if string(rp.Kind()) == string(intent) {
			primitive = rp
			break
		}
	}
	if primitive == nil {
		return nil, proto.ErrorUnsupportedByServer(string(intent))
	}
	edits, err := primitive.Apply(content, params)
	if err != nil {
		return nil, err
	}
	we := proto.NewWorkspaceEdit()
	for _, e := range edits {
		we.AddEdit(path, e)
	}
	return p.planFromWorkspaceEdit(we, string(intent), languageName(plugin), nil)
}

// PlanDeleteFile plans removing a single file.
func (p *Planner) PlanDeleteFile(path string) *proto.EditPlan {
	return &proto.EditPlan{
		Edits: []proto.PlanOp{{Kind: proto.PlanOpDelete, Path: path}},
		Metadata: proto.PlanMetadata{
			PlanType:        "delete",
			Language:        p.languageForPath(path),
			EstimatedImpact: proto.ImpactLow,
		},
	}
}

// PlanDeleteSymbol plans removing a symbol's definition. When cascade is
// true, references found via textDocument/references are excised too;
// otherwise they are left as-is and the caller is expected to surface
// them as diagnostics rather than as a planning failure.
func (p *Planner) PlanDeleteSymbol(ctx context.Context, path string, pos proto.Position, cascade bool) (*proto.EditPlan, error) {
	plugin, _ := p.registry.LookupByPath(path)
	ext := strings.ToLower(filepath.Ext(path))

	server, err := p.lsp.EnsureOpen(ctx, ext, path, languageName(plugin))
	if err != nil {
		return nil, err
	}

	rng, err := server.PrepareRename(ctx, path, pos)
	if err != nil {
		return nil, err
	}

	we := proto.NewWorkspaceEdit()
	we.AddEdit(path, proto.TextEdit{Range: rng, NewText: ""})

	if cascade {
		refs, err := server.References(ctx, path, pos, false)
		if err == nil {
			for _, r := range refs {
				we.AddEdit(path, proto.TextEdit{Range: r, NewText: ""})
			}
		}
	}

	return p.planFromWorkspaceEdit(we, "delete-symbol", languageName(plugin), nil)
}

// planFromWorkspaceEdit converts a WorkspaceEdit into an EditPlan,
// detecting overlapping edits within the same file (ConflictingEdits).
func (p *Planner) planFromWorkspaceEdit(we *proto.WorkspaceEdit, planType, language string, depUpdates []proto.DependencyUpdate) (*proto.EditPlan, error) {
	var ops []proto.PlanOp
	paths := make([]string, 0, len(we.Changes))
	for uri := range we.Changes {
		paths = append(paths, uri)
	}
	sort.Strings(paths)

	for _, uri := range paths {
		edits := we.Changes[uri]
		for i := 0; i < len(edits); i++ {
			for j := i + 1; j < len(edits); j++ {
				if edits[i].Range.Overlaps(edits[j].Range) {
					return nil, proto.ErrorConflictingEdits(uri)
				}
			}
		}
		ops = append(ops, proto.PlanOp{Kind: proto.PlanOpEdit, Path: uri, Edits: edits})
	}

	for _, dc := range we.DocumentChanges {
		switch dc.Op {
		case proto.OpCreate:
			ops = append(ops, proto.PlanOp{Kind: proto.PlanOpCreate, Path: dc.URI})
		case proto.OpMove:
			ops = append(ops, proto.PlanOp{Kind: proto.PlanOpMove, Path: dc.URI, NewPath: dc.NewURI})
		case proto.OpDelete:
			ops = append(ops, proto.PlanOp{Kind: proto.PlanOpDelete, Path: dc.URI})
		}
	}

	plan := &proto.EditPlan{
		Edits:             ops,
		DependencyUpdates: depUpdates,
		Metadata: proto.PlanMetadata{
			PlanType:        planType,
			Language:        language,
			EstimatedImpact: proto.EstimateImpact(len(ops)),
		},
	}
	return plan, nil
}

func (p *Planner) languageForPath(path string) string {
	plugin, _ := p.registry.LookupByPath(path)
	return languageName(plugin)
}

func decodeFirstCodeActionEdit(raw []byte) (*proto.WorkspaceEdit, error) {
	var actions []struct {
		Edit *struct {
			Changes map[string][]struct {
				Range struct {
					Start proto.Position `json:"start"`
					End   proto.Position `json:"end"`
				} `json:"range"`
				NewText string `json:"newText"`
			} `json:"changes"`
		} `json:"edit"`
	}
	if err := json.Unmarshal(raw, &actions); err != nil {
		return nil, err
	}
	for _, a := range actions {
		if a.Edit == nil {
			continue
		}
		we := proto.NewWorkspaceEdit()
		for uri, edits := range a.Edit.Changes {
			path := lspmanager.URIToPath(uri)
			for _, e := range edits {
				we.AddEdit(path, proto.TextEdit{
					Range:   proto.Range{Start: e.Range.Start, End: e.Range.End},
					NewText: e.NewText,
				})
			}
		}
		return we, nil
	}
	return nil, fmt.Errorf("refactor: no code action carried a workspace edit")
}

func editsByPathFromOps(ops []proto.PlanOp) map[string][]proto.TextEdit {
	out := make(map[string][]proto.TextEdit)
	for _, op := range ops {
		if op.Kind == proto.PlanOpEdit {
			out[op.Path] = append(out[op.Path], op.Edits...)
		}
	}
	return out
}
