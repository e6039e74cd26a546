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

package lspmanager

import (
	"context"
	"encoding/json"
	"fmt"

	"codebuddy.dev/codebuddy/internal/proto"
)

// PrepareRename issues textDocument/prepareRename, used by the refactor
// planner to validate a rename target and resolve the exact symbol range
// before calling Rename.
func (s *ServerState) PrepareRename(ctx context.Context, path string, pos proto.Position) (proto.Range, error) {
	if !s.HasCapability("renameProvider") {
		return proto.Range{}, proto.ErrorUnsupportedByServer("renameProvider")
	}
	result, err := s.Request(ctx, "textDocument/prepareRename", map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
		"position":     map[string]any{"line": pos.Line, "character": pos.Character},
	})
	if err != nil {
		return proto.Range{}, err
	}
	var wire wireRange
	if err := json.Unmarshal(result, &wire); err != nil {
		return proto.Range{}, fmt.Errorf("lspmanager: decode prepareRename result: %w", err)
	}
	return proto.Range{
		Start: proto.Position{Line: wire.Start.Line, Character: wire.Start.Character},
		End:   proto.Position{Line: wire.End.Line, Character: wire.End.Character},
	}, nil
}

// Rename issues textDocument/rename and decodes the resulting LSP
// WorkspaceEdit into a *proto.WorkspaceEdit.
func (s *ServerState) Rename(ctx context.Context, path string, pos proto.Position, newName string) (*proto.WorkspaceEdit, error) {
	if !s.HasCapability("renameProvider") {
		return nil, proto.ErrorUnsupportedByServer("renameProvider")
	}
	result, err := s.Request(ctx, "textDocument/rename", map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
		"position":     map[string]any{"line": pos.Line, "character": pos.Character},
		"newName":      newName,
	})
	if err != nil {
		return nil, err
	}
	return decodeWorkspaceEdit(result)
}

// References issues textDocument/references, used by the analysis
// service's workspace-scoped dead-code detection.
func (s *ServerState) References(ctx context.Context, path string, pos proto.Position, includeDeclaration bool) ([]proto.Range, error) {
	if !s.HasCapability("referencesProvider") {
		return nil, proto.ErrorUnsupportedByServer("referencesProvider")
	}
	result, err := s.Request(ctx, "textDocument/references", map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
		"position":     map[string]any{"line": pos.Line, "character": pos.Character},
		"context":      map[string]any{"includeDeclaration": includeDeclaration},
	})
	if err != nil {
		return nil, err
	}
	var locations []struct {
		URI   string    `json:"uri"`
		Range wireRange `json:"range"`
	}
	if err := json.Unmarshal(result, &locations); err != nil {
		return nil, fmt.Errorf("lspmanager: decode references result: %w", err)
	}
	out := make([]proto.Range, 0, len(locations))
	for _, loc := range locations {
		out = append(out, proto.Range{
			Start: proto.Position{Line: loc.Range.Start.Line, Character: loc.Range.Start.Character},
			End:   proto.Position{Line: loc.Range.End.Line, Character: loc.Range.End.Character},
		})
	}
	return out, nil
}

// CodeActions issues textDocument/codeAction for the given range, used by
// Extract/Inline/Reorder/Transform when the downstream server advertises
// codeActionProvider.
func (s *ServerState) CodeActions(ctx context.Context, path string, rng proto.Range, kind string) (json.RawMessage, error) {
	if !s.HasCapability("codeActionProvider") {
		return nil, proto.ErrorUnsupportedByServer("codeActionProvider")
	}
	return s.Request(ctx, "textDocument/codeAction", map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
		"range": map[string]any{
			"start": map[string]any{"line": rng.Start.Line, "character": rng.Start.Character},
			"end":   map[string]any{"line": rng.End.Line, "character": rng.End.Character},
		},
		"context": map[string]any{"only": []string{kind}},
	})
}

func decodeWorkspaceEdit(raw json.RawMessage) (*proto.WorkspaceEdit, error) {
	var wire struct {
		Changes map[string][]struct {
			Range   wireRange `json:"range"`
			NewText string    `json:"newText"`
		} `json:"changes"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("lspmanager: decode workspace edit: %w", err)
	}
	edit := proto.NewWorkspaceEdit()
	for uri, edits := range wire.Changes {
		// Keyed by path from here on up: the planner and file service
		// never see file:// URIs.
		path := URIToPath(uri)
		for _, e := range edits {
			edit.AddEdit(path, proto.TextEdit{
				Range: proto.Range{
					Start: proto.Position{Line: e.Range.Start.Line, Character: e.Range.Start.Character},
					End:   proto.Position{Line: e.Range.End.Line, Character: e.Range.End.Character},
				},
				NewText: e.NewText,
			})
		}
	}
	return edit, nil
}
