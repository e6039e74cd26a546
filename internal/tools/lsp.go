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

package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"codebuddy.dev/codebuddy/internal/dispatcher"
	"codebuddy.dev/codebuddy/internal/lspmanager"
	"codebuddy.dev/codebuddy/internal/proto"
)

type lspDiagnosticsArgs struct {
	Path string `json:"path"`
}

// Diagnostics exposes the diagnostics an LSP server has already pushed
// for path as the "lsp.diagnostics" tool. It ensures the file is open on
// its owning server (spawning/initializing on first use) so a
// client can call this immediately after planning a rename without a
// separate "open" step, then reads whatever PublishDiagnostics has
// delivered so far — diagnostics are push-driven, not pulled per call.
func Diagnostics() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name:        "lsp.diagnostics",
		Description: "Return the language server's current diagnostics for a file.",
		Visibility:  dispatcher.Public,
		Schema: object([]string{"path"}, map[string]any{
			"path": prop("string", "File to fetch diagnostics for."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args lspDiagnosticsArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			ext := strings.ToLower(filepath.Ext(args.Path))
			plugin, _ := svc.Registry.LookupByPath(args.Path)
			langID := ""
			if plugin != nil {
				langID = plugin.Name()
			}
			server, err := svc.LSP.EnsureOpen(ctx, ext, args.Path, langID)
			if err != nil {
				return nil, err
			}
			diags := server.Diagnostics(lspmanager.PathToURI(args.Path))
			if diags == nil {
				diags = []proto.Diagnostic{}
			}
			return map[string]any{"path": args.Path, "diagnostics": diags}, nil
		},
	}
}

type lspRestartArgs struct {
	Extension string `json:"extension"`
}

// Restart exposes Manager.Restart as "lsp.restart". It is internal:
// restarting a downstream server is an operational action,
// not part of the public code-intelligence surface handed to either
// transport's external caller.
func Restart() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name:        "lsp.restart",
		Description: "Restart the language server owning a file extension.",
		Visibility:  dispatcher.Internal,
		Schema: object([]string{"extension"}, map[string]any{
			"extension": prop("string", "File extension, including the leading dot, e.g. \".go\"."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args lspRestartArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			if err := svc.LSP.Restart(ctx, args.Extension); err != nil {
				return nil, err
			}
			return map[string]any{"extension": args.Extension, "restarted": true}, nil
		},
	}
}
