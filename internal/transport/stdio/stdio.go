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

// Package stdio is the stdio transport: one MCP session for the
// process lifetime, carried over the SDK's own Content-Length-framed
// JSON-RPC on stdin/stdout via mcp.Server and mcp.StdioTransport rather
// than a hand-rolled framer.
package stdio

import (
	"context"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"codebuddy.dev/codebuddy/internal/dispatcher"
)

// Transport runs one MCP session for the process lifetime: a session
// lives as long as its transport connection, and for stdio that
// connection is the process itself.
type Transport struct {
	Dispatcher *dispatcher.Dispatcher
	ServiceCtx *dispatcher.ServiceContext
}

// New constructs a stdio Transport. Stdio is an in-process, single-tenant
// transport with no network-facing identity to verify (the
// authentication boundary sits at the websocket transport only), so its
// one Session is marked authenticated for its whole lifetime.
func New(d *dispatcher.Dispatcher, svc *dispatcher.ServiceContext) *Transport {
	return &Transport{Dispatcher: d, ServiceCtx: svc}
}

// Run builds an mcp.Server carrying every public tool and runs it over
// mcp.StdioTransport until stdin is closed or ctx is cancelled.
func (t *Transport) Run(ctx context.Context) error {
	session := &dispatcher.Session{ID: uuid.NewString(), Authenticated: true, Initialized: true}
	ep := dispatcher.Endpoint{Session: session, Public: true}

	server := t.Dispatcher.BuildMCPServer(t.ServiceCtx, ep)
	return server.Run(ctx, &mcp.StdioTransport{})
}
