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

package dispatcher

import (
	"context"
	"encoding/json"
)

// Request is one MCP JSON-RPC 2.0 request or notification. A
// notification omits ID.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one MCP JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      *int64        `json:"id,omitempty"`
	Result  any           `json:"result,omitempty"`
	Error   *WireError    `json:"error,omitempty"`
}

// WireError is the wire error shape: {code, message, details?}.
type WireError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type initializeResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

// HandleRequest routes one JSON-RPC request through the supported
// method names (initialize, tools/list, tools/call) and returns the
// response envelope to write back. The websocket transport calls this
// for each message it does not handle itself; the stdio transport goes
// through BuildMCPServer and CallTool instead. Both paths reach Dispatch
// and toWireError, so schema validation and error-shape conversion live
// in one place regardless of transport.
func (d *Dispatcher) HandleRequest(ctx context.Context, svc *ServiceContext, ep Endpoint, req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		if ep.Session != nil {
			ep.Session.Initialized = true
		}
		result := initializeResult{ProtocolVersion: "2024-11-05"}
		result.ServerInfo.Name = "codebuddy"
		result.ServerInfo.Version = "0.1.0"
		resp.Result = result

	case "tools/list":
		resp.Result = map[string]any{"tools": d.ListTools(ep)}

	case "tools/call":
		var params toolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = toWireError(errorInvalidParams(err))
			return resp
		}
		result, apiErr := d.Dispatch(ctx, svc, ep, params.Name, params.Arguments)
		if apiErr != nil {
			resp.Error = toWireError(apiErr)
			return resp
		}
		resp.Result = map[string]any{"content": result}

	default:
		if isNotification(req.Method) {
			// Notifications carry no id and expect no response; the
			// transport loop is expected to skip writing one. We still
			// return a zero-value Response so callers have a uniform
			// type; ID is nil so a caller can detect "no reply needed".
			return Response{}
		}
		resp.Error = toWireError(errorMethodNotFound(req.Method))
	}
	return resp
}

func isNotification(method string) bool {
	return len(method) > len("notifications/") && method[:len("notifications/")] == "notifications/"
}
