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
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"codebuddy.dev/codebuddy/internal/logging"
	"codebuddy.dev/codebuddy/internal/proto"
)

// Visibility is a closed two-value set: a tool is
// either reachable from both transports, or only from in-process
// workflows that construct a Dispatcher call directly with a
// non-Public Endpoint.
type Visibility int

const (
	Public Visibility = iota
	Internal
)

// Handler is a tool's implementation. args is the "arguments" member of
// the tools/call request, already known to satisfy Schema's required
// keys. The returned value is marshaled to JSON for the result envelope.
type Handler func(ctx context.Context, svc *ServiceContext, args json.RawMessage) (any, error)

// Tool is one entry in the dispatcher's registry.
type Tool struct {
	Name        string
	Description string
	Visibility  Visibility
	// Schema is a raw JSON Schema object (standard "type"/"properties"/
	// "required" keys), the same shape callers would hand to any
	// JSON-Schema-validating client. It is both the source of the
	// "tools/list" wire schema and the input to the dispatcher's own
	// lightweight required-field check.
	Schema  map[string]any
	Handler Handler
}

// Dispatcher is the tool dispatcher: a {name → handler} registry
// built once at startup.
type Dispatcher struct {
	tools  map[string]*Tool
	logger *logging.Logger
}

// New builds a Dispatcher from tools, failing at construction time (not
// at dispatch time) if two tools share a name — mirroring the plugin
// registry's "ambiguity is a configuration error" contract.
func New(tools ...*Tool) (*Dispatcher, error) {
	d := &Dispatcher{
		tools:  make(map[string]*Tool, len(tools)),
		logger: logging.Global().WithCorrelation("dispatcher"),
	}
	for _, t := range tools {
		if _, exists := d.tools[t.Name]; exists {
			return nil, fmt.Errorf("dispatcher: duplicate tool name %q", t.Name)
		}
		d.tools[t.Name] = t
	}
	return d, nil
}

// ListTools returns every tool visible from ep as an SDK *mcp.Tool, the
// same type the tools/list response and BuildMCPServer's registration
// both serialize.
func (d *Dispatcher) ListTools(ep Endpoint) []*mcp.Tool {
	var out []*mcp.Tool
	for _, t := range d.tools {
		if ep.Public && t.Visibility != Public {
			continue
		}
		out = append(out, &mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: toWireSchema(t.Schema),
		})
	}
	return out
}

// toWireSchema round-trips the raw schema map through jsonschema.Schema,
// the typed shape mcp.Tool.InputSchema expects. A tool with no schema
// gets an empty object schema.
func toWireSchema(raw map[string]any) *jsonschema.Schema {
	if raw == nil {
		return &jsonschema.Schema{Type: "object"}
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(body, &schema); err != nil {
		return nil
	}
	return &schema
}

// Dispatch resolves name, checks visibility for ep, validates args
// against the tool's schema, and invokes its handler. It is the only
// place internal errors get a correlation id and get collapsed to
// proto.ErrInternal before reaching the wire; internal details go to
// the logs, not the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, svc *ServiceContext, ep Endpoint, name string, args json.RawMessage) (any, *proto.ApiError) {
	tool, ok := d.tools[name]
	if !ok {
		return nil, proto.ErrorToolNotFound(name)
	}
	if ep.Public && tool.Visibility != Public {
		return nil, proto.ErrorToolNotVisible(name)
	}
	if apiErr := validateArgs(tool.Schema, args); apiErr != nil {
		return nil, apiErr
	}

	// Copy rather than mutate: svc is shared across every concurrent call
	// in flight at once; only Session varies per call, so each
	// dispatch gets its own shallow copy instead of racing on the shared
	// pointer's Session field.
	callCtx := *svc
	callCtx.Session = ep.Session
	result, err := tool.Handler(ctx, &callCtx, args)
	if err == nil {
		return result, nil
	}

	var apiErr *proto.ApiError
	if errors.As(err, &apiErr) {
		return nil, apiErr
	}
	correlationID := uuid.NewString()
	d.logger.Error("tool %q failed [%s]: %v", name, correlationID, err)
	return nil, proto.ErrorInternal(correlationID, err)
}

// BuildMCPServer builds an *mcp.Server carrying every tool visible from
// ep, each registered with AddTool and an mcp.ToolHandler closure over
// CallTool. ep is fixed for the life of the returned server, which is the
// right shape for stdio (one Session per transport connection) but not
// for a multi-tenant listener — the websocket transport instead calls
// Dispatch/HandleRequest per message with the connection's own Endpoint.
func (d *Dispatcher) BuildMCPServer(svc *ServiceContext, ep Endpoint) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "codebuddy", Version: "0.1.0"}, nil)
	for _, tool := range d.ListTools(ep) {
		tool := tool
		server.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return d.CallTool(ctx, svc, ep, req)
		})
	}
	return server
}

// CallTool adapts one SDK tools/call invocation onto Dispatch, converting
// the result (or the closed proto.ApiError taxonomy on failure) into the
// CallToolResult shape mcp.ToolHandler must return. A non-nil Go error is
// reserved for failures the SDK itself should treat as protocol errors;
// every tool-level failure instead comes back as an IsError result.
func (d *Dispatcher) CallTool(ctx context.Context, svc *ServiceContext, ep Endpoint, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args json.RawMessage
	if req.Params != nil {
		args = req.Params.Arguments
	}
	result, apiErr := d.Dispatch(ctx, svc, ep, req.Params.Name, args)
	if apiErr != nil {
		return errorToolResult(apiErr), nil
	}

	body, err := json.Marshal(result)
	if err != nil {
		correlationID := uuid.NewString()
		d.logger.Error("tool %q result marshal failed [%s]: %v", req.Params.Name, correlationID, err)
		return errorToolResult(proto.ErrorInternal(correlationID, err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}, nil
}

// errorToolResult renders an ApiError through the same wire shape
// toWireError produces, carried as the tool result's text content with
// IsError set rather than as a JSON-RPC-level error.
func errorToolResult(e *proto.ApiError) *mcp.CallToolResult {
	body, _ := json.Marshal(toWireError(e))
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}
}

// validateArgs checks that every key schema.required names is present
// and non-null in args, and that present properties of scalar JSON-Schema
// "type" match. It is intentionally not a full JSON Schema validator —
// the dispatcher's job is to reject obviously malformed calls
// fast, not to replace a client-side schema library.
func validateArgs(schema map[string]any, args json.RawMessage) *proto.ApiError {
	if schema == nil {
		return nil
	}
	var decoded map[string]any
	if len(args) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(args, &decoded); err != nil {
		return proto.ErrorInvalidRequest("arguments must be a JSON object: " + err.Error())
	}

	var required []string
	switch r := schema["required"].(type) {
	case []string:
		required = r
	case []any:
		for _, v := range r {
			if key, ok := v.(string); ok {
				required = append(required, key)
			}
		}
	}
	for _, key := range required {
		if key == "" {
			continue
		}
		if v, present := decoded[key]; !present || v == nil {
			return proto.ErrorInvalidRequest(fmt.Sprintf("missing required argument %q", key))
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for key, value := range decoded {
		propSchema, ok := properties[key].(map[string]any)
		if !ok {
			continue
		}
		wantType, _ := propSchema["type"].(string)
		if wantType == "" || value == nil {
			continue
		}
		if !typeMatches(wantType, value) {
			return proto.ErrorInvalidRequest(fmt.Sprintf("argument %q must be of type %q", key, wantType))
		}
	}
	return nil
}

func typeMatches(jsonType string, v any) bool {
	switch jsonType {
	case "string":
		_, ok := v.(string)
		return ok
	case "number", "integer":
		_, ok := v.(float64)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}
