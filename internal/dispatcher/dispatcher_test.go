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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"codebuddy.dev/codebuddy/internal/proto"
)

func echoTool(name string, vis Visibility) *Tool {
	return &Tool{
		Name:       name,
		Visibility: vis,
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"path"},
			"properties": map[string]any{
				"path": map[string]any{"type": "string"},
			},
		},
		Handler: func(ctx context.Context, svc *ServiceContext, args json.RawMessage) (any, error) {
			var decoded struct {
				Path string `json:"path"`
			}
			_ = json.Unmarshal(args, &decoded)
			return map[string]any{"session": svc.Session.ID, "path": decoded.Path}, nil
		},
	}
}

func TestNew_RejectsDuplicateNames(t *testing.T) {
	_, err := New(echoTool("a", Public), echoTool("a", Public))
	require.Error(t, err)
}

func TestDispatch_MissingRequiredArg(t *testing.T) {
	d, err := New(echoTool("file.read", Public))
	require.NoError(t, err)
	svc := &ServiceContext{}
	ep := Endpoint{Session: &Session{ID: "s1"}, Public: true}

	_, apiErr := d.Dispatch(context.Background(), svc, ep, "file.read", json.RawMessage(`{}`))
	require.NotNil(t, apiErr)
	assert.Equal(t, proto.ErrInvalidRequest, apiErr.Kind)
}

func TestDispatch_ToolNotFound(t *testing.T) {
	d, err := New(echoTool("file.read", Public))
	require.NoError(t, err)
	svc := &ServiceContext{}
	ep := Endpoint{Session: &Session{ID: "s1"}, Public: true}

	_, apiErr := d.Dispatch(context.Background(), svc, ep, "nope", nil)
	require.NotNil(t, apiErr)
	assert.Equal(t, proto.ErrToolNotFound, apiErr.Kind)
}

func TestDispatch_InternalToolHiddenFromPublicEndpoint(t *testing.T) {
	d, err := New(echoTool("lsp.restart", Internal))
	require.NoError(t, err)
	svc := &ServiceContext{}
	ep := Endpoint{Session: &Session{ID: "s1"}, Public: true}

	_, apiErr := d.Dispatch(context.Background(), svc, ep, "lsp.restart", json.RawMessage(`{"path":"a.go"}`))
	require.NotNil(t, apiErr)
	assert.Equal(t, proto.ErrToolNotVisible, apiErr.Kind)
}

func TestDispatch_InternalToolReachableFromInternalEndpoint(t *testing.T) {
	d, err := New(echoTool("lsp.restart", Internal))
	require.NoError(t, err)
	svc := &ServiceContext{}
	ep := Endpoint{Session: &Session{ID: "s1"}, Public: false}

	result, apiErr := d.Dispatch(context.Background(), svc, ep, "lsp.restart", json.RawMessage(`{"path":"a.go"}`))
	require.Nil(t, apiErr)
	assert.NotNil(t, result)
}

// Each dispatch must see the calling Endpoint's own Session, never a
// previous call's, even though every call shares one *ServiceContext.
func TestDispatch_PerCallSessionIsolation(t *testing.T) {
	d, err := New(echoTool("file.read", Public))
	require.NoError(t, err)
	svc := &ServiceContext{}

	epA := Endpoint{Session: &Session{ID: "session-a"}, Public: true}
	epB := Endpoint{Session: &Session{ID: "session-b"}, Public: true}

	resultA, apiErr := d.Dispatch(context.Background(), svc, epA, "file.read", json.RawMessage(`{"path":"a.go"}`))
	require.Nil(t, apiErr)
	resultB, apiErr := d.Dispatch(context.Background(), svc, epB, "file.read", json.RawMessage(`{"path":"b.go"}`))
	require.Nil(t, apiErr)

	assert.Equal(t, "session-a", resultA.(map[string]any)["session"])
	assert.Equal(t, "session-b", resultB.(map[string]any)["session"])
	assert.Nil(t, svc.Session, "shared ServiceContext must never be mutated by a dispatch")
}

func TestListTools_FiltersInternalForPublicEndpoint(t *testing.T) {
	d, err := New(echoTool("file.read", Public), echoTool("lsp.restart", Internal))
	require.NoError(t, err)

	publicList := d.ListTools(Endpoint{Public: true})
	assert.Len(t, publicList, 1)
	assert.Equal(t, "file.read", publicList[0].Name)

	internalList := d.ListTools(Endpoint{Public: false})
	assert.Len(t, internalList, 2)
}

func TestCallTool_WrapsHandlerResultAsTextContent(t *testing.T) {
	d, err := New(echoTool("file.read", Public))
	require.NoError(t, err)
	svc := &ServiceContext{}
	ep := Endpoint{Session: &Session{ID: "s1"}, Public: true}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: "file.read", Arguments: json.RawMessage(`{"path":"a.go"}`)},
	}
	result, err := d.CallTool(context.Background(), svc, ep, req)
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"path":"a.go"`)
}

func TestCallTool_WrapsApiErrorAsErrorResult(t *testing.T) {
	d, err := New(echoTool("file.read", Public))
	require.NoError(t, err)
	svc := &ServiceContext{}
	ep := Endpoint{Session: &Session{ID: "s1"}, Public: true}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: "nope", Arguments: json.RawMessage(`{}`)},
	}
	result, err := d.CallTool(context.Background(), svc, ep, req)
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, string(proto.ErrToolNotFound))
}

func TestBuildMCPServer_FixesEndpointForServerLifetime(t *testing.T) {
	d, err := New(echoTool("file.read", Public), echoTool("lsp.restart", Internal))
	require.NoError(t, err)
	svc := &ServiceContext{}
	ep := Endpoint{Session: &Session{ID: "s1"}, Public: true}

	server := d.BuildMCPServer(svc, ep)
	assert.NotNil(t, server)
}

func TestHandleRequest_ToolsCallWrapsApiErrorAsWireError(t *testing.T) {
	d, err := New(echoTool("file.read", Public))
	require.NoError(t, err)
	svc := &ServiceContext{}
	ep := Endpoint{Session: &Session{ID: "s1"}, Public: true}

	params, _ := json.Marshal(map[string]any{"name": "file.read", "arguments": map[string]any{}})
	id := int64(1)
	resp := d.HandleRequest(context.Background(), svc, ep, Request{JSONRPC: "2.0", ID: &id, Method: "tools/call", Params: params})

	require.NotNil(t, resp.Error)
	assert.Equal(t, string(proto.ErrInvalidRequest), resp.Error.Code)
}

func TestHandleRequest_UnknownMethod(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	svc := &ServiceContext{}
	ep := Endpoint{Session: &Session{ID: "s1"}, Public: true}

	resp := d.HandleRequest(context.Background(), svc, ep, Request{JSONRPC: "2.0", Method: "bogus"})
	require.NotNil(t, resp.Error)
}

func TestHandleRequest_NotificationGetsNoReply(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	svc := &ServiceContext{}
	ep := Endpoint{Session: &Session{ID: "s1"}, Public: true}

	resp := d.HandleRequest(context.Background(), svc, ep, Request{JSONRPC: "2.0", Method: "notifications/initialized"})
	assert.Nil(t, resp.ID)
	assert.Nil(t, resp.Result)
	assert.Nil(t, resp.Error)
}
