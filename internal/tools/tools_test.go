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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy.dev/codebuddy/internal/dispatcher"
	"codebuddy.dev/codebuddy/internal/fileservice"
	"codebuddy.dev/codebuddy/internal/platform"
)

// TestCatalog_NoDuplicateToolNames guards the "ambiguity is a
// configuration error at construction, not at query time" contract,
// mirrored for tool names by dispatcher.New.
func TestCatalog_NoDuplicateToolNames(t *testing.T) {
	d, err := dispatcher.New(Catalog()...)
	require.NoError(t, err)
	require.NotNil(t, d)
}

func TestCatalog_InternalToolsAreNotPubliclyVisible(t *testing.T) {
	d, err := dispatcher.New(Catalog()...)
	require.NoError(t, err)

	publicNames := map[string]bool{}
	for _, descr := range d.ListTools(dispatcher.Endpoint{Public: true}) {
		publicNames[descr.Name] = true
	}
	allNames := map[string]bool{}
	for _, descr := range d.ListTools(dispatcher.Endpoint{Public: false}) {
		allNames[descr.Name] = true
	}
	assert.False(t, publicNames["lsp.restart"], "restart is internal-only")
	assert.True(t, allNames["lsp.restart"], "internal tools must still be reachable in-process")
}

func TestReadFile_Handler(t *testing.T) {
	fs := platform.NewMapFS(map[string]string{})
	require.NoError(t, fs.WriteFile("a.txt", []byte("hello"), 0o644))
	svc := &dispatcher.ServiceContext{Files: fileservice.New(fs, nil, nil)}

	tool := ReadFile()
	args, err := json.Marshal(readFileArgs{Path: "a.txt"})
	require.NoError(t, err)

	result, err := tool.Handler(context.Background(), svc, args)
	require.NoError(t, err)

	m, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", m["content"])
}

func TestReadFile_Schema(t *testing.T) {
	tool := ReadFile()
	required, _ := tool.Schema["required"].([]string)
	assert.Contains(t, required, "path")
}
