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
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy.dev/codebuddy/internal/platform"
	"codebuddy.dev/codebuddy/internal/proto"
)

// discardWriteCloser lets tests exercise Notify/send paths (e.g. the
// didClose the LRU eviction sweep issues) without a real subprocess.
type discardWriteCloser struct{ bytes.Buffer }

func (discardWriteCloser) Close() error { return nil }

func newTestManager(tp *platform.MockTimeProvider) *Manager {
	m := &Manager{
		workspaceRoot: "/workspace",
		fs:            platform.NewMapFS(map[string]string{}),
		timeProvider:  tp,
		specsByExt:    map[string]ServerSpec{},
		byName:        map[string]*ServerState{},
		extToServer:   map[string]*ServerState{},
		stopCleanup:   make(chan struct{}),
	}
	return m
}

// TestSweepOnce_DropsStaleDiagnostics covers the diagnostic-freshness
// property: entries older than the 5-minute TTL are gone after a
// sweep, fresher ones survive.
func TestSweepOnce_DropsStaleDiagnostics(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tp := platform.NewMockTimeProvider(start)
	m := newTestManager(tp)

	server := newServerState(ServerSpec{Name: "gopls"}, tp)
	server.diagnostics["file:///stale.go"] = diagnosticEntry{
		diagnostics: []proto.Diagnostic{{Message: "old"}},
		updatedAt:   start,
	}
	m.byName["gopls"] = server

	tp.AdvanceTime(6 * time.Minute)
	server.diagnostics["file:///fresh.go"] = diagnosticEntry{
		diagnostics: []proto.Diagnostic{{Message: "new"}},
		updatedAt:   tp.Now(),
	}

	m.sweepOnce()

	server.diagMu.Lock()
	defer server.diagMu.Unlock()
	_, staleStillThere := server.diagnostics["file:///stale.go"]
	_, freshStillThere := server.diagnostics["file:///fresh.go"]
	assert.False(t, staleStillThere)
	assert.True(t, freshStillThere)
}

// TestSweepOnce_CapsOpenFilesAtCapViaLRU covers the open-file cap:
// at most 100 entries survive any cleanup sweep, with
// the least-recently-used entries evicted first.
func TestSweepOnce_CapsOpenFilesAtCapViaLRU(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tp := platform.NewMockTimeProvider(start)
	m := newTestManager(tp)

	server := newServerState(ServerSpec{Name: "gopls"}, tp)
	server.stdin = &discardWriteCloser{}
	for i := 0; i < openFilesCap+10; i++ {
		path := fmt.Sprintf("/workspace/f%03d.go", i)
		server.openFiles[path] = &openFileEntry{version: 1, lastUsed: start.Add(time.Duration(i) * time.Second)}
	}
	m.byName["gopls"] = server

	m.sweepOnce()

	require.LessOrEqual(t, len(server.openFiles), openFilesCap)
	// The ten oldest (lowest index, earliest lastUsed) must have been
	// evicted; the ten most recent must survive.
	_, oldestSurvived := server.openFiles["/workspace/f000.go"]
	_, newestSurvived := server.openFiles[fmt.Sprintf("/workspace/f%03d.go", openFilesCap+9)]
	assert.False(t, oldestSurvived)
	assert.True(t, newestSurvived)
}

func TestPathToURI(t *testing.T) {
	assert.Equal(t, "file:///workspace/a.go", PathToURI("/workspace/a.go"))
}

func TestURIToPath(t *testing.T) {
	assert.Equal(t, "/workspace/a.go", URIToPath("file:///workspace/a.go"))
	// non-URI values pass through untouched
	assert.Equal(t, "rel/b.go", URIToPath("rel/b.go"))
}

func TestOpenFileCounts(t *testing.T) {
	tp := platform.NewMockTimeProvider(time.Now())
	m := newTestManager(tp)
	server := newServerState(ServerSpec{Name: "gopls"}, tp)
	server.openFiles["/workspace/a.go"] = &openFileEntry{version: 1}
	server.openFiles["/workspace/b.go"] = &openFileEntry{version: 1}
	m.byName["gopls"] = server

	counts := m.OpenFileCounts()
	assert.Equal(t, 2, counts["gopls"])
}
