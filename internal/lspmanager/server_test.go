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
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy.dev/codebuddy/internal/platform"
	"codebuddy.dev/codebuddy/internal/proto"
)

func newTestServer() *ServerState {
	tp := platform.NewMockTimeProvider(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return newServerState(ServerSpec{Name: "gopls", Extensions: []string{".go"}}, tp)
}

func TestHasCapability(t *testing.T) {
	s := newTestServer()

	s.mu.Lock()
	s.capabilities = map[string]json.RawMessage{
		"renameProvider":     json.RawMessage(`true`),
		"hoverProvider":      json.RawMessage(`false`),
		"definitionProvider": json.RawMessage(`null`),
	}
	s.mu.Unlock()

	assert.True(t, s.HasCapability("renameProvider"))
	assert.False(t, s.HasCapability("hoverProvider"))
	assert.False(t, s.HasCapability("definitionProvider"))
	assert.False(t, s.HasCapability("neverAdvertised"))
}

// nextRequestID must never hand out the same id twice, even under
// concurrent callers: ids in pending_requests must stay pairwise
// distinct.
func TestNextRequestID_UniqueUnderConcurrency(t *testing.T) {
	s := newTestServer()
	const n = 200
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = s.nextRequestID()
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, id := range ids {
		require.False(t, seen[id], "duplicate request id %d", id)
		seen[id] = true
	}
}

func TestDiagnostics_SnapshotIsACopy(t *testing.T) {
	s := newTestServer()
	s.diagnostics["file:///a.go"] = diagnosticEntry{
		diagnostics: []proto.Diagnostic{{Message: "unused import"}},
		updatedAt:   s.timeProvider.Now(),
	}

	snap := s.Diagnostics("file:///a.go")
	require.Len(t, snap, 1)
	snap[0].Message = "mutated"

	snap2 := s.Diagnostics("file:///a.go")
	require.Len(t, snap2, 1)
	assert.Equal(t, "unused import", snap2[0].Message)
}

func TestDiagnostics_UnknownURIReturnsNil(t *testing.T) {
	s := newTestServer()
	assert.Nil(t, s.Diagnostics("file:///never-seen.go"))
}

func TestLspDiagnosticIn_ToProto_DefaultsSeverity(t *testing.T) {
	d := lspDiagnosticIn{Message: "oops"}
	got := d.toProto()
	assert.Equal(t, proto.SeverityError, got.Severity)
	assert.Equal(t, "oops", got.Message)
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateSpawned:      "spawned",
		StateInitializing: "initializing",
		StateReady:        "ready",
		StateDraining:     "draining",
		StateTerminated:   "terminated",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}
