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
	"net/url"
	"sync"
	"time"

	"codebuddy.dev/codebuddy/internal/platform"
	"codebuddy.dev/codebuddy/internal/proto"
)

const (
	defaultRequestTimeout = 30 * time.Second
	cleanupInterval       = time.Minute
	diagnosticTTL         = 5 * time.Minute
	openFilesCap          = 100
)

// Manager is the LSP session manager: it owns every ServerState,
// keyed by the extension it was looked up with, and the per-minute
// cleanup sweep.
type Manager struct {
	workspaceRoot string
	fs            platform.FileSystem
	timeProvider  platform.TimeProvider

	specsByExt map[string]ServerSpec

	mu          sync.Mutex
	byName      map[string]*ServerState
	extToServer map[string]*ServerState

	stopCleanup chan struct{}
}

// NewManager constructs a Manager for the given workspace root and set of
// configured server specs (one entry may claim several extensions).
func NewManager(workspaceRoot string, specs []ServerSpec, fs platform.FileSystem, tp platform.TimeProvider) *Manager {
	m := &Manager{
		workspaceRoot: workspaceRoot,
		fs:            fs,
		timeProvider:  tp,
		specsByExt:    make(map[string]ServerSpec),
		byName:        make(map[string]*ServerState),
		extToServer:   make(map[string]*ServerState),
		stopCleanup:   make(chan struct{}),
	}
	for _, spec := range specs {
		if spec.Timeout == 0 {
			spec.Timeout = defaultRequestTimeout
		}
		for _, ext := range spec.Extensions {
			m.specsByExt[ext] = spec
		}
	}
	go m.cleanupLoop()
	return m
}

// OpenFileCounts returns the number of currently-open files for each
// running language server, keyed by server name, for the ws transport's
// open-files-per-server gauge.
func (m *Manager) OpenFileCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int, len(m.byName))
	for name, s := range m.byName {
		s.mu.Lock()
		counts[name] = len(s.openFiles)
		s.mu.Unlock()
	}
	return counts
}

// Close stops the cleanup loop and kills every live server.
func (m *Manager) Close() {
	close(m.stopCleanup)
	m.mu.Lock()
	servers := make([]*ServerState, 0, len(m.byName))
	for _, s := range m.byName {
		servers = append(servers, s)
	}
	m.mu.Unlock()
	for _, s := range servers {
		s.setState(StateDraining)
		s.cancelAllPending()
		s.kill()
	}
}

// GetServer returns the ready ServerState for ext, spawning and
// initializing it on first use. Concurrent callers for the same
// not-yet-started extension share the same initialization (at-most-once
// start per extension).
func (m *Manager) GetServer(ctx context.Context, ext string) (*ServerState, error) {
	spec, ok := m.specsByExt[ext]
	if !ok {
		return nil, proto.ErrorLspUnavailable(ext)
	}

	m.mu.Lock()
	if existing, ok := m.byName[spec.Name]; ok {
		m.mu.Unlock()
		<-existing.readyCh
		if existing.initErr != nil {
			return nil, existing.initErr
		}
		if existing.State() == StateDraining || existing.State() == StateTerminated {
			return m.restartAndGet(ctx, spec)
		}
		return existing, nil
	}

	server := newServerState(spec, m.timeProvider)
	m.byName[spec.Name] = server
	for _, e := range spec.Extensions {
		m.extToServer[e] = server
	}
	m.mu.Unlock()

	m.initialize(ctx, server)
	if server.initErr != nil {
		return nil, server.initErr
	}
	return server, nil
}

func (m *Manager) restartAndGet(ctx context.Context, spec ServerSpec) (*ServerState, error) {
	if err := m.Restart(ctx, spec.Extensions[0]); err != nil {
		return nil, err
	}
	return m.GetServer(ctx, spec.Extensions[0])
}

func (m *Manager) initialize(ctx context.Context, server *ServerState) {
	defer close(server.readyCh)

	server.setState(StateSpawned)
	if err := server.spawn(m.workspaceRoot); err != nil {
		server.initErr = fmt.Errorf("lspmanager: spawn %q: %w", server.spec.Name, err)
		server.setState(StateTerminated)
		return
	}

	server.setState(StateInitializing)

	initCtx, cancel := context.WithTimeout(ctx, server.spec.Timeout)
	defer cancel()

	rootURI := pathToURI(m.workspaceRoot)
	params := map[string]any{
		"processId": nil,
		"rootUri":   rootURI,
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"synchronization":    map[string]any{"didSave": true},
				"publishDiagnostics": map[string]any{},
				"rename":             map[string]any{"prepareSupport": true},
				"codeAction":         map[string]any{},
				"references":         map[string]any{},
			},
			"workspace": map[string]any{
				"applyEdit":     true,
				"workspaceEdit": map[string]any{"documentChanges": true},
			},
		},
		"workspaceFolders": []map[string]any{
			{"uri": rootURI, "name": "workspace"},
		},
	}

	result, err := server.Request(initCtx, "initialize", params)
	if err != nil {
		server.initErr = fmt.Errorf("lspmanager: initialize %q: %w", server.spec.Name, err)
		server.kill()
		server.setState(StateTerminated)
		return
	}

	var initResult struct {
		Capabilities map[string]json.RawMessage `json:"capabilities"`
	}
	if err := json.Unmarshal(result, &initResult); err != nil {
		server.initErr = fmt.Errorf("lspmanager: decode initialize result for %q: %w", server.spec.Name, err)
		server.kill()
		server.setState(StateTerminated)
		return
	}

	server.mu.Lock()
	server.capabilities = initResult.Capabilities
	server.mu.Unlock()

	if err := server.Notify("initialized", map[string]any{}); err != nil {
		server.initErr = fmt.Errorf("lspmanager: send initialized to %q: %w", server.spec.Name, err)
		server.kill()
		server.setState(StateTerminated)
		return
	}

	server.setState(StateReady)
}

// Restart implements the restart(ext) operation: mark the existing
// state draining, cancel pending requests, kill the process, clear state
// so the next request re-initializes.
func (m *Manager) Restart(ctx context.Context, ext string) error {
	spec, ok := m.specsByExt[ext]
	if !ok {
		return proto.ErrorLspUnavailable(ext)
	}

	m.mu.Lock()
	existing, ok := m.byName[spec.Name]
	if ok {
		existing.setState(StateDraining)
	}
	delete(m.byName, spec.Name)
	for _, e := range spec.Extensions {
		delete(m.extToServer, e)
	}
	m.mu.Unlock()

	if ok {
		existing.cancelAllPending()
		existing.kill()
		existing.setState(StateTerminated)
	}
	return nil
}

// EnsureOpen opens path on the server for ext if it is not already open,
// sending didOpen at version 1.
func (m *Manager) EnsureOpen(ctx context.Context, ext, path, languageID string) (*ServerState, error) {
	server, err := m.GetServer(ctx, ext)
	if err != nil {
		return nil, err
	}

	server.mu.Lock()
	_, open := server.openFiles[path]
	server.mu.Unlock()
	if open {
		m.touch(server, path)
		return server, nil
	}

	content, err := m.fs.ReadFile(path)
	if err != nil {
		return nil, proto.ErrorIo(path, err)
	}

	if err := server.Notify("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{
			"uri":        pathToURI(path),
			"languageId": languageID,
			"version":    1,
			"text":       string(content),
		},
	}); err != nil {
		return nil, err
	}

	server.mu.Lock()
	server.openFiles[path] = &openFileEntry{version: 1, lastUsed: m.timeProvider.Now()}
	server.mu.Unlock()

	return server, nil
}

func (m *Manager) touch(server *ServerState, path string) {
	server.mu.Lock()
	if entry, ok := server.openFiles[path]; ok {
		entry.lastUsed = m.timeProvider.Now()
	}
	server.mu.Unlock()
}

// NotifyChange bumps path's open version on server and sends didChange
// with the full new text, called by the file service after every write
// that affects an already-open document.
func (m *Manager) NotifyChange(server *ServerState, path, newContent string) error {
	server.mu.Lock()
	entry, ok := server.openFiles[path]
	if !ok {
		entry = &openFileEntry{version: 0}
		server.openFiles[path] = entry
	}
	entry.version++
	version := entry.version
	entry.lastUsed = m.timeProvider.Now()
	server.mu.Unlock()

	return server.Notify("textDocument/didChange", map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path), "version": version},
		"contentChanges": []map[string]any{
			{"text": newContent},
		},
	})
}

// CloseFile sends didClose and forgets path's open-file entry.
func (m *Manager) CloseFile(server *ServerState, path string) error {
	server.mu.Lock()
	delete(server.openFiles, path)
	server.mu.Unlock()
	return server.Notify("textDocument/didClose", map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
	})
}

// NotifyFileChanged issues didChange on every server that currently has
// path open, bumping its version. The file service calls this after a
// successful write or apply_edit_plan so downstream servers never see a
// stale buffer for a file edited through codebuddy itself.
func (m *Manager) NotifyFileChanged(path, newContent string) error {
	m.mu.Lock()
	servers := make([]*ServerState, 0, len(m.byName))
	for _, s := range m.byName {
		servers = append(servers, s)
	}
	m.mu.Unlock()

	for _, server := range servers {
		server.mu.Lock()
		_, open := server.openFiles[path]
		server.mu.Unlock()
		if !open {
			continue
		}
		if err := m.NotifyChange(server, path, newContent); err != nil {
			return err
		}
	}
	return nil
}

// cleanupLoop runs the periodic 1-minute hygiene sweep: drop
// diagnostics older than 5 minutes, cap open_files at 100 entries per
// server via LRU eviction.
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweepOnce()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) sweepOnce() {
	m.mu.Lock()
	servers := make([]*ServerState, 0, len(m.byName))
	for _, s := range m.byName {
		servers = append(servers, s)
	}
	m.mu.Unlock()

	now := m.timeProvider.Now()
	for _, server := range servers {
		server.diagMu.Lock()
		for uri, entry := range server.diagnostics {
			if now.Sub(entry.updatedAt) > diagnosticTTL {
				delete(server.diagnostics, uri)
			}
		}
		server.diagMu.Unlock()

		server.mu.Lock()
		if len(server.openFiles) > openFilesCap {
			type kv struct {
				path string
				last time.Time
			}
			entries := make([]kv, 0, len(server.openFiles))
			for path, e := range server.openFiles {
				entries = append(entries, kv{path, e.lastUsed})
			}
			server.mu.Unlock()

			// sort oldest-first
			for i := 1; i < len(entries); i++ {
				for j := i; j > 0 && entries[j].last.Before(entries[j-1].last); j-- {
					entries[j], entries[j-1] = entries[j-1], entries[j]
				}
			}
			excess := len(entries) - openFilesCap
			for i := 0; i < excess; i++ {
				_ = m.CloseFile(server, entries[i].path)
			}
		} else {
			server.mu.Unlock()
		}
	}
}

func pathToURI(path string) string {
	return PathToURI(path)
}

// PathToURI converts a filesystem path to a file:// URI, the form every
// LSP request and notification carries a document identity as. Exported
// for callers (e.g. the diagnostics tool handler) that need to look up
// ServerState.Diagnostics by the same key EnsureOpen/NotifyChange use.
func PathToURI(path string) string {
	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}

// URIToPath converts a file:// URI back to a filesystem path. Responses
// from downstream servers (rename WorkspaceEdits, reference locations)
// carry URIs, while everything above the session manager — the planner,
// the file service — works in paths. A value that is not a file URI is
// returned unchanged.
func URIToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return u.Path
}
