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
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"codebuddy.dev/codebuddy/internal/logging"
	"codebuddy.dev/codebuddy/internal/platform"
	"codebuddy.dev/codebuddy/internal/proto"
)

// State is a server's position in the Spawned -> Initializing -> Ready
// (<-> Draining) -> Terminated state machine. Requests are
// accepted only in Ready.
type State int

const (
	StateSpawned State = iota
	StateInitializing
	StateReady
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateSpawned:
		return "spawned"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ServerSpec configures one downstream language server, as read from the
// "lsp.servers[]" config key.
type ServerSpec struct {
	Name             string
	Command          []string
	Extensions       []string
	Timeout          time.Duration
	WorkingDirectory string
	Environment      map[string]string
	RestartInterval  time.Duration
}

type pendingRequest struct {
	resultCh chan rpcMessage
	cancel   context.CancelFunc
}

type openFileEntry struct {
	version  int
	lastUsed time.Time
}

type diagnosticEntry struct {
	diagnostics []proto.Diagnostic
	updatedAt   time.Time
}

// ServerState is one subprocess and everything the session manager knows
// about it: pending requests, open documents, capabilities, diagnostics.
// The session manager exclusively owns it.
type ServerState struct {
	spec ServerSpec

	cmd   *exec.Cmd
	stdin io.WriteCloser

	writeMu sync.Mutex // serializes stdin writes; frames must never interleave

	mu           sync.Mutex
	state        State
	capabilities map[string]json.RawMessage
	pending      map[int64]*pendingRequest
	openFiles    map[string]*openFileEntry

	diagMu      sync.Mutex
	diagnostics map[string]diagnosticEntry

	nextID int64

	readyCh chan struct{}
	initErr error

	timeProvider platform.TimeProvider
	logger       *logging.Logger

	incoming chan rpcMessage
	ioErrs   chan error

	done chan struct{} // closed once the process has been reaped
}

func newServerState(spec ServerSpec, tp platform.TimeProvider) *ServerState {
	return &ServerState{
		spec:         spec,
		state:        StateSpawned,
		capabilities: make(map[string]json.RawMessage),
		pending:      make(map[int64]*pendingRequest),
		openFiles:    make(map[string]*openFileEntry),
		diagnostics:  make(map[string]diagnosticEntry),
		readyCh:      make(chan struct{}),
		timeProvider: tp,
		logger:       logging.Global().WithCorrelation("lsp:" + spec.Name),
		incoming:     make(chan rpcMessage, 64),
		ioErrs:       make(chan error, 8),
		done:         make(chan struct{}),
	}
}

// State reports the server's current lifecycle state.
func (s *ServerState) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ServerState) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// HasCapability reports whether the server's initialize response
// advertised the named capability key.
func (s *ServerState) HasCapability(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.capabilities[key]
	if !ok {
		return false
	}
	// A capability key present but explicitly `false` or `null` does not
	// count as advertised.
	trimmed := string(raw)
	return trimmed != "false" && trimmed != "null"
}

func (s *ServerState) spawn(workspaceRoot string) error {
	if len(s.spec.Command) == 0 {
		return fmt.Errorf("lspmanager: server %q has no command configured", s.spec.Name)
	}
	cmd := exec.Command(s.spec.Command[0], s.spec.Command[1:]...)
	cmd.Dir = s.spec.WorkingDirectory
	if cmd.Dir == "" {
		cmd.Dir = workspaceRoot
	}
	if len(s.spec.Environment) > 0 {
		env := os.Environ()
		for k, v := range s.spec.Environment {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("lspmanager: stdin pipe for %q: %w", s.spec.Name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("lspmanager: stdout pipe for %q: %w", s.spec.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("lspmanager: stderr pipe for %q: %w", s.spec.Name, err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return fmt.Errorf("lspmanager: start %q: %w", s.spec.Name, err)
	}

	s.cmd = cmd
	s.stdin = stdin

	go readFramedMessages(stdout, s.incoming, s.ioErrs)
	go s.drainStderr(stderr)
	go s.dispatchLoop()
	go s.waitForExit()

	return nil
}

// drainStderr forwards the downstream server's own log output to ours at
// debug level; language servers routinely chatter on stderr and it would
// otherwise be silently discarded.
func (s *ServerState) drainStderr(r io.ReadCloser) {
	defer r.Close()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.logger.Debug("stderr: %s", string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

func (s *ServerState) waitForExit() {
	_ = s.cmd.Wait()
	s.setState(StateTerminated)
	close(s.done)
}

// dispatchLoop fans incoming messages out to pending-request waiters
// (responses) or the diagnostics/notification handlers (notifications).
func (s *ServerState) dispatchLoop() {
	for {
		select {
		case msg, ok := <-s.incoming:
			if !ok {
				return
			}
			s.handleMessage(msg)
		case err, ok := <-s.ioErrs:
			if !ok {
				return
			}
			s.logger.Warning("%s: transport error: %v", s.spec.Name, err)
		}
	}
}

func (s *ServerState) handleMessage(msg rpcMessage) {
	if msg.ID != nil && msg.Method == "" {
		// Response to one of our requests.
		s.mu.Lock()
		pr, ok := s.pending[*msg.ID]
		if ok {
			delete(s.pending, *msg.ID)
		}
		s.mu.Unlock()
		if ok {
			pr.resultCh <- msg
		}
		return
	}

	switch msg.Method {
	case "textDocument/publishDiagnostics":
		s.handlePublishDiagnostics(msg.Params)
	case "window/logMessage", "window/showMessage":
		s.logger.Debug("%s notification %s: %s", s.spec.Name, msg.Method, string(msg.Params))
	}
}

func (s *ServerState) handlePublishDiagnostics(params json.RawMessage) {
	var payload struct {
		URI         string            `json:"uri"`
		Diagnostics []lspDiagnosticIn `json:"diagnostics"`
	}
	if err := json.Unmarshal(params, &payload); err != nil {
		s.logger.Warning("%s: malformed publishDiagnostics: %v", s.spec.Name, err)
		return
	}
	diags := make([]proto.Diagnostic, 0, len(payload.Diagnostics))
	for _, d := range payload.Diagnostics {
		diags = append(diags, d.toProto())
	}
	s.diagMu.Lock()
	s.diagnostics[payload.URI] = diagnosticEntry{
		diagnostics: diags,
		updatedAt:   s.timeProvider.Now(),
	}
	s.diagMu.Unlock()
}

// Diagnostics returns a snapshot of the diagnostics currently held for
// uri, without copying the whole map under lock for longer than needed.
func (s *ServerState) Diagnostics(uri string) []proto.Diagnostic {
	s.diagMu.Lock()
	defer s.diagMu.Unlock()
	entry, ok := s.diagnostics[uri]
	if !ok {
		return nil
	}
	return append([]proto.Diagnostic(nil), entry.diagnostics...)
}

// nextRequestID returns a fresh, process-lifetime-unique request id for
// this server (testable property: ids in pending_requests are pairwise
// distinct).
func (s *ServerState) nextRequestID() int64 {
	return atomic.AddInt64(&s.nextID, 1)
}

// Request sends method/params and blocks until a response arrives or ctx
// is done, in which case it sends $/cancelRequest downstream. A caller
// context without its own deadline gets the server's configured
// per-request timeout (default 30s).
func (s *ServerState) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if s.State() != StateReady && method != "initialize" {
		return nil, proto.NewError(proto.ErrLspUnavailable, fmt.Sprintf("server %q is not ready", s.spec.Name), nil)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.spec.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, s.spec.Timeout)
		defer cancelTimeout()
	}

	id := s.nextRequestID()
	reqCtx, cancel := context.WithCancel(ctx)

	pr := &pendingRequest{resultCh: make(chan rpcMessage, 1), cancel: cancel}
	s.mu.Lock()
	s.pending[id] = pr
	s.mu.Unlock()

	rawParams, err := json.Marshal(params)
	if err != nil {
		s.removePending(id)
		cancel()
		return nil, fmt.Errorf("lspmanager: marshal params for %s: %w", method, err)
	}

	if err := s.send(rpcMessage{JSONRPC: "2.0", ID: &id, Method: method, Params: rawParams}); err != nil {
		s.removePending(id)
		cancel()
		return nil, err
	}

	select {
	case msg := <-pr.resultCh:
		cancel()
		if msg.Error != nil {
			return nil, proto.NewError(proto.ErrLspError, msg.Error.Message, nil).
				WithDetails(map[string]any{"code": msg.Error.Code})
		}
		return msg.Result, nil
	case <-reqCtx.Done():
		s.removePending(id)
		_ = s.Notify("$/cancelRequest", map[string]any{"id": id})
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, proto.ErrorLspTimeout(method)
		}
		return nil, reqCtx.Err()
	}
}

func (s *ServerState) removePending(id int64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// Notify sends a one-way notification (no response expected).
func (s *ServerState) Notify(method string, params any) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("lspmanager: marshal notification params for %s: %w", method, err)
	}
	return s.send(rpcMessage{JSONRPC: "2.0", Method: method, Params: rawParams})
}

func (s *ServerState) send(msg rpcMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return writeFramedMessage(s.stdin, msg)
}

// cancelAllPending resolves every outstanding request with a retriable
// error, used when draining a server for restart.
func (s *ServerState) cancelAllPending() {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[int64]*pendingRequest)
	s.mu.Unlock()
	for _, pr := range pending {
		pr.cancel()
	}
}

func (s *ServerState) kill() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

// lspDiagnosticIn is the wire shape of one LSP diagnostic, decoded before
// conversion into proto.Diagnostic.
type lspDiagnosticIn struct {
	Range    wireRange `json:"range"`
	Severity int       `json:"severity"`
	Message  string    `json:"message"`
	Source   string    `json:"source"`
	Code     any       `json:"code"`
}

type wireRange struct {
	Start wirePosition `json:"start"`
	End   wirePosition `json:"end"`
}

type wirePosition struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

func (d lspDiagnosticIn) toProto() proto.Diagnostic {
	code := ""
	if d.Code != nil {
		code = fmt.Sprintf("%v", d.Code)
	}
	severity := proto.Severity(d.Severity)
	if severity == 0 {
		severity = proto.SeverityError
	}
	return proto.Diagnostic{
		Range: proto.Range{
			Start: proto.Position{Line: d.Range.Start.Line, Character: d.Range.Start.Character},
			End:   proto.Position{Line: d.Range.End.Line, Character: d.Range.End.Character},
		},
		Severity: severity,
		Message:  d.Message,
		Source:   d.Source,
		Code:     code,
	}
}
