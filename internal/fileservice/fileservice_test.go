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

package fileservice

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy.dev/codebuddy/internal/platform"
	"codebuddy.dev/codebuddy/internal/proto"
)

func newTestFS(t *testing.T) *platform.MapFS {
	t.Helper()
	return platform.NewMapFS(map[string]string{})
}

func addFile(f *platform.MapFS, path, content string, mode fs.FileMode) {
	_ = f.WriteFile(path, []byte(content), mode)
}

func TestReadWrite(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "a.txt", "hello", 0o644)
	svc := New(fs, nil, nil)

	content, err := svc.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	require.NoError(t, svc.Write("a.txt", "world"))
	content, err = svc.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "world", content)
}

func edit(startL, startC, endL, endC uint32, text string) proto.TextEdit {
	return proto.TextEdit{
		Range: proto.Range{
			Start: proto.Position{Line: startL, Character: startC},
			End:   proto.Position{Line: endL, Character: endC},
		},
		NewText: text,
	}
}

func TestApplyEditPlan_TextEditsDescendingOrder(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "a.go", "package foo\n\nfunc Foo() {}\n", 0o644)
	svc := New(fs, nil, nil)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{
				Kind: proto.PlanOpEdit,
				Path: "a.go",
				Edits: []proto.TextEdit{
					edit(0, 8, 0, 11, "Bar"),
					edit(2, 5, 2, 8, "Baz"),
				},
			},
		},
		Metadata: proto.PlanMetadata{PlanType: "rename", Language: "go"},
	}

	result, err := svc.ApplyEditPlan(context.Background(), plan)
	require.NoError(t, err)
	assert.False(t, result.Empty)
	assert.ElementsMatch(t, []string{"a.go"}, result.AppliedFiles)

	content, err := svc.Read("a.go")
	require.NoError(t, err)
	assert.Equal(t, "package Bar\n\nfunc Baz() {}\n", content)
}

func TestApplyEditPlan_EmptyPlanIsSuccess(t *testing.T) {
	svc := New(newTestFS(t), nil, nil)
	result, err := svc.ApplyEditPlan(context.Background(), &proto.EditPlan{})
	require.NoError(t, err)
	assert.True(t, result.Empty)
	assert.Empty(t, result.AppliedFiles)
}

func TestApplyEditPlan_ValidationRejectsOutOfBoundsCharacter(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "a.go", "short\n", 0o644)
	svc := New(fs, nil, nil)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpEdit, Path: "a.go", Edits: []proto.TextEdit{edit(0, 0, 0, 50, "x")}},
		},
	}
	_, err := svc.ApplyEditPlan(context.Background(), plan)
	require.Error(t, err)
	var apiErr *proto.ApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, proto.ErrValidationFailed, apiErr.Kind)

	content, _ := svc.Read("a.go")
	assert.Equal(t, "short\n", content, "rejected plan must not mutate the file")
}

func TestApplyEditPlan_OverlappingEditsRejected(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "a.go", "abcdefgh\n", 0o644)
	svc := New(fs, nil, nil)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpEdit, Path: "a.go", Edits: []proto.TextEdit{
				edit(0, 0, 0, 4, "x"),
				edit(0, 2, 0, 6, "y"),
			}},
		},
	}
	_, err := svc.ApplyEditPlan(context.Background(), plan)
	require.Error(t, err)
}

func TestApplyEditPlan_CreateConflict(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "a.go", "x\n", 0o644)
	svc := New(fs, nil, nil)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpCreate, Path: "a.go", Content: "y\n"},
		},
	}
	_, err := svc.ApplyEditPlan(context.Background(), plan)
	require.Error(t, err)
	var apiErr *proto.ApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, proto.ErrConflict, apiErr.Kind)
}

func TestApplyEditPlan_MoveAndDelete(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "old/a.go", "package a\n", 0o644)
	addFile(fs, "b.go", "package b\n", 0o644)
	svc := New(fs, nil, nil)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpMove, Path: "old/a.go", NewPath: "new/a.go"},
			{Kind: proto.PlanOpDelete, Path: "b.go"},
		},
	}
	result, err := svc.ApplyEditPlan(context.Background(), plan)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old/a.go", "new/a.go", "b.go"}, result.AppliedFiles)

	assert.False(t, fs.Exists("old/a.go"))
	assert.True(t, fs.Exists("new/a.go"))
	assert.False(t, fs.Exists("b.go"))
}

// failingRenameFS fails any rename onto one specific target path, used
// to exercise the rollback path deterministically. Keyed by target
// rather than call count because atomic writes consume renames too
// (temp file onto target), including during rollback itself.
type failingRenameFS struct {
	*platform.MapFS
	failNewPath string
}

func (f *failingRenameFS) Rename(oldpath, newpath string) error {
	if newpath == f.failNewPath {
		return errors.New("simulated io failure")
	}
	return f.MapFS.Rename(oldpath, newpath)
}

func TestApplyEditPlan_RollbackOnMidwayFailure(t *testing.T) {
	base := newTestFS(t)
	addFile(base, "a.go", "package a\n", 0o644)
	addFile(base, "b.go", "package b\n", 0o644)
	fs := &failingRenameFS{MapFS: base, failNewPath: "b2.go"}
	svc := New(fs, nil, nil)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpEdit, Path: "a.go", Edits: []proto.TextEdit{edit(0, 8, 0, 9, "X")}},
			{Kind: proto.PlanOpMove, Path: "a.go", NewPath: "a2.go"},
			{Kind: proto.PlanOpMove, Path: "b.go", NewPath: "b2.go"},
		},
	}
	_, err := svc.ApplyEditPlan(context.Background(), plan)
	require.Error(t, err)
	var apiErr *proto.ApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, proto.ErrRollbackPerformed, apiErr.Kind)

	// The edit write rolled back, and the one move that did succeed was
	// reversed; disk state is byte-identical to the pre-call state.
	content, rerr := svc.Read("a.go")
	require.NoError(t, rerr)
	assert.Equal(t, "package a\n", content)
	assert.False(t, fs.Exists("a2.go"))
	assert.True(t, fs.Exists("b.go"))
	assert.False(t, fs.Exists("b2.go"))
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls map[string]string
}

func (r *recordingNotifier) NotifyFileChanged(path, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]string)
	}
	r.calls[path] = content
	return nil
}

func (r *recordingNotifier) get(path string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

func TestApplyEditPlan_NotifiesLSPOfChangedContent(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "a.go", "package a\n", 0o644)
	notifier := &recordingNotifier{}
	svc := New(fs, notifier, nil)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpEdit, Path: "a.go", Edits: []proto.TextEdit{edit(0, 8, 0, 9, "X")}},
		},
	}
	_, err := svc.ApplyEditPlan(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "package X\n", notifier.get("a.go"))
}

type stubConsolidator struct {
	called bool
	err    error
	run    func(txn *Txn) error
}

func (s *stubConsolidator) Consolidate(ctx context.Context, plan *proto.EditPlan, txn *Txn) error {
	s.called = true
	if s.run != nil {
		if err := s.run(txn); err != nil {
			return err
		}
	}
	return s.err
}

func TestApplyEditPlan_ConsolidationFailureRollsBack(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "crates/a/lib.rs", "pub fn a() {}\n", 0o644)
	consol := &stubConsolidator{err: errors.New("cycle detected")}
	svc := New(fs, nil, consol)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpMove, Path: "crates/a/lib.rs", NewPath: "crates/b/src/a.rs"},
		},
		Metadata: proto.PlanMetadata{
			Consolidation: &proto.ConsolidationMetadata{SourceCrate: "a", TargetCrate: "b"},
		},
	}
	_, err := svc.ApplyEditPlan(context.Background(), plan)
	require.Error(t, err)
	var apiErr *proto.ApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, proto.ErrConsolidationFailed, apiErr.Kind)
	assert.True(t, consol.called)

	assert.True(t, fs.Exists("crates/a/lib.rs"))
	assert.False(t, fs.Exists("crates/b/src/a.rs"))
}

func TestApplyEditPlan_ConsolidationTxnMutationsRollBack(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "crates/a/lib.rs", "pub fn a() {}\n", 0o644)
	addFile(fs, "crates/b/src/lib.rs", "pub mod existing;\n", 0o644)
	addFile(fs, "Cargo.toml", "members = [\"crates/a\", \"crates/b\"]\n", 0o644)

	// The consolidator mutates three files through its Txn, then fails:
	// every one of its mutations must be rolled back along with the move.
	consol := &stubConsolidator{
		err: errors.New("cycle detected"),
		run: func(txn *Txn) error {
			if err := txn.Write("crates/b/src/lib.rs", "pub mod existing;\npub mod a;\n"); err != nil {
				return err
			}
			if err := txn.Write("Cargo.toml", "members = [\"crates/b\"]\n"); err != nil {
				return err
			}
			if err := txn.Move("crates/b/a/lib.rs", "crates/b/src/a.rs"); err != nil {
				return err
			}
			return txn.Write("new-file.rs", "pub fn x() {}\n")
		},
	}
	svc := New(fs, nil, consol)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpMove, Path: "crates/a/lib.rs", NewPath: "crates/b/a/lib.rs"},
		},
		Metadata: proto.PlanMetadata{
			Consolidation: &proto.ConsolidationMetadata{SourceCrate: "a", TargetCrate: "b"},
		},
	}
	_, err := svc.ApplyEditPlan(context.Background(), plan)
	require.Error(t, err)
	var apiErr *proto.ApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, proto.ErrConsolidationFailed, apiErr.Kind)

	content, rerr := svc.Read("crates/b/src/lib.rs")
	require.NoError(t, rerr)
	assert.Equal(t, "pub mod existing;\n", content)
	manifest, rerr := svc.Read("Cargo.toml")
	require.NoError(t, rerr)
	assert.Equal(t, "members = [\"crates/a\", \"crates/b\"]\n", manifest)
	assert.True(t, fs.Exists("crates/a/lib.rs"))
	assert.False(t, fs.Exists("crates/b/a/lib.rs"))
	assert.False(t, fs.Exists("crates/b/src/a.rs"))
	assert.False(t, fs.Exists("new-file.rs"))
}

type stubValidator struct{ err error }

func (v stubValidator) Validate(ctx context.Context, changed []string) error { return v.err }

func TestApplyEditPlan_ValidationRollbackPolicy(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "a.go", "package a\n", 0o644)
	svc := New(fs, nil, nil)
	svc.SetValidator(stubValidator{err: errors.New("build broken")}, FailureRollback)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpEdit, Path: "a.go", Edits: []proto.TextEdit{edit(0, 8, 0, 9, "X")}},
		},
	}
	_, err := svc.ApplyEditPlan(context.Background(), plan)
	require.Error(t, err)
	var apiErr *proto.ApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, proto.ErrRollbackPerformed, apiErr.Kind)

	content, rerr := svc.Read("a.go")
	require.NoError(t, rerr)
	assert.Equal(t, "package a\n", content)
}

func TestApplyEditPlan_ValidationReportPolicy(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "a.go", "package a\n", 0o644)
	svc := New(fs, nil, nil)
	svc.SetValidator(stubValidator{err: errors.New("lint warning")}, FailureReport)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpEdit, Path: "a.go", Edits: []proto.TextEdit{edit(0, 8, 0, 9, "X")}},
		},
	}
	result, err := svc.ApplyEditPlan(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "lint warning")

	content, rerr := svc.Read("a.go")
	require.NoError(t, rerr)
	assert.Equal(t, "package X\n", content)
}

func TestStartWatcher_ForwardsExternalWrites(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "a.go", "package a\n", 0o644)
	notifier := &recordingNotifier{}
	svc := New(fs, notifier, nil)

	watcher := platform.NewMockFileWatcher()
	require.NoError(t, watcher.Add("a.go"))
	stop := svc.StartWatcher(watcher)
	defer stop()

	// an "editor" rewrites the file behind codebuddy's back
	addFile(fs, "a.go", "package edited\n", 0o644)
	watcher.TriggerEvent("a.go", platform.Write)

	require.Eventually(t, func() bool {
		return notifier.get("a.go") == "package edited\n"
	}, time.Second, 5*time.Millisecond)
}

func TestApplyEditPlan_Idempotence(t *testing.T) {
	fs := newTestFS(t)
	addFile(fs, "a.go", "package a\n", 0o644)
	svc := New(fs, nil, nil)

	plan := &proto.EditPlan{
		Edits: []proto.PlanOp{
			{Kind: proto.PlanOpEdit, Path: "a.go", Edits: []proto.TextEdit{edit(0, 8, 0, 9, "X")}},
		},
	}
	_, err := svc.ApplyEditPlan(context.Background(), plan)
	require.NoError(t, err)

	// Re-applying the same plan against the already-patched file still
	// passes validation (the range [0,8)-[0,9) fits the 9-rune line) and
	// replaces "X" with "X", so the content does not change; on an error
	// no partial state would result either.
	before, _ := svc.Read("a.go")
	_, err = svc.ApplyEditPlan(context.Background(), plan)
	after, _ := svc.Read("a.go")
	if err == nil {
		assert.Equal(t, before, after)
	} else {
		assert.Equal(t, before, after)
	}
}
