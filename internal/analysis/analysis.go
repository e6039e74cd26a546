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

// Package analysis is the analysis service: a unified
// analyze(kind, scope, options) entrypoint covering code quality,
// dead-code detection, dependency graphs, directory structure,
// documentation coverage, and test/source ratios.
package analysis

import (
	"context"
	"path/filepath"
	"strings"

	"codebuddy.dev/codebuddy/internal/fileservice"
	"codebuddy.dev/codebuddy/internal/logging"
	"codebuddy.dev/codebuddy/internal/lspmanager"
	"codebuddy.dev/codebuddy/internal/plugins"
	"codebuddy.dev/codebuddy/internal/proto"
	"codebuddy.dev/codebuddy/internal/refactor"
)

// Kind is the closed set of analyses the service exposes.
type Kind string

const (
	KindQuality       Kind = "quality"
	KindDeadCode      Kind = "dead_code"
	KindDependencies  Kind = "dependencies"
	KindStructure     Kind = "structure"
	KindDocumentation Kind = "documentation"
	KindTests         Kind = "tests"
	KindBatch         Kind = "batch"
)

// ScopeKind selects whether an analysis runs over one file or a workspace
// subtree.
type ScopeKind string

const (
	ScopeFile      ScopeKind = "file"
	ScopeWorkspace ScopeKind = "workspace"
)

// Scope describes what Analyze should look at.
type Scope struct {
	Kind            ScopeKind
	Path            string
	IncludePatterns []string
	ExcludePatterns []string
	// Files is used only by KindBatch: an explicit file list, bypassing
	// workspace enumeration entirely.
	Files []string
}

// FileResult is one file's contribution to a Result.
type FileResult struct {
	Path        string
	Diagnostics []proto.Diagnostic
	Metrics     map[string]any
}

// Result is the outcome of one Analyze call.
type Result struct {
	Kind    Kind
	Files   map[string]*FileResult
	Summary map[string]any
}

func newResult(kind Kind) *Result {
	return &Result{Kind: kind, Files: make(map[string]*FileResult), Summary: make(map[string]any)}
}

func (r *Result) file(path string) *FileResult {
	f, ok := r.Files[path]
	if !ok {
		f = &FileResult{Path: path, Metrics: make(map[string]any)}
		r.Files[path] = f
	}
	return f
}

// Service is the Analysis Service.
type Service struct {
	registry *plugins.Registry
	lsp      *lspmanager.Manager
	files    *fileservice.Service
	planner  *refactor.Planner
	logger   *logging.Logger
}

// New constructs a Service. lsp may be nil; dead_code analysis then
// always uses its file-scope heuristic fallback, even at workspace scope.
func New(registry *plugins.Registry, lsp *lspmanager.Manager, files *fileservice.Service, planner *refactor.Planner) *Service {
	return &Service{
		registry: registry,
		lsp:      lsp,
		files:    files,
		planner:  planner,
		logger:   logging.Global().WithCorrelation("analysis"),
	}
}

// Analyze runs one analysis of kind over scope with the given options.
func (s *Service) Analyze(ctx context.Context, kind Kind, scope Scope, options map[string]any) (*Result, error) {
	switch kind {
	case KindDependencies:
		return s.analyzeDependencies(scope)
	case KindDeadCode:
		return s.analyzeDeadCode(ctx, scope)
	case KindQuality:
		return s.analyzeQuality(scope, options)
	case KindStructure:
		return s.analyzeStructure(scope)
	case KindDocumentation:
		return s.analyzeDocumentation(scope)
	case KindTests:
		return s.analyzeTests(scope)
	case KindBatch:
		return s.analyzeBatch(ctx, scope, options)
	default:
		return nil, proto.ErrorInvalidRequest("unknown analysis kind: " + string(kind))
	}
}

// scopeFiles enumerates the files an analysis should consider: a single
// path for ScopeFile, or a gitignore-aware, include/exclude-filtered walk
// rooted at Path for ScopeWorkspace.
func (s *Service) scopeFiles(scope Scope) ([]string, error) {
	if scope.Kind == ScopeFile {
		return []string{scope.Path}, nil
	}

	var exts []string
	for _, p := range s.registry.All() {
		exts = append(exts, p.Extensions()...)
	}
	files, err := s.files.WalkWorkspace(scope.Path, exts)
	if err != nil {
		return nil, err
	}

	if len(scope.IncludePatterns) > 0 {
		filtered := files[:0]
		for _, f := range files {
			if fileservice.MatchesAny(scope.IncludePatterns, f) {
				filtered = append(filtered, f)
			}
		}
		files = filtered
	}
	if len(scope.ExcludePatterns) > 0 {
		filtered := files[:0]
		for _, f := range files {
			if !fileservice.MatchesAny(scope.ExcludePatterns, f) {
				filtered = append(filtered, f)
			}
		}
		files = filtered
	}
	return files, nil
}

func isTestFile(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, "_test.go"):
		return true
	case strings.HasSuffix(base, ".test.ts"), strings.HasSuffix(base, ".test.tsx"),
		strings.HasSuffix(base, ".spec.ts"), strings.HasSuffix(base, ".spec.tsx"):
		return true
	case strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py"):
		return true
	case strings.HasSuffix(base, "_test.py"):
		return true
	default:
		return false
	}
}
