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

// Package bootstrap wires the service layer together the way cmd/ needs
// it: one call builds the plugin registry, LSP manager, file service,
// planner, consolidation pipeline, analysis service, and dispatcher from
// a loaded internal/config.Config, leaving cmd/ itself to only pick a
// transport and run it.
package bootstrap

import (
	"codebuddy.dev/codebuddy/internal/analysis"
	"codebuddy.dev/codebuddy/internal/config"
	"codebuddy.dev/codebuddy/internal/consolidation"
	"codebuddy.dev/codebuddy/internal/dispatcher"
	"codebuddy.dev/codebuddy/internal/fileservice"
	"codebuddy.dev/codebuddy/internal/lspmanager"
	"codebuddy.dev/codebuddy/internal/platform"
	"codebuddy.dev/codebuddy/internal/plugins"
	"codebuddy.dev/codebuddy/internal/plugins/langgo"
	"codebuddy.dev/codebuddy/internal/plugins/langpython"
	"codebuddy.dev/codebuddy/internal/plugins/langrust"
	"codebuddy.dev/codebuddy/internal/plugins/langts"
	"codebuddy.dev/codebuddy/internal/refactor"
	"codebuddy.dev/codebuddy/internal/tools"
)

// Services is every long-lived object a transport needs to construct a
// dispatcher.ServiceContext per request.
type Services struct {
	Registry   *plugins.Registry
	LSP        *lspmanager.Manager
	Files      *fileservice.Service
	Planner    *refactor.Planner
	Analysis   *analysis.Service
	Dispatcher *dispatcher.Dispatcher

	watcher     platform.FileWatcher
	stopWatcher func()
}

// Close stops the external-edit watcher and shuts down every language
// server.
func (s *Services) Close() {
	if s.stopWatcher != nil {
		s.stopWatcher()
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	s.LSP.Close()
}

// Build constructs the full service graph for workspaceRoot using cfg's
// configured language servers. The four bundled language plugins are
// always registered; cfg.LSP.Servers supplies the external process specs
// they're paired with by extension.
func Build(workspaceRoot string, cfg *config.Config) (*Services, error) {
	reg, err := plugins.NewRegistry(
		langgo.New(),
		langts.New(),
		langpython.New(),
		langrust.New(),
	)
	if err != nil {
		return nil, err
	}

	specs := make([]lspmanager.ServerSpec, 0, len(cfg.LSP.Servers))
	for _, s := range cfg.LSP.Servers {
		specs = append(specs, lspmanager.ServerSpec{
			Name:             s.Name,
			Command:          s.Command,
			Extensions:       s.Extensions,
			Timeout:          s.Timeout,
			WorkingDirectory: s.WorkingDirectory,
			Environment:      s.Environment,
			RestartInterval:  s.RestartInterval,
		})
	}

	fs := platform.NewOSFileSystem()
	tp := platform.NewRealTimeProvider()
	lsp := lspmanager.NewManager(workspaceRoot, specs, fs, tp)

	files := fileservice.New(fs, lsp, nil)
	if cfg.Validation.Enabled && cfg.Validation.Command != "" {
		files.SetValidator(
			&fileservice.CommandValidator{Command: cfg.Validation.Command, Dir: workspaceRoot},
			cfg.Validation.OnFailure,
		)
	}
	planner := refactor.NewPlanner(reg, lsp, files, workspaceRoot)
	pipeline := consolidation.New(reg, planner, workspaceRoot)
	files.SetConsolidator(pipeline)
	analysisSvc := analysis.New(reg, lsp, files, planner)

	d, err := dispatcher.New(tools.Catalog()...)
	if err != nil {
		return nil, err
	}

	svcs := &Services{
		Registry:   reg,
		LSP:        lsp,
		Files:      files,
		Planner:    planner,
		Analysis:   analysisSvc,
		Dispatcher: d,
	}

	// Watch the workspace so a file saved by an editor (rather than
	// through apply_edit_plan) still reaches any language server that has
	// it open. Watching is best-effort: a platform without inotify/kqueue
	// just runs without external-edit resync.
	if watcher, err := platform.NewFSNotifyFileWatcher(); err == nil {
		if err := watcher.Add(workspaceRoot); err != nil {
			_ = watcher.Close()
		} else {
			svcs.watcher = watcher
			svcs.stopWatcher = files.StartWatcher(watcher)
		}
	}

	return svcs, nil
}

// ServiceContext builds the shared dispatcher.ServiceContext a transport
// copies per-call (see dispatcher.Dispatch). Session is left nil; each
// transport fills it in per connection.
func (s *Services) ServiceContext() *dispatcher.ServiceContext {
	return &dispatcher.ServiceContext{
		Registry: s.Registry,
		LSP:      s.LSP,
		Files:    s.Files,
		Planner:  s.Planner,
		Analysis: s.Analysis,
	}
}
