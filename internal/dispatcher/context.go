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
	"codebuddy.dev/codebuddy/internal/analysis"
	"codebuddy.dev/codebuddy/internal/fileservice"
	"codebuddy.dev/codebuddy/internal/lspmanager"
	"codebuddy.dev/codebuddy/internal/plugins"
	"codebuddy.dev/codebuddy/internal/refactor"
)

// ServiceContext is the struct of references every tool handler receives
// by reference: the plugin registry, the LSP
// session manager, the file service, the refactor planner, and the
// analysis service, plus the Session of the connection the call arrived
// on. Handlers are stateless; all mutable state lives behind these
// fields' own owners.
type ServiceContext struct {
	Registry *plugins.Registry
	LSP      *lspmanager.Manager
	Files    *fileservice.Service
	Planner  *refactor.Planner
	Analysis *analysis.Service
	Session  *Session
}
