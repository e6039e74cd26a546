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

// Package plugins is the application-layer plugin bundle: it constructs
// the concrete langgo/langts/langpython/langrust plugins and exposes them
// to the rest of the service layer only through the opaque Registry.
package plugins

import (
	"fmt"
	"path/filepath"
	"strings"

	"codebuddy.dev/codebuddy/internal/pluginapi"
)

// Registry looks up a Plugin by file extension. It is immutable after
// construction and safe for concurrent read access from many goroutines.
type Registry struct {
	byExt map[string]pluginapi.Plugin
	all   []pluginapi.Plugin
}

// NewRegistry builds a registry from a set of plugins, detecting
// extension ambiguity (two plugins claiming the same extension) as a
// configuration error at construction time rather than at query time.
func NewRegistry(plugins ...pluginapi.Plugin) (*Registry, error) {
	r := &Registry{
		byExt: make(map[string]pluginapi.Plugin),
		all:   append([]pluginapi.Plugin(nil), plugins...),
	}
	for _, p := range plugins {
		for _, ext := range p.Extensions() {
			if existing, ok := r.byExt[ext]; ok {
				return nil, fmt.Errorf("plugin registry: extension %q claimed by both %q and %q", ext, existing.Name(), p.Name())
			}
			r.byExt[ext] = p
		}
	}
	return r, nil
}

// LookupByExtension returns the plugin claiming ext (which must include
// the leading dot, e.g. ".go"), or (nil, false) if none does.
func (r *Registry) LookupByExtension(ext string) (pluginapi.Plugin, bool) {
	p, ok := r.byExt[ext]
	return p, ok
}

// LookupByPath is a convenience wrapper deriving the extension from path.
func (r *Registry) LookupByPath(path string) (pluginapi.Plugin, bool) {
	return r.LookupByExtension(strings.ToLower(filepath.Ext(path)))
}

// All returns every registered plugin, in registration order. Callers
// must not mutate the returned slice.
func (r *Registry) All() []pluginapi.Plugin {
	return r.all
}
