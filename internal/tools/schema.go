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

// Package tools implements one handler per tool the dispatcher exposes,
// each a thin adapter between the wire "arguments" object and a call
// into the service context. Handlers are
// stateless: every piece of state they touch is owned by the
// dispatcher.ServiceContext they receive.
package tools

// object builds a minimal JSON-Schema object definition: the dispatcher's
// validateArgs only looks at "required" and per-property "type", so
// schemas here stay purposely small rather than a full json-schema-go
// struct tag derivation.
func object(required []string, properties map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}
