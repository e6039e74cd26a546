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

package tools

import (
	"context"
	"encoding/json"

	"codebuddy.dev/codebuddy/internal/dispatcher"
)

type readFileArgs struct {
	Path string `json:"path"`
}

// ReadFile exposes fileservice.Service.Read as the "file.read" tool,
// the simplest navigation primitive a client needs before planning any
// refactor against a path it hasn't seen yet.
func ReadFile() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name:        "file.read",
		Description: "Read the current content of a workspace file.",
		Visibility:  dispatcher.Public,
		Schema: object([]string{"path"}, map[string]any{
			"path": prop("string", "Workspace-relative file path."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args readFileArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			content, err := svc.Files.Read(args.Path)
			if err != nil {
				return nil, err
			}
			return map[string]any{"path": args.Path, "content": content}, nil
		},
	}
}
