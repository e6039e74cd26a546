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
	"codebuddy.dev/codebuddy/internal/proto"
)

type applyEditArgs struct {
	Plan *proto.EditPlan `json:"plan"`
}

// ApplyEdit exposes fileservice.Service.ApplyEditPlan as
// "workspace.apply_edit": the second half of the plan/apply pattern.
// The plan is ephemeral and request-scoped, so the caller round-trips
// the exact plan a prior planning tool returned.
func ApplyEdit() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name:        "workspace.apply_edit",
		Description: "Apply a previously planned EditPlan atomically. On any failure the filesystem is rolled back to its pre-call state.",
		Visibility:  dispatcher.Public,
		Schema: object([]string{"plan"}, map[string]any{
			"plan": prop("object", "The EditPlan returned by a planning tool (rename.*, refactor.plan, delete.*, consolidate.plan)."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args applyEditArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			if args.Plan == nil {
				return nil, proto.ErrorInvalidRequest("plan is required")
			}
			return svc.Files.ApplyEditPlan(ctx, args.Plan)
		},
	}
}
