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

type consolidatePlanArgs struct {
	SourcePath string `json:"sourcePath"`
	TargetPath string `json:"targetPath"`
}

// ConsolidatePlan exposes Planner.PlanConsolidate as "consolidate.plan":
// moving sourcePath's package into targetPath as a submodule.
// Pre-validation (dependency-cycle check) runs before any file moves;
// a CircularDependency error means nothing on disk changed.
func ConsolidatePlan() *dispatcher.Tool {
	return &dispatcher.Tool{
		Name: "consolidate.plan",
		Description: "Plan consolidating a package directory into a sibling package as a submodule: " +
			"flattens nested layout, renames the entry file, merges manifest dependencies, and rewrites " +
			"every workspace import. Refuses with CircularDependency if the destination already depends " +
			"on the source. Returns a dry-run EditPlan.",
		Visibility: dispatcher.Public,
		Schema: object([]string{"sourcePath", "targetPath"}, map[string]any{
			"sourcePath": prop("string", "Package directory being absorbed."),
			"targetPath": prop("string", "Destination sibling package directory."),
		}),
		Handler: func(ctx context.Context, svc *dispatcher.ServiceContext, raw json.RawMessage) (any, error) {
			var args consolidatePlanArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			return svc.Planner.PlanConsolidate(ctx, args.SourcePath, args.TargetPath)
		},
	}
}
