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
package proto

// PlanOpKind distinguishes the typed operations inside an EditPlan.
type PlanOpKind string

const (
	PlanOpEdit   PlanOpKind = "edit"
	PlanOpMove   PlanOpKind = "move"
	PlanOpCreate PlanOpKind = "create"
	PlanOpDelete PlanOpKind = "delete"
)

// PlanOp is one typed, ordered operation in an EditPlan.
type PlanOp struct {
	Kind    PlanOpKind `json:"kind"`
	Path    string     `json:"path"`
	NewPath string     `json:"newPath,omitempty"` // PlanOpMove
	Edits   []TextEdit `json:"edits,omitempty"`   // PlanOpEdit, in document order
	Content string     `json:"content,omitempty"` // PlanOpCreate
}

// DependencyUpdate is a manifest-level edit derived from a plugin's
// ManifestEditDependency, carried separately from raw TextEdits so the
// planner and the consolidation pipeline can reason about them as
// structured operations rather than opaque text.
type DependencyUpdate struct {
	ManifestPath string `json:"manifestPath"`
	Description  string `json:"description"`
	Edits        []TextEdit
}

// Impact is a coarse estimate of how disruptive a plan is, derived from
// the affected file count.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// EstimateImpact buckets an affected-file count into a coarse Impact.
func EstimateImpact(affectedFiles int) Impact {
	switch {
	case affectedFiles <= 3:
		return ImpactLow
	case affectedFiles <= 15:
		return ImpactMedium
	default:
		return ImpactHigh
	}
}

// ConsolidationMetadata is present on an EditPlan's metadata iff the plan
// is a directory move reclassified as a crate/package consolidation.
type ConsolidationMetadata struct {
	SourceCrate      string `json:"sourceCrate"`
	TargetCrate      string `json:"targetCrate"`
	TargetModule     string `json:"targetModule"`
	SourcePath       string `json:"sourcePath"`
	TargetPath       string `json:"targetPath"`
	TargetModulePath string `json:"targetModulePath"`
}

// PlanMetadata describes the plan as a whole.
type PlanMetadata struct {
	PlanType        string                 `json:"planType"`
	Language        string                 `json:"language"`
	EstimatedImpact Impact                 `json:"estimatedImpact"`
	Consolidation   *ConsolidationMetadata `json:"consolidation,omitempty"`
}

// EditPlan is the executable form of a WorkspaceEdit after dependency and
// consolidation metadata has been attached.
type EditPlan struct {
	Edits             []PlanOp           `json:"edits"`
	DependencyUpdates []DependencyUpdate `json:"dependencyUpdates,omitempty"`
	Metadata          PlanMetadata       `json:"metadata"`
}

// IsEmpty reports whether the plan has no operations at all. Per the
// decision recorded in DESIGN.md for the "empty apply" open question,
// applying an empty plan is a success with an empty applied-files list,
// not an error.
func (p *EditPlan) IsEmpty() bool {
	return p == nil || (len(p.Edits) == 0 && len(p.DependencyUpdates) == 0)
}

// AffectedFiles returns the distinct set of paths touched by the plan,
// used to derive EstimatedImpact and to drive snapshotting in the file
// service.
func (p *EditPlan) AffectedFiles() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		out = append(out, path)
	}
	for _, op := range p.Edits {
		add(op.Path)
		if op.Kind == PlanOpMove {
			add(op.NewPath)
		}
	}
	for _, du := range p.DependencyUpdates {
		add(du.ManifestPath)
	}
	return out
}
