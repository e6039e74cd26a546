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
	"os/exec"
	"strings"
)

// PostEditValidator checks the workspace after a plan's operations have
// landed, before ApplyEditPlan declares success. Typically a build or
// lint command configured by the operator.
type PostEditValidator interface {
	Validate(ctx context.Context, changedFiles []string) error
}

// OnFailure policies for a failed post-edit validation, from the
// "validation.on_failure" config key.
const (
	FailureReport   = "Report"
	FailureRollback = "Rollback"
)

// SetValidator configures the post-edit validation hook. onFailure
// selects what a validation failure does: FailureRollback unwinds the
// whole plan, anything else (including the config's "Interactive",
// which only a CLI front-end can honor) degrades to FailureReport —
// the apply succeeds and the result carries the validator's complaint.
func (s *Service) SetValidator(v PostEditValidator, onFailure string) {
	s.validator = v
	s.validatorPolicy = onFailure
}

// CommandValidator runs a shell command in the workspace root and
// treats a non-zero exit as validation failure.
type CommandValidator struct {
	Command string
	Dir     string
}

func (c *CommandValidator) Validate(ctx context.Context, changedFiles []string) error {
	parts := strings.Fields(c.Command)
	if len(parts) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = c.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &ValidationCommandError{Command: c.Command, Output: string(out), Cause: err}
	}
	return nil
}

// ValidationCommandError carries the failing command's output so Report
// mode can surface it to the caller.
type ValidationCommandError struct {
	Command string
	Output  string
	Cause   error
}

func (e *ValidationCommandError) Error() string {
	return "validation command " + e.Command + " failed: " + e.Cause.Error()
}

func (e *ValidationCommandError) Unwrap() error { return e.Cause }
