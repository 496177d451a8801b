package template

import (
	"errors"
	"fmt"
)

// DefaultMergeConflictMessage is the remediation hint attached to merge
// conflicts when the caller does not provide a more specific one.
const DefaultMergeConflictMessage = "Merge conflicts detected, they will need to be resolved manually."

var (
	// ErrMissingState indicates an update of an instance that was never
	// installed.
	ErrMissingState = errors.New("template instance not installed")

	// ErrMergeConflicts indicates conflict markers were left by an update.
	ErrMergeConflicts = errors.New("merge conflicts")

	// ErrNoAnswersData indicates an answers-only update without data.
	ErrNoAnswersData = errors.New("answers-only update requires data")
)

// MergeConflictsError is returned instead of committing a tree with
// conflict markers. CommitMsg is the message the commit would have used.
type MergeConflictsError struct {
	Message   string
	CommitMsg string
}

func (e *MergeConflictsError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = DefaultMergeConflictMessage
	}
	return msg
}

// Is makes errors.Is(err, ErrMergeConflicts) match.
func (e *MergeConflictsError) Is(target error) bool {
	return target == ErrMergeConflicts
}

// RenderError wraps a renderer failure without interpreting it.
type RenderError struct {
	// Op is "install" or "update".
	Op string

	// Instance is the template name ID.
	Instance string

	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Instance, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
