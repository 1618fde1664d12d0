package essay

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rickchristie/agentloops/graph"
)

// Revision is one draft produced by a run.
type Revision struct {
	// Number is the revision number the draft was written for (RevisionNumber before
	// generate incremented it).
	Number int
	Step   int
	Draft  string
}

// Revisions extracts the drafts of a run from its checkpoint history, oldest first. Edits made
// with UpdateState that change the draft are included as their own revision.
func Revisions(history []graph.Checkpoint[State]) []Revision {
	var result []Revision
	last := ""
	for _, cp := range history {
		if cp.State.Draft == "" || cp.State.Draft == last {
			continue
		}
		number := cp.State.RevisionNumber
		if cp.Node == NodeGenerate && !cp.Edited {
			number--
		}
		result = append(result, Revision{Number: number, Step: cp.Step, Draft: cp.State.Draft})
		last = cp.State.Draft
	}
	return result
}

// DraftDiff returns a unified diff between two drafts. Identical drafts give "".
func DraftDiff(previous, current, fromLabel, toLabel string) (string, error) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(previous),
		B:        difflib.SplitLines(current),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("diff drafts: %w", err)
	}
	return diff, nil
}

// RevisionDiffs returns the diff between each consecutive pair of revisions.
func RevisionDiffs(revisions []Revision) ([]string, error) {
	diffs := make([]string, 0, len(revisions))
	for i := 1; i < len(revisions); i++ {
		prev, cur := revisions[i-1], revisions[i]
		d, err := DraftDiff(
			prev.Draft,
			cur.Draft,
			fmt.Sprintf("revision %d (step %d)", prev.Number, prev.Step),
			fmt.Sprintf("revision %d (step %d)", cur.Number, cur.Step),
		)
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, d)
	}
	return diffs, nil
}
