package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/essay"
	"github.com/rickchristie/agentloops/graph"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newEssayCmd(opts *rootOptions) *cobra.Command {
	var (
		maxRevisions   int
		runID          string
		interruptAfter []string
		raw            bool
	)
	cmd := &cobra.Command{
		Use:   "essay <task>",
		Short: "Write an essay: plan, research, draft, then critique and revise",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-revisions") {
				maxRevisions = a.cfg.Essay.MaxRevisions
			}
			if !cmd.Flags().Changed("interrupt-after") {
				interruptAfter = a.cfg.Essay.InterruptAfter
			}
			compiled, err := a.essays(cmd.Context(), interruptAfter)
			if err != nil {
				return err
			}

			state := essay.NewState(strings.Join(args, " "), maxRevisions)
			state.RevisionNumber = a.cfg.Essay.RevisionNumber
			execCtx := agentloops.NewExecutionContext(cmd.Context(), "essay", nil)
			result, err := compiled.Invoke(execCtx, runID, state)
			if err != nil {
				return err
			}
			return printEssayResult(cmd.OutOrStdout(), result, raw)
		},
	}
	cmd.Flags().IntVar(&maxRevisions, "max-revisions", 0, "drafts allowed beyond the first (default from config)")
	cmd.Flags().StringVar(&runID, "run-id", "", "run ID (default: random UUID)")
	cmd.Flags().StringSliceVar(&interruptAfter, "interrupt-after", nil, "pause after these nodes")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	return cmd
}

func newResumeCmd(opts *rootOptions) *cobra.Command {
	var (
		plan, draft, critique string
		interruptAfter        []string
		raw                   bool
	)
	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Continue an interrupted essay run, optionally editing its state first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.requirePersistentStore(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("interrupt-after") {
				interruptAfter = a.cfg.Essay.InterruptAfter
			}
			compiled, err := a.essays(cmd.Context(), interruptAfter)
			if err != nil {
				return err
			}

			update := essay.Update{}
			if cmd.Flags().Changed("plan") {
				update.Plan = &plan
			}
			if cmd.Flags().Changed("draft") {
				update.Draft = &draft
			}
			if cmd.Flags().Changed("critique") {
				update.Critique = &critique
			}
			result, err := resumeEssay(cmd.Context(), compiled, args[0], update)
			if err != nil {
				return err
			}
			return printEssayResult(cmd.OutOrStdout(), result, raw)
		},
	}
	cmd.Flags().StringVar(&plan, "plan", "", "replace the plan before resuming")
	cmd.Flags().StringVar(&draft, "draft", "", "replace the draft before resuming")
	cmd.Flags().StringVar(&critique, "critique", "", "replace the critique before resuming")
	cmd.Flags().StringSliceVar(&interruptAfter, "interrupt-after", nil, "pause after these nodes")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	return cmd
}

func resumeEssay(
	ctx context.Context,
	compiled *graph.Compiled[essay.State, essay.Update],
	runID string,
	update essay.Update,
) (*graph.RunResult[essay.State], error) {
	if update.Plan != nil || update.Draft != nil || update.Critique != nil {
		if _, err := compiled.UpdateState(ctx, runID, update); err != nil {
			return nil, err
		}
	}
	return compiled.Resume(agentloops.NewExecutionContext(ctx, "essay", nil), runID)
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var diff bool
	cmd := &cobra.Command{
		Use:   "history <run-id>",
		Short: "List the checkpoints of an essay run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.requirePersistentStore(); err != nil {
				return err
			}
			compiled, err := essay.NewWriter(nil, nil).Compile(graph.WithCheckpointer(a.checkpointer))
			if err != nil {
				return err
			}
			history, err := compiled.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), history, diff)
		},
	}
	cmd.Flags().BoolVar(&diff, "diff", false, "show unified diffs between consecutive drafts")
	return cmd
}

func printHistory(w io.Writer, history []graph.Checkpoint[essay.State], diff bool) error {
	for _, cp := range history {
		edited := ""
		if cp.Edited {
			edited = colorYellow + " (edited)" + colorReset
		}
		next := cp.Next
		if next == graph.End {
			next = "end"
		}
		fmt.Fprintf(w, "%s%3d%s  %-18s -> %-18s %-11s revision %d%s\n",
			colorCyan, cp.Step, colorReset,
			cp.Node, next, cp.Status, cp.State.RevisionNumber, edited)
	}
	if !diff {
		return nil
	}

	diffs, err := essay.RevisionDiffs(essay.Revisions(history))
	if err != nil {
		return err
	}
	for _, d := range diffs {
		fmt.Fprintln(w)
		fmt.Fprint(w, d)
	}
	return nil
}

func printEssayResult(w io.Writer, result *graph.RunResult[essay.State], raw bool) error {
	if result.Status == graph.StatusInterrupted {
		fmt.Fprintf(w, "%sRun %s paused before %s.%s\n", colorYellow, result.RunID, result.Next, colorReset)
		fmt.Fprintf(w, "Continue with: agentloops resume %s\n", result.RunID)
		if result.State.Plan != "" {
			fmt.Fprintf(w, "\n%sPlan:%s\n%s\n", colorBold, colorReset, result.State.Plan)
		}
		return nil
	}

	out, err := renderMarkdown(result.State.Draft, raw)
	if err != nil {
		return err
	}
	fmt.Fprint(w, out)
	fmt.Fprintf(w, "\n%srun %s, %d steps%s\n", colorDim, result.RunID, len(result.Steps), colorReset)
	return nil
}

// renderMarkdown renders markdown for the terminal, wrapped to its width. Raw output and
// non-terminals get the text unchanged.
func renderMarkdown(markdown string, raw bool) (string, error) {
	fd := int(os.Stdout.Fd())
	if raw || !term.IsTerminal(fd) {
		return markdown + "\n", nil
	}

	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render(markdown)
}
