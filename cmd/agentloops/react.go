package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rickchristie/agentloops/agents/react"
	"github.com/spf13/cobra"
)

func newReactCmd(opts *rootOptions) *cobra.Command {
	var turns int
	cmd := &cobra.Command{
		Use:   "react <task>",
		Short: "Answer a task with the ReAct agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			if turns == 0 {
				turns = a.cfg.React.TurnLimit
			}
			agent, err := a.agent(cmd.Context())
			if err != nil {
				return err
			}

			result, err := agent.Run(cmd.Context(), strings.Join(args, " "), turns)
			if err != nil {
				return err
			}
			printReactResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().IntVar(&turns, "turns", 0, "maximum model calls (default from config)")
	return cmd
}

func printReactResult(w io.Writer, result *react.Result) {
	if result.Status == react.StatusIncomplete {
		fmt.Fprintf(w, "%sNo answer after %d turns.%s\n", colorYellow, result.Turns, colorReset)
		return
	}
	fmt.Fprintln(w, result.Answer)
	fmt.Fprintf(w, "%s(%d turns)%s\n", colorDim, result.Turns, colorReset)
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var turns int
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the ReAct agent; the conversation carries across messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			if turns == 0 {
				turns = a.cfg.React.TurnLimit
			}
			agent, err := a.agent(cmd.Context())
			if err != nil {
				return err
			}
			session, err := agent.NewSession()
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt: colorCyan + "you> " + colorReset,
				Stdin:  io.NopCloser(cmd.InOrStdin()),
				Stdout: cmd.OutOrStdout(),
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s%sChat started.%s Type 'exit' to quit.\n", colorBold, colorGreen, colorReset)
			for {
				input, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						fmt.Fprintf(out, "%sGoodbye!%s\n", colorGreen, colorReset)
						return nil
					}
					return fmt.Errorf("failed to read input: %w", err)
				}

				input = strings.TrimSpace(input)
				switch input {
				case "":
					continue
				case "exit", "quit", "q":
					fmt.Fprintf(out, "%sGoodbye!%s\n", colorGreen, colorReset)
					return nil
				}

				result, err := agent.RunSession(cmd.Context(), session, input, turns)
				if err != nil {
					fmt.Fprintf(out, "%sError: %v%s\n", colorRed, err, colorReset)
					continue
				}
				printReactResult(out, result)
			}
		},
	}
	cmd.Flags().IntVar(&turns, "turns", 0, "maximum model calls per message (default from config)")
	return cmd
}
