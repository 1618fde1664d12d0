package main

import (
	"context"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string

	// app, when set, is used instead of loading one from the flags.
	app *app
}

func (o *rootOptions) load(ctx context.Context) (*app, error) {
	if o.app != nil {
		return o.app, nil
	}
	a, err := newApp(ctx, o.configPath, o.logLevel)
	if err != nil {
		return nil, err
	}
	o.app = a
	return a, nil
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{})
}

func newRootCmdWith(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentloops",
		Short: "ReAct agents and a reflective essay writer",
		Long: `agentloops answers questions with a ReAct agent that can call local actions, and
writes essays with a plan, research, draft and critique workflow that can pause for edits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "trace, debug, info, warn or error")

	rootCmd.AddCommand(
		newReactCmd(opts),
		newChatCmd(opts),
		newEssayCmd(opts),
		newResumeCmd(opts),
		newHistoryCmd(opts),
		newServeCmd(opts),
	)
	return rootCmd
}
