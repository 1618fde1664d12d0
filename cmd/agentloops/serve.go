package main

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rickchristie/agentloops/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ReAct agent and the essay workflow over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := opts.load(ctx)
			if err != nil {
				return err
			}
			srvCfg := a.cfg.Server
			if addr != "" {
				srvCfg.Addr = addr
			}

			agent, err := a.agent(ctx)
			if err != nil {
				return err
			}
			essays, err := a.essays(ctx, a.cfg.Essay.InterruptAfter)
			if err != nil {
				return err
			}

			srv := server.New(server.Options{
				Agent:   agent,
				Essays:  essays,
				React:   a.cfg.React,
				Essay:   a.cfg.Essay,
				Metrics: promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
				Logger:  a.logger,
			})
			return srv.ListenAndServe(ctx, srvCfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
