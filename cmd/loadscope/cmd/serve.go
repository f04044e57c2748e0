package cmd

import (
	"github.com/spf13/cobra"

	"github.com/loadscope/loadscope/internal/common/app"
	"github.com/loadscope/loadscope/internal/loadscope"
)

func serveCmd() *cobra.Command {
	a := loadscope.New()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the results service and serve the dashboard api",
		Long: `Polls the results service for new timing results and serves the trailing window of every series,
the zoom and workload controls, and the operator status over http. Prometheus metrics and /health are
served on the metrics port.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initServiceParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Serve(app.CreateContextWithShutdown())
		},
	}
	return cmd
}

func watchCmd() *cobra.Command {
	a := loadscope.New()
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the results service and print a summary of every series",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initServiceParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Watch(app.CreateContextWithShutdown())
		},
	}
	return cmd
}
