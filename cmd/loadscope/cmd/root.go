package cmd

import (
	"github.com/spf13/cobra"

	"github.com/loadscope/loadscope/pkg/client"
)

const (
	configFlag         = "config"
	resultsUrlFlag     = "resultsUrl"
	requestTimeoutFlag = "requestTimeout"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "loadscope",
		SilenceUsage: true,
		Short:        "loadscope charts the latency and throughput of database workloads as they run.",
	}

	cmd.PersistentFlags().StringSlice(
		configFlag,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	client.AddApiConnectionCommandlineArgs(cmd)

	cmd.AddCommand(
		serveCmd(),
		watchCmd(),
		workloadsCmd(),
		adminCmd(),
		versionCmd(),
	)

	return cmd
}
