package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/loadscope/loadscope/internal/loadscope"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer the database behind the results service",
	}
	cmd.AddCommand(
		createTableCmd(),
		truncateTableCmd(),
		serverInfoCmd(),
		simulateCmd(),
	)
	return cmd
}

func createTableCmd() *cobra.Command {
	a := loadscope.New()
	cmd := &cobra.Command{
		Use:   "create-table",
		Short: "Create the tables the workloads write to",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.CreateTable(cmd.Context())
		},
	}
	return cmd
}

func truncateTableCmd() *cobra.Command {
	a := loadscope.New()
	cmd := &cobra.Command{
		Use:   "truncate-table",
		Short: "Remove every row from the workload tables",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.TruncateTable(cmd.Context())
		},
	}
	return cmd
}

func serverInfoCmd() *cobra.Command {
	a := loadscope.New()
	cmd := &cobra.Command{
		Use:   "server-info",
		Short: "Print the nodes of the database cluster",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ServerInfo(cmd.Context())
		},
	}
	return cmd
}

func simulateCmd() *cobra.Command {
	a := loadscope.New()
	cmd := &cobra.Command{
		Use:   "simulate <workload> <threads> <requests>",
		Short: "Start a built-in simulation, e.g. updates or status-checks",
		Args:  cobra.ExactArgs(3),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			threads, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("error reading threads: %s", err)
			}
			requests, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("error reading requests: %s", err)
			}
			return a.Simulate(cmd.Context(), args[0], threads, requests)
		},
	}
	return cmd
}
