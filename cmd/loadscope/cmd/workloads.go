package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loadscope/loadscope/internal/loadscope"
)

func workloadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workloads",
		Short: "List, launch and stop workloads on the results service",
	}
	cmd.AddCommand(
		listWorkloadsCmd(),
		invokeWorkloadCmd(),
		activeWorkloadsCmd(),
		terminateWorkloadCmd(),
	)
	return cmd
}

func listWorkloadsCmd() *cobra.Command {
	a := loadscope.New()
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the workloads that can be invoked",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return a.ListWorkloads(cmd.Context(), format)
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func invokeWorkloadCmd() *cobra.Command {
	a := loadscope.New()
	cmd := &cobra.Command{
		Use:   "invoke <workloadId>",
		Short: "Launch a workload",
		Long: `Launches a workload. Parameters that are not given take their default value, e.g.

loadscope workloads invoke INSERT --param threads=16 --param table=orders`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := cmd.Flags().GetStringArray("param")
			if err != nil {
				return fmt.Errorf("error reading param: %s", err)
			}
			return a.InvokeWorkload(cmd.Context(), args[0], params)
		},
	}
	cmd.Flags().StringArray("param", []string{}, "Parameter override as name=value, may be repeated")
	return cmd
}

func activeWorkloadsCmd() *cobra.Command {
	a := loadscope.New()
	cmd := &cobra.Command{
		Use:   "active",
		Short: "List the workloads that are running",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return a.ActiveWorkloads(cmd.Context(), format)
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func terminateWorkloadCmd() *cobra.Command {
	a := loadscope.New()
	cmd := &cobra.Command{
		Use:   "terminate <workloadId>",
		Short: "Stop a running workload",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.TerminateWorkload(cmd.Context(), args[0])
		},
	}
	return cmd
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", string(loadscope.OutputTable), "Output format, table or yaml")
}

func outputFormat(cmd *cobra.Command) (loadscope.OutputFormat, error) {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", fmt.Errorf("error reading output: %s", err)
	}
	return loadscope.ParseOutputFormat(output)
}
