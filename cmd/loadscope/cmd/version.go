package cmd

import (
	"github.com/spf13/cobra"

	"github.com/loadscope/loadscope/internal/loadscope"
)

func versionCmd() *cobra.Command {
	a := loadscope.New()
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Version()
		},
	}
	return cmd
}
