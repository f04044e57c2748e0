package cmd

import (
	"github.com/spf13/cobra"

	"github.com/loadscope/loadscope/internal/common"
	commonconfig "github.com/loadscope/loadscope/internal/common/config"
	"github.com/loadscope/loadscope/internal/loadscope"
	"github.com/loadscope/loadscope/internal/loadscope/configuration"
	"github.com/loadscope/loadscope/pkg/client"
)

const defaultConfigPath = "./config/loadscope"

// initParams prepares a one-shot command: only the connection to the results service is needed.
func initParams(cmd *cobra.Command, params *loadscope.Params) error {
	configFiles, err := cmd.Flags().GetStringSlice(configFlag)
	if err != nil {
		return err
	}
	if err := client.LoadCommandlineArgs(configFiles); err != nil {
		return err
	}
	params.ApiConnectionDetails = client.ExtractCommandlineApiConnectionDetails()
	return nil
}

// initServiceParams prepares a long-running command from config/loadscope/config.yaml and the --config
// overrides. Connection flags given explicitly win over the files.
func initServiceParams(cmd *cobra.Command, params *loadscope.Params) error {
	common.ConfigureLogging()
	configFiles, err := cmd.Flags().GetStringSlice(configFlag)
	if err != nil {
		return err
	}

	var config configuration.LoadscopeConfig
	common.LoadConfig(&config, defaultConfigPath, configFiles)
	if cmd.Flags().Changed(resultsUrlFlag) {
		if config.ResultsService.Url, err = cmd.Flags().GetString(resultsUrlFlag); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed(requestTimeoutFlag) {
		if config.ResultsService.Timeout, err = cmd.Flags().GetDuration(requestTimeoutFlag); err != nil {
			return err
		}
	}

	if err := config.Validate(); err != nil {
		commonconfig.LogValidationErrors(err)
		return err
	}
	params.Config = config
	params.ApiConnectionDetails = config.ApiConnectionDetails()
	return nil
}
