package client

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func AddApiConnectionCommandlineArgs(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().String("resultsUrl", "http://localhost:8080", "specify results service url")
	viper.BindPFlag("resultsService.url", rootCmd.PersistentFlags().Lookup("resultsUrl"))
	rootCmd.PersistentFlags().Duration("requestTimeout", defaultTimeout, "timeout for requests to the results service")
	viper.BindPFlag("resultsService.timeout", rootCmd.PersistentFlags().Lookup("requestTimeout"))
}

// LoadCommandlineArgs merges loadscope-defaults.yaml next to the executable, then each of cfgFiles in order,
// or ~/.loadscope.yaml if no file is given. Missing default files are not an error.
func LoadCommandlineArgs(cfgFiles []string) error {
	exePath, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "[LoadCommandlineArgs] error finding executable path")
	}
	viper.SetConfigFile(filepath.Join(filepath.Dir(exePath), "loadscope-defaults.yaml"))
	if err := viper.ReadInConfig(); err != nil {
		switch err.(type) {
		case viper.ConfigFileNotFoundError:
		case *os.PathError:
			// No default config is fine
		default:
			return errors.Wrapf(err, "[LoadCommandlineArgs] error reading config file %s", viper.ConfigFileUsed())
		}
	}
	viper.AutomaticEnv()

	if len(cfgFiles) == 0 {
		home, err := homedir.Dir()
		if err != nil {
			return errors.Wrap(err, "[LoadCommandlineArgs] error getting user home directory")
		}
		cfgFiles = []string{filepath.Join(home, ".loadscope.yaml")}
		if _, err := os.Stat(cfgFiles[0]); os.IsNotExist(err) {
			return nil
		}
	}

	for _, cfgFile := range cfgFiles {
		viper.SetConfigFile(cfgFile)
		if err := viper.MergeInConfig(); err != nil {
			return errors.Wrapf(err, "[LoadCommandlineArgs] error reading config file %s", cfgFile)
		}
	}
	return nil
}

func ExtractCommandlineApiConnectionDetails() *ApiConnectionDetails {
	return &ApiConnectionDetails{
		Url:     viper.GetString("resultsService.url"),
		Timeout: viper.GetDuration("resultsService.timeout"),
	}
}

// DefaultRequestTimeout is used by one-shot commands that have no configured timeout.
func DefaultRequestTimeout(details *ApiConnectionDetails) time.Duration {
	if details == nil || details.Timeout <= 0 {
		return defaultTimeout
	}
	return details.Timeout
}
