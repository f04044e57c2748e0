package main

import (
	"os"

	"github.com/loadscope/loadscope/cmd/loadscope/cmd"
	"github.com/loadscope/loadscope/internal/common"
)

func main() {
	common.ConfigureCommandLineLogging()
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
