package main

import (
	"os"

	"github.com/avikko/wxpost/cmd"
	"github.com/avikko/wxpost/internal/logging"
)

func main() {
	logging.Init()

	rootCmd := cmd.RootCommand()
	if err := rootCmd.Execute(); err != nil {
		logging.Error("command failed", "error", err)
		os.Exit(1)
	}
}
