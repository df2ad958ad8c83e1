package main

import (
	"os"

	"github.com/cloudflow/support-agent/cli"
	_ "github.com/cloudflow/support-agent/pkg/logger/autoload"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
