package main

import (
	"os"

	"github.com/rget/rget/cmd"
	"github.com/rget/rget/pkg/logging"
)

func main() {
	logging.SetupLogger()
	rootCMD := cmd.GetRootCommand()

	if err := rootCMD.Execute(); err != nil {
		os.Exit(1)
	}
}
