package main

import (
	"os"

	"todo/internal/cli"
)

// set build metadata
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	os.Exit(cli.Execute(cli.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	}, os.Args[1:], os.Stdout, os.Stderr))
}
