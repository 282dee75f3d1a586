package main

import (
	"log"
	"os"

	"github.com/perfgo/tctestaide/cli"
)

// Version information, set by goreleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	c := cli.New()
	c.SetVersion(version, commit, date)
	err := c.Run(os.Args)
	if err != nil {
		if msg := err.Error(); msg != "" {
			log.Print(msg)
		}
		os.Exit(cli.ExitCode(err))
	}
}
