package main

import "github.com/johnrirwin/journalfeed/internal/cli"

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersionInfo(version, commit)
	cli.Execute()
}
