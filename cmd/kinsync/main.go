// Package main provides the entry point for the kinsync CLI tool.
package main

import "github.com/kinsync/kinsync/cmd/kinsync/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
