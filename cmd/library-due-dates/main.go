package main

import "github.com/pfrederiksen/library-due-dates/internal/cli"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
