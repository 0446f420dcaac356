package main

import (
	"os"

	"ai-agents/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
