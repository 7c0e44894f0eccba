package main

import (
	"os"

	"github.com/Dev-derah/simple-content-ai/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
