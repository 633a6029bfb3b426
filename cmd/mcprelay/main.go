package main

import (
	"os"

	"github.com/aki/mcprelay/internal/cli/commands"
)

func main() {
	os.Exit(commands.Execute())
}
