package main

import (
	"os"

	"github.com/noah-isme/backend-liquido/cmd/liquido/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
