package main

import (
	"fmt"
	"os"

	"github.com/arkitektio/rekuest-next/cmd/rekuest-agent/commands"
)

func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
