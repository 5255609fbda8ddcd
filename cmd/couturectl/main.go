package main

import (
	"fmt"
	"os"

	"github.com/example/couture/cmd/couturectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
