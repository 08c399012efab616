package main

import (
	"fmt"
	"os"

	"github.com/quantracode/VibeCheck-sub003/cmd"
)

func main() {
	code, err := cmd.Execute(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	os.Exit(code)
}
