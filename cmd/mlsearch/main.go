package main

import (
	"fmt"
	"os"

	"github.com/edwardbickerton/handson-ml3/cmd/mlsearch/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
