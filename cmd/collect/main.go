package main

import (
	"os"

	"github.com/stormspotter-go/stormspotter/cmd/collect/cmd"
)

func main() {
	root := cmd.NewCmdRoot()
	if err := root.Execute(); err != nil {
		root.PrintErrln(root.ErrPrefix(), err.Error())
		os.Exit(1)
	}
}
